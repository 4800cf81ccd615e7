package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcphub/mcphub/internal/auth"
	"github.com/mcphub/mcphub/internal/common"
	"github.com/mcphub/mcphub/internal/config"
	"github.com/mcphub/mcphub/internal/connection"
	"github.com/mcphub/mcphub/internal/discovery"
	"github.com/mcphub/mcphub/internal/frontend"
	"github.com/mcphub/mcphub/internal/logging"
	"github.com/mcphub/mcphub/internal/router"
	"github.com/mcphub/mcphub/internal/store"
	"github.com/mcphub/mcphub/internal/toolset"
)

// system wires the five subsystems into one running front-end, in the
// order each one's constructor depends on the last:
// connection -> discovery -> toolset (+store) -> router -> frontend.
type system struct {
	cfg       *config.Config
	manager   *connection.Manager
	engine    *discovery.Engine
	toolsets  *toolset.Manager
	router    *router.Router
	frontend  *frontend.Frontend
	boltStore *store.BoltStore
	commonLog *common.Logger
	eventLog  *logging.Logger
}

// buildSystem loads configuration from configPath (or the default path
// when empty), validates it, and constructs every subsystem up to the
// Front-end. The returned system's Close releases the connection pool,
// discovery refresh loop, and store handle.
func buildSystem(ctx context.Context, configPath string) (*system, error) {
	if configPath == "" {
		var err error
		configPath, err = config.GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}

	cfg, err := config.LoadConfigFromPath(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed for %s: %w", configPath, err)
	}
	if cfg.Proxy == nil {
		defaults := config.NewDefaultProxySettings()
		cfg.Proxy = &defaults
	}
	if cfg.Discovery == nil {
		cfg.Discovery = config.NewDefaultDiscoverySettings()
	}

	commonLog, err := common.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	eventLog, err := logging.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event logger: %w", err)
	}

	boltStore, err := openBoltStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open toolset store: %w", err)
	}

	manager := connection.NewManager(cfg.Proxy.ResolvedMaxConcurrentConnections(), commonLog)
	warnings := manager.Initialize(cfg.ListEnabledServers())
	for _, w := range warnings {
		commonLog.Warn("skipping %s: %s", w.ServerName, w.Reason)
	}
	if err := manager.Start(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to start connection manager: %w", err)
	}

	engine := discovery.NewEngine(manager, discovery.OptionsFromSettings(cfg.Discovery), commonLog)
	engine.Start(ctx)

	toolsets := toolset.NewManager(boltStore, engine, cfg.Proxy.IsSecureToolsetValidation())
	if _, err := toolsets.RestoreLastEquipped(); err != nil {
		commonLog.Warn("failed to restore last equipped toolset: %v", err)
	}

	routerOpts := router.Options{ValidateParameters: true}
	requestRouter := router.NewRouter(engine, manager, routerOpts)

	fe := frontend.New(frontend.Options{
		Name:           cfg.Name,
		LegacyCombined: cfg.Proxy.LegacyCombinedMode,
	}, toolsets, engine, requestRouter, eventLog)

	return &system{
		cfg:       cfg,
		manager:   manager,
		engine:    engine,
		toolsets:  toolsets,
		router:    requestRouter,
		frontend:  fe,
		boltStore: boltStore,
		commonLog: commonLog,
		eventLog:  eventLog,
	}, nil
}

// openBoltStore opens the toolset/preferences store under the mcphub
// config directory.
func openBoltStore() (*store.BoltStore, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	return store.OpenBoltStore(filepath.Join(dir, "toolsets.db"))
}

// loadAPIKeyStore returns the front-end's API key store when auth is
// enabled and a key file exists, or nil when disabled or when no key file
// has been generated yet (via `mcphub server get-key`). API-key auth at
// the front-end is optional.
func loadAPIKeyStore(cfg *config.Config) (*auth.APIKeyStore, error) {
	if !cfg.IsAuthEnabled() {
		return nil, nil
	}
	keys, err := auth.LoadDefaultAPIKeys()
	if err != nil {
		if errors.Is(err, auth.ErrAPIKeysNotFound) || errors.Is(err, auth.ErrAPIKeysEmpty) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load API keys: %w", err)
	}
	return keys, nil
}

// Close releases every subsystem's resources in reverse dependency order.
func (s *system) Close() {
	s.engine.Stop()
	s.manager.Stop()
	if s.boltStore != nil {
		_ = s.boltStore.Close()
	}
	if s.eventLog != nil {
		_ = s.eventLog.Close()
	}
	if s.commonLog != nil {
		_ = s.commonLog.Close()
	}
}
