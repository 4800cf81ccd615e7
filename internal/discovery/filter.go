package discovery

import "regexp"

// Filter selects a subset of the catalog for search.
type Filter struct {
	ServerName    string
	NamePattern   string
	ConnectedOnly bool

	compiled *regexp.Regexp
}

func (f *Filter) matcher() (*regexp.Regexp, error) {
	if f.NamePattern == "" {
		return nil, nil
	}
	if f.compiled != nil {
		return f.compiled, nil
	}
	re, err := regexp.Compile(f.NamePattern)
	if err != nil {
		return nil, err
	}
	f.compiled = re
	return re, nil
}

// Stats summarizes the catalog's current shape.
type Stats struct {
	TotalServers      int
	ConnectedServers  int
	TotalTools        int
	CacheHitRate      float64
	LastDiscoveryTime string
	AvgLatencyMillis  float64
	ToolsByServer     map[string]int
}
