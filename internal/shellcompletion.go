// Copyright 2025 Centian Contributors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at.
//
//     http://www.apache.org/licenses/LICENSE-2.0.
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package internal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ShellInfo contains information about the current shell and its configuration.
type ShellInfo struct {
	Name           string // bash, zsh, fish, etc.
	RCFile         string // path to RC file (~/.bashrc, ~/.zshrc, etc.)
	CompletionLine string // the line to add for completion
}

// DetectShell detects the current shell and returns shell information.
func DetectShell() (*ShellInfo, error) {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return nil, fmt.Errorf("unable to detect shell: SHELL environment variable not set")
	}

	shellName := filepath.Base(shell)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("unable to get home directory: %w", err)
	}

	var info ShellInfo
	info.Name = shellName

	switch shellName {
	case "bash":
		bashProfile := filepath.Join(homeDir, ".bash_profile")
		bashrc := filepath.Join(homeDir, ".bashrc")

		if _, err := os.Stat(bashProfile); err == nil {
			info.RCFile = bashProfile
		} else {
			info.RCFile = bashrc
		}
		info.CompletionLine = "source <(mcphub completion bash)"

	case "zsh":
		info.RCFile = filepath.Join(homeDir, ".zshrc")
		info.CompletionLine = "source <(mcphub completion zsh)"

	case "fish":
		fishCompDir := filepath.Join(homeDir, ".config", "fish", "completions")
		info.RCFile = filepath.Join(fishCompDir, "mcphub.fish")
		info.CompletionLine = ""

	default:
		return nil, fmt.Errorf("unsupported shell: %s", shellName)
	}

	return &info, nil
}

// SetupShellCompletion offers to set up shell completion for the user.
func SetupShellCompletion() error {
	fmt.Println("\nShell completion setup")
	fmt.Println("=======================")

	shellInfo, err := DetectShell()
	if err != nil {
		fmt.Printf("could not detect shell: %s\n", err)
		fmt.Println("you can manually set up completion using: mcphub completion <shell>")
		return nil
	}

	fmt.Printf("detected shell: %s\n", shellInfo.Name)
	fmt.Printf("configuration file: %s\n", shellInfo.RCFile)

	if shellInfo.Name == "fish" {
		fmt.Println("\nfish shell uses a different completion system.")
		fmt.Printf("completion file will be created at: %s\n", shellInfo.RCFile)
		fmt.Println("this will enable tab completion for mcphub commands.")
	} else {
		fmt.Println("\nthis will add the following line to your shell configuration:")
		fmt.Printf("  %s\n", shellInfo.CompletionLine)
		fmt.Println("this enables tab completion for mcphub commands and subcommands.")
	}

	fmt.Print("\nwould you like to set up shell completion? (y/N): ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read user input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	if response != "y" && response != "yes" {
		fmt.Println("shell completion setup skipped.")
		fmt.Printf("to set up later, run: mcphub completion %s\n", shellInfo.Name)
		return nil
	}

	if shellInfo.Name == "fish" {
		return setupFishCompletion(shellInfo.RCFile)
	}
	return setupShellCompletion(shellInfo)
}

// setupShellCompletion sets up completion for bash/zsh shells.
func setupShellCompletion(shellInfo *ShellInfo) error {
	exists, err := completionExists(shellInfo.RCFile, shellInfo.CompletionLine)
	if err != nil {
		return fmt.Errorf("failed to check existing completion: %w", err)
	}

	if exists {
		fmt.Println("shell completion is already configured.")
		return nil
	}

	if _, err := os.Stat(shellInfo.RCFile); os.IsNotExist(err) {
		fmt.Printf("creating %s...\n", shellInfo.RCFile)
		file, err := os.Create(shellInfo.RCFile)
		if err != nil {
			return fmt.Errorf("failed to create RC file: %w", err)
		}
		file.Close()
	}

	file, err := os.OpenFile(shellInfo.RCFile, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open RC file: %w", err)
	}
	defer file.Close()

	completionBlock := fmt.Sprintf("\n# mcphub completion\n%s\n", shellInfo.CompletionLine)
	if _, err := file.WriteString(completionBlock); err != nil {
		return fmt.Errorf("failed to write completion line: %w", err)
	}

	fmt.Println("shell completion configured successfully.")
	fmt.Println("restart your shell or run 'source " + shellInfo.RCFile + "' to activate completion.")

	return nil
}

// setupFishCompletion sets up completion for fish shell.
func setupFishCompletion(completionFile string) error {
	if _, err := os.Stat(completionFile); err == nil {
		fmt.Println("fish completion is already configured.")
		return nil
	}

	completionDir := filepath.Dir(completionFile)
	if err := os.MkdirAll(completionDir, 0o755); err != nil {
		return fmt.Errorf("failed to create completions directory: %w", err)
	}

	fmt.Println("generating fish completion script...")

	fishScript := `# mcphub fish completion
complete -c mcphub -f -a "(mcphub --generate-shell-completion)"
`

	if err := os.WriteFile(completionFile, []byte(fishScript), 0o644); err != nil {
		return fmt.Errorf("failed to write fish completion file: %w", err)
	}

	fmt.Println("fish completion configured successfully.")
	fmt.Println("fish will automatically load the completion on next shell start.")

	return nil
}

// completionExists checks if the completion line already exists in the RC file.
func completionExists(rcFile, completionLine string) (bool, error) {
	file, err := os.Open(rcFile)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == completionLine {
			return true, nil
		}
	}

	return false, scanner.Err()
}
