// Copyright 2025 CentianCLI Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import "time"

// LogEntry is the flat, on-disk shape log_reader.go parses back from
// requests_*.jsonl. Logger writes McpEventInterface implementations
// (BaseMcpEvent-derived), which share these field names/tags, so a line
// written by Logger.LogMcpEvent decodes cleanly into a LogEntry here.
type LogEntry struct {
	Timestamp   time.Time         `json:"timestamp"`
	RequestID   string            `json:"request_id"`
	SessionID   string            `json:"session_id,omitempty"`
	Direction   string            `json:"direction"`
	Command     string            `json:"command"`
	Args        []string          `json:"args"`
	ProjectPath string            `json:"project_path"`
	ServerID    string            `json:"server_id,omitempty"`
	Message     string            `json:"message"`
	MessageType string            `json:"message_type"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
