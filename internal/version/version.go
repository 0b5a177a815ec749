// Package version exposes the agent's release version.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the release version embedded at build time, with whitespace trimmed.
func Get() string {
	return strings.TrimSpace(versionContent)
}

// String renders the version line printed by the CLI.
func String() string {
	return "emicagent version " + Get()
}
