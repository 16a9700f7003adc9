package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Set at build time with -ldflags "-X".
var (
	Version   = "dev"
	CommitSHA = "unknown"
)

// Build describes the running binary.
type Build struct {
	Version   string
	Commit    string
	GoVersion string
	Platform  string
}

func Current() Build {
	return Build{
		Version:   Version,
		Commit:    CommitSHA,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (b Build) String() string {
	return "AnkiX " + b.Version
}

// Detail is one extra line of the version report, such as a configured backend.
type Detail struct {
	Name  string
	Value string
}

// Report lists the build followed by the given details in order. Empty
// values are skipped.
func (b Build) Report(details ...Detail) string {
	lines := []Detail{
		{"Version", b.Version},
		{"Commit", b.Commit},
		{"Go", b.GoVersion},
		{"Platform", b.Platform},
	}
	lines = append(lines, details...)

	var sb strings.Builder
	sb.WriteString("AnkiX\n")
	for _, d := range lines {
		if d.Value == "" {
			continue
		}
		fmt.Fprintf(&sb, "%-10s%s\n", d.Name+":", d.Value)
	}
	return sb.String()
}
