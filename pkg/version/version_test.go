package version_test

import (
	"runtime"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/ankix/pkg/version"
)

var _ = Describe("Version", func() {
	It("should describe the running binary", func() {
		build := version.Current()
		Expect(build.Version).To(Equal(version.Version))
		Expect(build.GoVersion).To(Equal(runtime.Version()))
		Expect(build.String()).To(Equal("AnkiX " + version.Version))
	})

	It("should append configured backends and skip empty ones", func() {
		build := version.Build{Version: "1.2.0", Commit: "abc123", GoVersion: "go1.24.0", Platform: "linux/amd64"}

		report := build.Report(
			version.Detail{Name: "Counter", Value: "sqlite3"},
			version.Detail{Name: "Cache", Value: ""},
			version.Detail{Name: "Remote", Value: "https://example.test"},
		)

		lines := strings.Split(strings.TrimSpace(report), "\n")
		Expect(lines).To(Equal([]string{
			"AnkiX",
			"Version:  1.2.0",
			"Commit:   abc123",
			"Go:       go1.24.0",
			"Platform: linux/amd64",
			"Counter:  sqlite3",
			"Remote:   https://example.test",
		}))
	})
})
