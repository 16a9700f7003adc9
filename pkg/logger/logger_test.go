package logger_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/ankix/pkg/logger"
)

var _ = Describe("Logger", func() {
	var (
		buf *bytes.Buffer
		log *logger.Logger
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		log = logger.New(
			logger.WithOutput(buf),
			logger.WithPrefix("[test] "),
			logger.WithFlags(0),
		)
	})

	It("should always print info and error lines", func() {
		log.Info("hello %s", "world")
		log.Error("broken: %d", 42)

		Expect(buf.String()).To(ContainSubstring("[test] INFO: hello world"))
		Expect(buf.String()).To(ContainSubstring("[test] ERROR: broken: 42"))
	})

	It("should only print debug lines when verbose", func() {
		log.Debug("hidden")
		Expect(buf.String()).To(BeEmpty())

		log.SetVerbose(true)
		log.Debug("shown")
		Expect(buf.String()).To(ContainSubstring("DEBUG: shown"))
	})

	It("should only print trace lines at trace level", func() {
		log.Trace("hidden")
		Expect(buf.String()).To(BeEmpty())

		log.SetLevel(logger.LevelTrace)
		log.Trace("shown")
		log.Debug("also shown")
		Expect(buf.String()).To(ContainSubstring("TRACE: shown"))
		Expect(buf.String()).To(ContainSubstring("DEBUG: also shown"))
	})

	It("should keep the writer when renamed", func() {
		log.Named("[web] ").Info("request")
		Expect(buf.String()).To(ContainSubstring("[web] INFO: request"))
	})
})
