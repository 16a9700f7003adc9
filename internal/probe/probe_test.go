package probe_test

import (
	"context"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/ankix/internal/probe"
	"github.com/kpauljoseph/ankix/pkg/logger"
)

var _ = Describe("Cache Probe", func() {
	var (
		mr  *miniredis.Miniredis
		p   *probe.Probe
		ctx context.Context
	)

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		p, err = probe.NewFromURL("redis://"+mr.Addr(), logger.New(logger.WithOutput(GinkgoWriter)))
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	AfterEach(func() {
		p.Close()
		mr.Close()
	})

	It("should write the test key and report success", func() {
		result := p.Check(ctx)
		Expect(result.Success).To(BeTrue())
		Expect(result.Message).To(Equal(probe.TestValue))
		Expect(result.Error).To(BeEmpty())

		stored, err := mr.Get(probe.TestKey)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored).To(Equal(probe.TestValue))
	})

	It("should report failure when the cache is down", func() {
		mr.Close()
		result := p.Check(ctx)
		Expect(result.Success).To(BeFalse())
		Expect(result.Error).NotTo(BeEmpty())
	})

	It("should report failure when no cache is configured", func() {
		unconfigured, err := probe.NewFromURL("", logger.Discard())
		Expect(err).NotTo(HaveOccurred())

		result := unconfigured.Check(ctx)
		Expect(result.Success).To(BeFalse())
		Expect(result.Error).To(Equal(probe.ErrNotConfigured.Error()))
	})

	It("should reject a malformed URL", func() {
		_, err := probe.NewFromURL("http://not-redis", logger.Discard())
		Expect(err).To(HaveOccurred())
	})
})
