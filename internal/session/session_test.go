package session_test

import (
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/ankix/internal/importer"
	"github.com/kpauljoseph/ankix/internal/session"
	"github.com/kpauljoseph/ankix/pkg/logger"
)

var _ = Describe("Session Manager", func() {
	var (
		now     time.Time
		manager *session.Manager
	)

	BeforeEach(func() {
		now = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
		manager = session.NewManager(session.Deps{Logger: logger.New(logger.WithOutput(GinkgoWriter))},
			time.Hour, session.WithClock(func() time.Time { return now }))
	})

	It("should create a session and set the cookie", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		s := manager.Resolve(w, r)
		Expect(s).NotTo(BeNil())
		Expect(s.Upload).NotTo(BeNil())
		Expect(s.Collection).NotTo(BeNil())
		Expect(s.Feedback).NotTo(BeNil())

		cookies := w.Result().Cookies()
		Expect(cookies).To(HaveLen(1))
		Expect(cookies[0].Name).To(Equal(session.CookieName))
		Expect(cookies[0].Value).To(Equal(s.ID))
		Expect(cookies[0].HttpOnly).To(BeTrue())
	})

	It("should reuse the session named by the cookie", func() {
		first := manager.Create()

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: session.CookieName, Value: first.ID})

		Expect(manager.Resolve(w, r)).To(BeIdenticalTo(first))
		Expect(w.Result().Cookies()).To(BeEmpty())
	})

	It("should replace an unknown cookie with a fresh session", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: session.CookieName, Value: "stale"})

		s := manager.Resolve(w, r)
		Expect(s.ID).NotTo(Equal("stale"))
		Expect(manager.Len()).To(Equal(1))
	})

	It("should share the collection between the controller and the session", func() {
		s := manager.Create()
		Expect(s.Collection.Len()).To(Equal(0))
		Expect(s.Upload.State().CardType).To(BeEquivalentTo("basic"))
	})

	It("should evict only idle sessions", func() {
		idle := manager.Create()
		now = now.Add(40 * time.Minute)
		active := manager.Create()
		now = now.Add(30 * time.Minute)
		_, ok := manager.Get(active.ID)
		Expect(ok).To(BeTrue())

		Expect(manager.Sweep()).To(Equal(1))
		_, ok = manager.Get(idle.ID)
		Expect(ok).To(BeFalse())
		_, ok = manager.Get(active.ID)
		Expect(ok).To(BeTrue())
	})

	It("should expire an idle session on lookup before any sweep", func() {
		s := manager.Create()
		now = now.Add(61 * time.Minute)

		_, ok := manager.Get(s.ID)
		Expect(ok).To(BeFalse())
		Expect(manager.Len()).To(Equal(0))

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: session.CookieName, Value: s.ID})
		Expect(manager.Resolve(w, r).ID).NotTo(Equal(s.ID))
	})

	It("should remember the last download until it is taken", func() {
		s := manager.Create()
		Expect(s.Download()).To(BeNil())
		s.SetDownload(importer.Download{ID: "abc", URL: "/api/v1/downloads/abc"})
		Expect(s.Download().URL).To(Equal("/api/v1/downloads/abc"))

		taken := s.TakeDownload()
		Expect(taken).NotTo(BeNil())
		Expect(taken.ID).To(Equal("abc"))
		Expect(s.Download()).To(BeNil())
		Expect(s.TakeDownload()).To(BeNil())
	})
})
