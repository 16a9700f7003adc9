package feedback

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kpauljoseph/ankix/pkg/logger"
)

const (
	DefaultClearAfter = 3 * time.Second

	SuccessMessage = "Thank you for your feedback!"
	ErrorMessage   = "Failed to send feedback. Please try again."
)

var (
	ErrEmptyMessage = errors.New("feedback message is required")
	ErrSending      = errors.New("feedback is already being sent")
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusSending Status = "sending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type State struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Draft   string `json:"draft"`
}

// Form is the state behind one feedback box. Success and error fall back
// to idle once clearAfter has passed.
type Form struct {
	mu         sync.Mutex
	sender     Sender
	limiter    *rate.Limiter
	clearAfter time.Duration
	now        func() time.Time
	logger     *logger.Logger

	status    Status
	settledAt time.Time
	draft     string
}

type FormOption func(*Form)

func WithClock(now func() time.Time) FormOption {
	return func(f *Form) {
		f.now = now
	}
}

func WithClearAfter(d time.Duration) FormOption {
	return func(f *Form) {
		if d > 0 {
			f.clearAfter = d
		}
	}
}

// WithLimiter shares a token bucket between forms; a submission that finds
// it empty fails instead of waiting.
func WithLimiter(limiter *rate.Limiter) FormOption {
	return func(f *Form) {
		f.limiter = limiter
	}
}

func NewForm(sender Sender, log *logger.Logger, options ...FormOption) *Form {
	f := &Form{
		sender:     sender,
		clearAfter: DefaultClearAfter,
		now:        time.Now,
		logger:     log,
		status:     StatusIdle,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

func (f *Form) SetDraft(draft string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = draft
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state()
}

// Submit makes exactly one delivery attempt.
func (f *Form) Submit(ctx context.Context, message string) (State, error) {
	f.mu.Lock()
	if strings.TrimSpace(message) == "" {
		defer f.mu.Unlock()
		return f.state(), ErrEmptyMessage
	}
	if f.status == StatusSending {
		defer f.mu.Unlock()
		return f.state(), ErrSending
	}
	f.status = StatusSending
	f.draft = message
	f.mu.Unlock()

	err := f.send(ctx, message)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.logger.Error("Email send failed: %v", err)
		f.status = StatusError
	} else {
		f.status = StatusSuccess
		f.draft = ""
	}
	f.settledAt = f.now()
	return f.state(), nil
}

func (f *Form) send(ctx context.Context, message string) error {
	if f.limiter != nil && !f.limiter.Allow() {
		return errors.New("feedback rate limit exceeded")
	}
	return f.sender.Send(ctx, message)
}

func (f *Form) state() State {
	if (f.status == StatusSuccess || f.status == StatusError) && f.now().Sub(f.settledAt) >= f.clearAfter {
		f.status = StatusIdle
	}

	s := State{Status: f.status, Draft: f.draft}
	switch f.status {
	case StatusSuccess:
		s.Message = SuccessMessage
	case StatusError:
		s.Message = ErrorMessage
	}
	return s
}
