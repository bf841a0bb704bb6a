package linkedin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"linkedin-importer/lib/apperr"
	"linkedin-importer/lib/webclient"

	"go.opentelemetry.io/otel/codes"
)

// Credentials carries one of the two supported authentication methods.
// A session cookie takes priority when both are set.
type Credentials struct {
	Cookie   string
	Email    string
	Password string
}

func (c Credentials) empty() bool {
	return c.Cookie == "" && (c.Email == "" || c.Password == "")
}

type SessionOptions struct {
	Client ClientOptions
	Web    webclient.Options
}

// Session is a synchronous facade over a single scraping worker. All
// browser-side state lives on one goroutine; callers submit work and
// block for the result, so Session methods are safe to call from
// multiple goroutines without the underlying client being.
type Session struct {
	opts SessionOptions

	mu      sync.Mutex
	started bool
	closed  bool

	tasks chan func()
	stop  chan struct{}

	// worker-owned state, only touched by closures running on the
	// worker goroutine
	client        *Client
	web           *webclient.Client
	authenticated bool
}

func NewSession(opts SessionOptions) *Session {
	return &Session{
		opts:  opts,
		tasks: make(chan func()),
		stop:  make(chan struct{}),
	}
}

// Start spins up the worker and constructs the http client on it.
// Calling Start on a running session is a no-op.
func (s *Session) Start(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "session:Start")
	defer span.End()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apperr.Scraper("session already closed")
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	go s.worker()

	err := s.do(ctx, func() error {
		client, err := NewClient(ctx, s.opts.Client)
		if err != nil {
			return err
		}
		webOpts := s.opts.Web
		// section fetches must ride the authenticated cookie jar
		webOpts.Client = client.Http
		web, err := webclient.New(webOpts)
		if err != nil {
			return err
		}
		s.client = client
		s.web = web
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start scraper")
	}
	return err
}

func (s *Session) worker() {
	for {
		select {
		case fn := <-s.tasks:
			fn()
		case <-s.stop:
			return
		}
	}
}

// do runs fn on the worker goroutine and blocks until it returns, the
// context is cancelled, or the session is closed. A panic inside fn is
// contained and surfaced as a scraper error.
func (s *Session) do(ctx context.Context, fn func() error) error {
	// without a worker the submit below would block forever
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return apperr.Scraper("session not started")
	}

	errc := make(chan error, 1)
	wrapped := func() {
		defer func() {
			if r := recover(); r != nil {
				errc <- apperr.Scraper(fmt.Sprintf("scraper panicked: %v", r))
			}
		}()
		errc <- fn()
	}

	select {
	case s.tasks <- wrapped:
	case <-s.stop:
		return apperr.Scraper("session closed")
	case <-ctx.Done():
		return apperr.Scraper("context cancelled").WithError(ctx.Err())
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return apperr.Scraper("context cancelled").WithError(ctx.Err())
	}
}

// Authenticate logs in with whichever method the credentials provide,
// preferring the session cookie. The session must be started first.
func (s *Session) Authenticate(ctx context.Context, creds Credentials) error {
	ctx, span := tracer.Start(ctx, "session:Authenticate")
	defer span.End()

	if creds.empty() {
		return apperr.ScraperAuth("no credentials: provide a session cookie or email and password")
	}

	err := s.do(ctx, func() error {
		if s.client == nil {
			return apperr.Scraper("session not started")
		}
		var err error
		if creds.Cookie != "" {
			err = s.client.LoginCookie(ctx, creds.Cookie)
		} else {
			err = s.client.LoginUsernamePassword(ctx, creds.Email, creds.Password)
		}
		if err != nil {
			return err
		}
		s.authenticated = true
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "authentication failed")
	}
	return err
}

// FetchProfile scrapes one profile. Any recognizable profile URL or a
// bare username is accepted.
func (s *Session) FetchProfile(ctx context.Context, profileURL string) (RawProfile, error) {
	ctx, span := tracer.Start(ctx, "session:FetchProfile")
	defer span.End()

	normalized, err := NormalizeProfileURL(profileURL)
	if err != nil {
		span.SetStatus(codes.Error, "invalid profile url")
		return RawProfile{}, err
	}
	// fetch by path so the client's base url stays in charge
	path := "/in/" + UsernameFromURL(normalized)

	var raw RawProfile
	err = s.do(ctx, func() error {
		if !s.authenticated {
			return apperr.ScraperAuth("session is not authenticated")
		}
		var err error
		raw, err = s.client.FetchProfile(ctx, s.web, path)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch profile")
		return RawProfile{}, err
	}
	return raw, nil
}

// Close tears the worker down. It is idempotent and safe on a session
// that was never started; teardown problems are logged, not returned.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	if started {
		// the worker is still draining, run teardown on it
		err := s.do(context.Background(), func() error {
			s.authenticated = false
			if s.client != nil {
				s.client.Http.GetClient().CloseIdleConnections()
			}
			return nil
		})
		if err != nil {
			slog.Warn("scraper teardown failed", "err", err)
		}
	}
	close(s.stop)
}
