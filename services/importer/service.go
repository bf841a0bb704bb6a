package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"linkedin-importer/lib/apperr"
	"linkedin-importer/lib/scrapers/linkedin"
	"linkedin-importer/lib/webclient"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/importer")

// Stage names reported while the pipeline advances.
const (
	StageValidatingInput     = "validating-input"
	StageInitializingScraper = "initializing-scraper"
	StageAuthenticating      = "authenticating"
	StageScraping            = "scraping"
	StageMapping             = "mapping"
	StageConnectingDB        = "connecting-db"
	StageImporting           = "importing"
	StageDone                = "done"
	StageFailed              = "failed"
)

// Options configures one import run.
type Options struct {
	// profile to import, any recognizable URL shape or bare username
	ProfileID string
	// contact email stored on the imported user, mandatory
	Email string

	Credentials linkedin.Credentials
	// database DSN, a sqlite file path or a libsql URL
	DatabaseDSN string

	// scraper tuning
	BaseURL           string
	PageTimeout       time.Duration
	RequestDelay      time.Duration
	MaxRetries        int
	RotateUserAgent   bool
	RecentEntityCount int
}

// Service drives a full profile import through its stages. One Service
// value handles one run at a time.
type Service struct {
	opts Options

	// overridable session factory, tests swap in a fake
	newSession func() scraperSession
}

// scraperSession is the slice of the session the pipeline uses.
type scraperSession interface {
	Start(ctx context.Context) error
	Authenticate(ctx context.Context, creds linkedin.Credentials) error
	FetchProfile(ctx context.Context, profileURL string) (linkedin.RawProfile, error)
	Close()
}

func NewService(opts Options) *Service {
	s := &Service{opts: opts}
	s.newSession = func() scraperSession {
		return linkedin.NewSession(linkedin.SessionOptions{
			Client: linkedin.ClientOptions{
				BaseUrl:         opts.BaseURL,
				Timeout:         opts.PageTimeout,
				RotateUserAgent: opts.RotateUserAgent,
			},
			Web: webclient.Options{
				RequestDelay: opts.RequestDelay,
				MaxRetries:   opts.MaxRetries,
			},
		})
	}
	return s
}

// Run executes the whole pipeline. Every outcome, including a panic in
// a stage, comes back as an ImportResult; Run never returns an error
// and never lets one escape.
func (s *Service) Run(ctx context.Context) (result ImportResult) {
	ctx, span := tracer.Start(ctx, "importer:Run")
	defer span.End()
	span.SetAttributes(attribute.String("profile", s.opts.ProfileID))

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("unexpected panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "pipeline panicked")
			result = failure(err)
		}
		if !result.Success {
			span.SetStatus(codes.Error, result.Error)
		}
	}()

	s.progress(ctx, StageValidatingInput)
	if err := s.validateOptions(); err != nil {
		return s.fail(ctx, err)
	}

	s.progress(ctx, StageInitializingScraper)
	session := s.newSession()
	defer session.Close()
	if err := session.Start(ctx); err != nil {
		return s.fail(ctx, err)
	}

	s.progress(ctx, StageAuthenticating)
	if err := session.Authenticate(ctx, s.opts.Credentials); err != nil {
		return s.fail(ctx, err)
	}

	s.progress(ctx, StageScraping, "profile", s.opts.ProfileID)
	raw, err := session.FetchProfile(ctx, s.opts.ProfileID)
	if err != nil {
		return s.fail(ctx, err)
	}
	// nothing past the scrape needs the browser, release it before
	// mapping and database work begin (the defer is only a backstop)
	session.Close()

	s.progress(ctx, StageMapping)
	profile := FromRaw(raw, s.opts.Email)
	if err := ValidateRequiredFields(profile); err != nil {
		return s.fail(ctx, err)
	}
	if err := ValidateProfileURLs(profile); err != nil {
		return s.fail(ctx, err)
	}
	Normalize(profile)
	user, entities := MapProfile(profile, MapperOptions{RecentEntityCount: s.opts.RecentEntityCount})

	s.progress(ctx, StageConnectingDB)
	store, err := Connect(ctx, s.opts.DatabaseDSN, s.opts.MaxRetries)
	if err != nil {
		return s.fail(ctx, err)
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		return s.fail(ctx, err)
	}

	s.progress(ctx, StageImporting, "entities", len(entities))
	result = store.ExecuteImport(ctx, user, entities)
	if result.Success {
		s.progress(ctx, StageDone,
			"user_id", result.UserID,
			"projects", result.ProjectsCount,
			"technologies", result.TechnologiesCount)
	} else {
		s.progress(ctx, StageFailed, "err", result.Error)
	}
	return result
}

// validateOptions fails fast, before any network or browser resource
// exists.
func (s *Service) validateOptions() error {
	if s.opts.ProfileID == "" {
		return apperr.Config("no profile to import was given")
	}
	if s.opts.Email == "" {
		return apperr.Config("a contact email for the imported user is required")
	}
	if s.opts.DatabaseDSN == "" {
		return apperr.Config("no database was configured")
	}
	if s.opts.Credentials.Cookie == "" &&
		(s.opts.Credentials.Email == "" || s.opts.Credentials.Password == "") {
		return apperr.Config("no auth method configured: provide a session cookie or email and password")
	}
	return nil
}

func (s *Service) fail(ctx context.Context, err error) ImportResult {
	e := apperr.AsError(err)
	s.progress(ctx, StageFailed, "kind", string(e.Kind), "err", e.Message)
	return failure(err)
}

func (s *Service) progress(ctx context.Context, stage string, details ...any) {
	args := append([]any{"stage", stage}, details...)
	slog.InfoContext(ctx, "import progress", args...)
}
