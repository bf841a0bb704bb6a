package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"linkedin-importer/lib/apperr"
	"linkedin-importer/lib/scrapers/linkedin"

	"github.com/stretchr/testify/require"
)

// fakeSession scripts the scraper side of a run.
type fakeSession struct {
	startErr error
	authErr  error
	fetchErr error
	profile  linkedin.RawProfile
	onClose  func()

	started       bool
	authenticated bool
	fetched       bool
	closed        int
}

func (f *fakeSession) Start(ctx context.Context) error {
	f.started = true
	return f.startErr
}

func (f *fakeSession) Authenticate(ctx context.Context, creds linkedin.Credentials) error {
	f.authenticated = true
	return f.authErr
}

func (f *fakeSession) FetchProfile(ctx context.Context, profileURL string) (linkedin.RawProfile, error) {
	f.fetched = true
	if f.fetchErr != nil {
		return linkedin.RawProfile{}, f.fetchErr
	}
	return f.profile, nil
}

func (f *fakeSession) Close() {
	f.closed++
	if f.onClose != nil {
		f.onClose()
	}
}

func scrapedProfile() linkedin.RawProfile {
	return linkedin.RawProfile{
		ProfileID: "jdoe",
		Name:      "John Doe",
		Headline:  "Senior Engineer",
		Positions: []linkedin.RawPosition{
			{Company: "Acme", Title: "Engineer"},
		},
		Skills: []string{"Go", "SQL"},
	}
}

func testOptions(t *testing.T) Options {
	return Options{
		ProfileID:   "jdoe",
		Email:       "john@x.com",
		Credentials: linkedin.Credentials{Cookie: "cookie"},
		DatabaseDSN: filepath.Join(t.TempDir(), "import.db"),
	}
}

func runWith(t *testing.T, opts Options, fake *fakeSession) ImportResult {
	service := NewService(opts)
	service.newSession = func() scraperSession { return fake }
	return service.Run(context.Background())
}

func TestRunImportsProfile(t *testing.T) {
	fake := &fakeSession{profile: scrapedProfile()}
	result := runWith(t, testOptions(t), fake)

	require.True(t, result.Success, result.Error)
	require.NotZero(t, result.UserID)
	require.Equal(t, 1, result.ProjectsCount)
	require.Equal(t, 2, result.TechnologiesCount)
	require.Empty(t, result.Error)
	// early release after the scrape, plus the deferred backstop
	require.Equal(t, 2, fake.closed)
}

func TestRunReleasesScraperBeforeDatabaseWork(t *testing.T) {
	// the database directory only exists once the session is closed,
	// so the import succeeds only if the scraper is released before
	// the store connects
	dir := filepath.Join(t.TempDir(), "late")
	opts := testOptions(t)
	opts.DatabaseDSN = filepath.Join(dir, "import.db")

	fake := &fakeSession{profile: scrapedProfile()}
	fake.onClose = func() {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}

	result := runWith(t, opts, fake)
	require.True(t, result.Success, result.Error)
}

func TestRunFailsBeforeScraperOnBadConfig(t *testing.T) {
	cases := []func(*Options){
		func(o *Options) { o.ProfileID = "" },
		func(o *Options) { o.Email = "" },
		func(o *Options) { o.DatabaseDSN = "" },
		func(o *Options) { o.Credentials = linkedin.Credentials{Email: "j@x.com"} },
	}
	for _, mutate := range cases {
		opts := testOptions(t)
		mutate(&opts)
		fake := &fakeSession{profile: scrapedProfile()}

		result := runWith(t, opts, fake)
		require.False(t, result.Success)
		require.NotEmpty(t, result.Error)
		require.False(t, fake.started, "scraper must not start on invalid config")
	}
}

func TestRunAuthFailureStillTearsDown(t *testing.T) {
	fake := &fakeSession{authErr: apperr.CookieExpired("cookie rejected")}
	result := runWith(t, testOptions(t), fake)

	require.False(t, result.Success)
	require.Contains(t, result.Error, "cookie rejected")
	require.False(t, fake.fetched)
	require.Equal(t, 1, fake.closed)
}

func TestRunScrapeFailure(t *testing.T) {
	fake := &fakeSession{fetchErr: apperr.ProfileNotFound("jdoe")}
	result := runWith(t, testOptions(t), fake)

	require.False(t, result.Success)
	require.Contains(t, result.Error, "jdoe")
	require.Equal(t, 1, fake.closed)
}

func TestRunValidationFailure(t *testing.T) {
	profile := scrapedProfile()
	profile.Name = ""
	fake := &fakeSession{profile: profile}

	result := runWith(t, testOptions(t), fake)
	require.False(t, result.Success)
	require.Contains(t, result.Error, "name")
}

func TestRunDBConnectFailure(t *testing.T) {
	opts := testOptions(t)
	opts.DatabaseDSN = "/nonexistent/dir/import.db"
	fake := &fakeSession{profile: scrapedProfile()}

	result := runWith(t, opts, fake)
	require.False(t, result.Success)
	require.NotEmpty(t, result.Error)
	require.Equal(t, 2, fake.closed)
}

type panickySession struct{ fakeSession }

func (p *panickySession) FetchProfile(ctx context.Context, profileURL string) (linkedin.RawProfile, error) {
	panic("browser went away")
}

func TestRunRecoversPanics(t *testing.T) {
	fake := &panickySession{}
	service := NewService(testOptions(t))
	service.newSession = func() scraperSession { return fake }

	result := service.Run(context.Background())
	require.False(t, result.Success)
	require.Contains(t, result.Error, "browser went away")
}

func TestRunIsRepeatable(t *testing.T) {
	opts := testOptions(t)

	first := runWith(t, opts, &fakeSession{profile: scrapedProfile()})
	require.True(t, first.Success, first.Error)

	second := runWith(t, opts, &fakeSession{profile: scrapedProfile()})
	require.True(t, second.Success, second.Error)
	require.Equal(t, first.UserID, second.UserID)
}
