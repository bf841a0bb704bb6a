// Package linkedin scrapes public profile data from an authenticated
// LinkedIn session.
package linkedin

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"linkedin-importer/lib/apperr"
	"linkedin-importer/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	browser "github.com/EDDYCJY/fake-useragent"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/linkedin")

const defaultBaseUrl = "https://www.linkedin.com"
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// the name of the long-lived linkedin session cookie
const sessionCookieName = "li_at"

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
}

type ClientOptions struct {
	// defaults to https://www.linkedin.com
	BaseUrl string
	// defaults to 30s
	Timeout time.Duration
	// pick a fresh browser user agent instead of the pinned one
	RotateUserAgent bool
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = defaultBaseUrl
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, apperr.Browser("invalid base url").WithError(err)
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, apperr.Browser("failed to create cookie jar").WithError(err)
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	userAgent := defaultUserAgent
	if opts.RotateUserAgent {
		userAgent = browser.Chrome()
	}
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(client, "scrapers/linkedin/http")

	return &Client{
		BaseUrl: baseUrl,
		Http:    client,
	}, nil
}

// LoginCookie authenticates with a pre-existing li_at session cookie,
// verifying it by requesting the feed. A rejected cookie is a terminal
// condition, distinct from a generic auth failure.
func (c *Client) LoginCookie(ctx context.Context, cookie string) error {
	ctx, span := tracer.Start(ctx, "client:LoginCookie")
	defer span.End()

	c.Http.GetClient().Jar.SetCookies(c.BaseUrl, []*http.Cookie{{
		Name:   sessionCookieName,
		Value:  cookie,
		Domain: c.BaseUrl.Hostname(),
		Path:   "/",
	}})

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/feed/")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch feed")
		return apperr.Browser("failed to verify session cookie").WithError(err)
	}

	if sessionRejected(res) {
		span.SetStatus(codes.Error, "cookie rejected")
		return apperr.CookieExpired("session cookie rejected, obtain a fresh li_at value")
	}
	return nil
}

// LoginUsernamePassword performs the credential login flow. A
// checkpoint challenge surfaces as a recoverable two-factor condition:
// the caller may complete the challenge out-of-band and re-invoke.
func (c *Client) LoginUsernamePassword(ctx context.Context, email, password string) error {
	ctx, span := tracer.Start(ctx, "client:LoginUsernamePassword")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/login")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return apperr.Browser("failed to fetch login page").WithError(err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page html")
		return apperr.Browser("failed to parse login page").WithError(err)
	}

	csrf := doc.Find("input[name=loginCsrfParam]").AttrOr("value", "")
	if csrf == "" {
		span.SetStatus(codes.Error, "failed to find csrf token")
		return apperr.ElementNotFound("input[name=loginCsrfParam]")
	}

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"loginCsrfParam":   csrf,
			"session_key":      email,
			"session_password": password,
		}).
		Post("/checkpoint/lg/login-submit")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return apperr.Browser("failed to submit login").WithError(err)
	}

	finalUrl := res.RawResponse.Request.URL.String()
	if strings.Contains(finalUrl, "/checkpoint/challenge") ||
		strings.Contains(res.String(), "two-step verification") {
		span.SetStatus(codes.Error, "two factor challenge")
		return apperr.TwoFactorRequired("account requires a two-factor challenge, complete it in a browser and retry")
	}
	if strings.Contains(finalUrl, "/login") || sessionRejected(res) {
		span.SetStatus(codes.Error, "login rejected")
		return apperr.ScraperAuth(fmt.Sprintf("login rejected for %s", email))
	}
	return nil
}

// sessionRejected reports whether the response landed on a login or
// authwall page instead of authenticated content.
func sessionRejected(res *resty.Response) bool {
	final := res.RawResponse.Request.URL.Path
	if strings.Contains(final, "authwall") || strings.HasPrefix(final, "/uas/login") ||
		final == "/login" {
		return true
	}
	return strings.Contains(res.String(), `class="authwall`)
}
