// Package apperr defines the closed failure taxonomy of the import
// pipeline. Every error raised by the client, scraper or store maps to
// exactly one kind, and each kind fixes its recoverable flag at
// construction.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindConfig     Kind = "config"
	KindAuth       Kind = "auth"
	KindAPI        Kind = "api"
	KindValidation Kind = "validation"
	KindDatabase   Kind = "database"
	KindScraper    Kind = "scraper"

	// scraper subtypes
	KindBrowser           Kind = "scraper:browser"
	KindScraperAuth       Kind = "scraper:auth"
	KindTwoFactorRequired Kind = "scraper:two_factor_required"
	KindCookieExpired     Kind = "scraper:cookie_expired"
	KindProfileNotFound   Kind = "scraper:profile_not_found"
	KindScrapingBlocked   Kind = "scraper:blocked"
	KindElementNotFound   Kind = "scraper:element_not_found"
	KindPageLoadTimeout   Kind = "scraper:page_load_timeout"
)

// Error is the single failure type carried through the pipeline.
type Error struct {
	Kind        Kind
	Message     string
	Details     map[string]any
	Timestamp   time.Time
	Recoverable bool
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) WithDetail(key string, value any) *Error {
	e.Details[key] = value
	return e
}

func (e *Error) WithError(err error) *Error {
	e.Err = err
	return e
}

func newError(kind Kind, message string, recoverable bool) *Error {
	return &Error{
		Kind:        kind,
		Message:     message,
		Details:     map[string]any{},
		Timestamp:   time.Now(),
		Recoverable: recoverable,
	}
}

func Config(message string) *Error     { return newError(KindConfig, message, false) }
func Auth(message string) *Error       { return newError(KindAuth, message, false) }
func API(message string) *Error        { return newError(KindAPI, message, false) }
func Validation(message string) *Error { return newError(KindValidation, message, false) }
func Database(message string) *Error   { return newError(KindDatabase, message, false) }
func Scraper(message string) *Error    { return newError(KindScraper, message, false) }

func Browser(message string) *Error { return newError(KindBrowser, message, true) }

func ScraperAuth(message string) *Error { return newError(KindScraperAuth, message, false) }

func TwoFactorRequired(message string) *Error {
	return newError(KindTwoFactorRequired, message, true)
}

func CookieExpired(message string) *Error { return newError(KindCookieExpired, message, false) }

func ProfileNotFound(profile string) *Error {
	e := newError(KindProfileNotFound, fmt.Sprintf("profile not found: %s", profile), false)
	return e.WithDetail("profile", profile)
}

// ScrapingBlocked carries the number of seconds the remote asked us to
// wait, or 0 when it gave no hint.
func ScrapingBlocked(message string, retryAfter int) *Error {
	e := newError(KindScrapingBlocked, message, true)
	if retryAfter > 0 {
		e = e.WithDetail("retry_after", retryAfter)
	}
	return e
}

func ElementNotFound(selector string) *Error {
	e := newError(KindElementNotFound, fmt.Sprintf("element not found: %s", selector), true)
	return e.WithDetail("selector", selector)
}

func PageLoadTimeout(page string) *Error {
	e := newError(KindPageLoadTimeout, fmt.Sprintf("page load timed out: %s", page), true)
	return e.WithDetail("page", page)
}

// AsError returns err as an *Error, wrapping unknown errors under the
// generic scraper kind so callers always see the taxonomy.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Scraper("unexpected error").WithError(err)
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return false
}

// RetryAfter extracts the retry hint from a scraping-blocked error,
// 0 when absent.
func RetryAfter(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return 0
	}
	v, ok := e.Details["retry_after"].(int)
	if !ok {
		return 0
	}
	return v
}
