package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecoverableFlags(t *testing.T) {
	cases := []struct {
		err         *Error
		recoverable bool
	}{
		{Browser("session died"), true},
		{TwoFactorRequired("challenge pending"), true},
		{ScrapingBlocked("slow down", 30), true},
		{ElementNotFound("h1.top-card"), true},
		{PageLoadTimeout("/in/someone"), true},
		{ScraperAuth("bad credentials"), false},
		{CookieExpired("li_at rejected"), false},
		{ProfileNotFound("ghost"), false},
		{Config("missing database path"), false},
		{Database("connect failed"), false},
	}
	for _, c := range cases {
		require.Equal(t, c.recoverable, c.err.Recoverable, c.err.Kind)
		require.Equal(t, c.recoverable, IsRecoverable(c.err), c.err.Kind)
	}
}

func TestRendering(t *testing.T) {
	err := Auth("login rejected").WithError(fmt.Errorf("status 401"))
	require.Contains(t, err.Error(), "auth")
	require.Contains(t, err.Error(), "login rejected")
	require.Contains(t, err.Error(), "status 401")

	require.NotNil(t, err.Details)
	require.False(t, err.Timestamp.IsZero())
}

func TestKindThroughWrapping(t *testing.T) {
	inner := CookieExpired("expired")
	wrapped := fmt.Errorf("authenticate: %w", inner)

	require.Equal(t, KindCookieExpired, KindOf(wrapped))
	require.False(t, IsRecoverable(wrapped))

	var e *Error
	require.True(t, errors.As(wrapped, &e))
	require.Same(t, inner, e)
}

func TestRetryAfter(t *testing.T) {
	require.Equal(t, 30, RetryAfter(ScrapingBlocked("blocked", 30)))
	require.Equal(t, 0, RetryAfter(ScrapingBlocked("blocked", 0)))
	require.Equal(t, 0, RetryAfter(errors.New("plain")))
}

func TestAsError(t *testing.T) {
	plain := errors.New("boom")
	e := AsError(plain)
	require.Equal(t, KindScraper, e.Kind)
	require.ErrorIs(t, e, plain)

	typed := Validation("bad email")
	require.Same(t, typed, AsError(typed))
}
