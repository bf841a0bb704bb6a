// Package webclient wraps a resty client with the resilience the
// import pipeline needs around outbound calls: a per-instance request
// throttle, a per-profile response cache, rate-limit compliance and
// bounded retries with exponential backoff.
package webclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"linkedin-importer/lib/apperr"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("lib/webclient")

const defaultCacheSize = 64
const defaultRateLimitWait = 60 * time.Second

type Options struct {
	// minimum delay between two requests issued by this client
	RequestDelay time.Duration
	// retry budget for rate limits, 5xx and transport failures
	MaxRetries int
	// entries kept in the (section, profile) response cache
	CacheSize int
	// bearer token source, zero value disables the Authorization header
	Token TokenOptions
	// underlying client, one is created when nil. the scraper session
	// passes its own authenticated client here so section fetches share
	// its cookie jar.
	Client *resty.Client
}

type Client struct {
	http  *resty.Client
	opts  Options
	cache *lru.Cache[string, []byte]

	mu          sync.Mutex
	lastRequest time.Time
	token       string

	// injectable for tests, ctx-aware sleep
	sleep func(context.Context, time.Duration) error
}

func New(opts Options) (*Client, error) {
	if opts.MaxRetries < 0 {
		return nil, apperr.Config("webclient max retries must not be negative")
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}

	httpClient := opts.Client
	if httpClient == nil {
		httpClient = resty.New()
	}

	return &Client{
		http:  httpClient,
		opts:  opts,
		cache: cache,
		sleep: sleepContext,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// throttle blocks until at least RequestDelay has passed since the
// previous attempt on this client.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	remaining := c.opts.RequestDelay - elapsed
	c.mu.Unlock()
	return c.sleep(ctx, remaining)
}

func (c *Client) markAttempt() {
	c.mu.Lock()
	c.lastRequest = time.Now()
	c.mu.Unlock()
}

func cacheKey(section, profileID string) string {
	return section + ":" + profileID
}

// retryAfterDelay derives the wait a 429 response asked for, either
// from Retry-After (integer seconds) or from X-RateLimit-Reset minus
// the current time. Malformed or missing headers fall back to a minute.
func retryAfterDelay(res *resty.Response) time.Duration {
	retryAfter := res.Header().Get("Retry-After")
	if retryAfter != "" {
		secs, err := strconv.Atoi(strings.TrimSpace(retryAfter))
		if err != nil || secs < 0 {
			return defaultRateLimitWait
		}
		return time.Duration(secs) * time.Second
	}

	reset := res.Header().Get("X-RateLimit-Reset")
	if reset != "" {
		unix, err := strconv.ParseInt(strings.TrimSpace(reset), 10, 64)
		if err != nil {
			return defaultRateLimitWait
		}
		wait := time.Until(time.Unix(unix, 0))
		if wait < 0 {
			return 0
		}
		return wait
	}

	return defaultRateLimitWait
}

func newBackoffSchedule() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 5 * time.Minute
	b.MaxElapsedTime = 0
	return b
}

// Fetch performs a GET against url on behalf of (section, profileID).
// A cached response for the same section and profile short-circuits the
// network entirely.
func (c *Client) Fetch(ctx context.Context, section, profileID, url string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("section", section),
		attribute.String("profile", profileID),
	)

	key := cacheKey(section, profileID)
	if body, ok := c.cache.Get(key); ok {
		span.AddEvent("cache hit")
		return body, nil
	}

	token, err := c.bearerToken(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to obtain token")
		return nil, err
	}

	schedule := newBackoffSchedule()
	retries := 0
	for {
		if err := c.throttle(ctx); err != nil {
			return nil, err
		}

		req := c.http.R().SetContext(ctx)
		if token != "" {
			req.SetHeader("Authorization", "Bearer "+token)
		}
		res, err := req.Get(url)
		c.markAttempt()

		if err != nil {
			if retries >= c.opts.MaxRetries {
				apiErr := apperr.API(fmt.Sprintf("request failed after %d retries", retries)).
					WithError(err).
					WithDetail("url", url)
				span.SetStatus(codes.Error, "retry budget exhausted")
				return nil, apiErr
			}
			retries++
			if err := c.sleep(ctx, schedule.NextBackOff()); err != nil {
				return nil, err
			}
			continue
		}

		status := res.StatusCode()
		switch {
		case res.IsSuccess():
			body := res.Body()
			c.cache.Add(key, body)
			return body, nil

		case status == 429:
			if retries >= c.opts.MaxRetries {
				span.SetStatus(codes.Error, "rate limit retry budget exhausted")
				return nil, apperr.API("rate limited and retry budget exhausted").
					WithDetail("status", status).
					WithDetail("url", url)
			}
			wait := retryAfterDelay(res)
			span.AddEvent("rate limited", attributeWait(wait))
			retries++
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue

		case status == 403 && strings.Contains(strings.ToLower(res.String()), "quota"):
			span.SetStatus(codes.Error, "quota exhausted")
			return nil, apperr.API("api quota exhausted").
				WithDetail("status", status).
				WithDetail("url", url)

		case status == 404:
			span.SetStatus(codes.Error, "not found")
			return nil, apperr.ProfileNotFound(profileID).WithDetail("url", url)

		case status >= 500:
			if retries >= c.opts.MaxRetries {
				span.SetStatus(codes.Error, "server error retry budget exhausted")
				return nil, apperr.API(fmt.Sprintf("server error %d after %d retries", status, retries)).
					WithDetail("status", status).
					WithDetail("url", url)
			}
			retries++
			if err := c.sleep(ctx, schedule.NextBackOff()); err != nil {
				return nil, err
			}
			continue

		default:
			span.SetStatus(codes.Error, "unexpected status")
			return nil, apperr.API(fmt.Sprintf("unexpected status %d", status)).
				WithDetail("status", status).
				WithDetail("url", url)
		}
	}
}

func attributeWait(d time.Duration) trace.EventOption {
	return trace.WithAttributes(attribute.Float64("wait_seconds", d.Seconds()))
}
