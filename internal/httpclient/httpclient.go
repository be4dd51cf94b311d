// Package httpclient builds the HTTP clients shared by the catalog providers.
package httpclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"

	"mp3tag/internal/logger"
)

type Middleware func(http.RoundTripper) http.RoundTripper

// Chain applies middlewares so that the first one sees the request first.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.RoundTripper) http.RoundTripper {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// WithCache keeps GET responses in memory. Responses without freshness
// information are only reused by requests that allow stale answers, see
// WithMaxStale.
func WithCache() Middleware {
	cache := httpcache.NewMemoryCache()
	return func(next http.RoundTripper) http.RoundTripper {
		transport := httpcache.NewTransport(cache)
		transport.Transport = next
		return transport
	}
}

// WithMaxStale lets requests accept cached responses up to d old.
func WithMaxStale(d time.Duration) Middleware {
	if d <= 0 {
		return Passthrough
	}
	value := "max-stale=" + formatSeconds(d)
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("Cache-Control") == "" {
				r = r.Clone(r.Context())
				r.Header.Set("Cache-Control", value)
			}
			return next.RoundTrip(r)
		})
	}
}

func WithRateLimit(interval time.Duration) Middleware {
	if interval == 0 {
		return Passthrough
	}
	return func(next http.RoundTripper) http.RoundTripper {
		limiter := rate.NewLimiter(rate.Every(interval), 1)
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			if err := limiter.Wait(r.Context()); err != nil {
				return nil, err
			}
			return next.RoundTrip(r)
		})
	}
}

func WithLogging(log *logger.Logger) Middleware {
	if log == nil {
		return Passthrough
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			if err != nil {
				log.Debug("%s %s failed: %v", r.Method, r.URL.Redacted(), err)
				return nil, err
			}
			cached := ""
			if resp.Header.Get(httpcache.XFromCache) != "" {
				cached = ", cached"
			}
			log.Debug("resp %d (%s%s) for %s", resp.StatusCode, time.Since(start).Truncate(time.Millisecond), cached, r.URL.Redacted())
			return resp, nil
		})
	}
}

func WithUserAgent(userAgent string) Middleware {
	if userAgent == "" {
		return Passthrough
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			r = r.Clone(r.Context())
			r.Header.Set("User-Agent", userAgent)
			return next.RoundTrip(r)
		})
	}
}

func Passthrough(next http.RoundTripper) http.RoundTripper {
	return next
}

type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Wrap installs mw on c's transport. A nil c gets a fresh client.
func Wrap(c *http.Client, mw Middleware) *http.Client {
	if c == nil {
		c = &http.Client{}
	}
	if c.Transport == nil {
		c.Transport = http.DefaultTransport
	}
	c.Transport = mw(c.Transport)
	return c
}

// Options configures New.
type Options struct {
	UserAgent string
	RateLimit time.Duration // minimum interval between requests, 0 for none
	Cache     bool
	MaxStale  time.Duration
	Logger    *logger.Logger
}

// New returns a client with the middlewares selected by opts, outermost first:
// logging, cache, rate limit, user agent.
func New(opts Options) *http.Client {
	mws := []Middleware{WithLogging(opts.Logger)}
	if opts.Cache {
		mws = append(mws, WithMaxStale(opts.MaxStale), WithCache())
	}
	mws = append(mws, WithRateLimit(opts.RateLimit), WithUserAgent(opts.UserAgent))
	return Wrap(nil, Chain(mws...))
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatInt(max(int64(d/time.Second), 1), 10)
}
