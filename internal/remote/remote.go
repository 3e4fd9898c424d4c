// Package remote fetches the user record set over HTTP.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/smileynet/roster/internal/user"
)

// DefaultURL is the public sample endpoint the list is built around.
const DefaultURL = "https://jsonplaceholder.typicode.com/users"

// DefaultTimeout bounds a single fetch when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// Error reports a failed fetch: a transport or decode failure (Status 0)
// or a response with a status other than 200.
type Error struct {
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote: GET %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("remote: GET %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Loader performs the fetch. Concurrent fetches of the same URL share a
// single request. Failures are returned as-is; there are no retries.
type Loader struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
	group   singleflight.Group
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the HTTP client (default http.DefaultClient).
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithTimeout bounds each fetch (default DefaultTimeout). Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Fetch GETs url and decodes a JSON array of users.
// It blocks until the round-trip completes or ctx is done.
func (l *Loader) Fetch(ctx context.Context, url string) (user.RecordSet, error) {
	v, err, shared := l.group.Do(url, func() (any, error) {
		return l.fetch(ctx, url)
	})
	if shared {
		l.logger.Debug("joined in-flight fetch", "url", url)
	}
	if err != nil {
		return nil, err
	}
	return v.(user.RecordSet).Clone(), nil
}

func (l *Loader) fetch(ctx context.Context, url string) (user.RecordSet, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	l.logger.Info("fetching users", "url", url)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		l.logger.Error("fetch failed", "url", url, "error", err)
		return nil, &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.logger.Error("fetch failed", "url", url, "status", resp.StatusCode)
		return nil, &Error{URL: url, Status: resp.StatusCode}
	}

	var users user.RecordSet
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		l.logger.Error("decoding users failed", "url", url, "error", err)
		return nil, &Error{URL: url, Err: fmt.Errorf("decoding users: %w", err)}
	}

	l.logger.Info("fetched users", "url", url, "count", len(users), "elapsed", time.Since(start))
	return users, nil
}
