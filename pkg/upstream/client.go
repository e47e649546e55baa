package upstream

import (
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ludotheque/ludotheque/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	maxBodyBytes      = 16 << 20
	maxErrorBodyBytes = 1024
)

type Options struct {
	Timeout time.Duration
	// HTTPClient overrides the default client, e.g. one that injects auth.
	HTTPClient *http.Client
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Defaults to 5.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	// Defaults to one minute.
	OpenTimeout time.Duration
}

// Client performs JSON requests against one third-party service behind a
// circuit breaker.
type Client struct {
	service string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     logger.Logger
}

func NewClient(service string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	threshold := opts.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	openTimeout := opts.OpenTimeout
	if openTimeout == 0 {
		openTimeout = time.Minute
	}

	c := &Client{
		service: service,
		http:    httpClient,
		log:     logger.New().Data(logger.Data{"service": service}),
	}

	metrics.CircuitBreakerState.WithLabelValues(service).Set(0)

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        service,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state changed", logger.Data{"from": from.String(), "to": to.String()})
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return c
}

func (c *Client) Service() string {
	return c.service
}

// Do sends req and decodes the JSON response into out. out may be nil when the
// body isn't needed. Every failure is an *Error.
func (c *Client) Do(req *http.Request, out interface{}) error {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(req)
	})
	metrics.UpstreamRequestDuration.WithLabelValues(c.service).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.UpstreamRequests.WithLabelValues(c.service, "rejected").Inc()
			return &Error{Service: c.service, Err: err}
		}
		metrics.UpstreamRequests.WithLabelValues(c.service, "failure").Inc()
		return err
	}
	metrics.UpstreamRequests.WithLabelValues(c.service, "success").Inc()

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{
			Service:    c.service,
			StatusCode: http.StatusOK,
			Body:       truncate(body),
			Err:        errors.Wrap(err, "malformed response body"),
		}
	}
	return nil
}

func (c *Client) roundTrip(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Service: c.service, Err: errors.WithStack(redactURLError(err))}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Body:       string(readBodyForError(resp.Body)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Service: c.service, StatusCode: resp.StatusCode, Err: errors.WithStack(err)}
	}
	return body, nil
}

// isBreakerSuccess keeps client errors (a private profile, an unknown id) from
// tripping the breaker. Only transport failures, 429s and 5xxs count.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var ue *Error
	if errors.As(err, &ue) {
		return !ue.Retryable()
	}
	return false
}

// redactURLError drops the query string from transport errors; some APIs take
// their key as a query parameter.
func redactURLError(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	if u, perr := url.Parse(ue.URL); perr == nil {
		u.RawQuery = ""
		u.User = nil
		return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
	}
	return &url.Error{Op: ue.Op, URL: "(redacted)", Err: ue.Err}
}

func readBodyForError(r io.Reader) []byte {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	return body
}

func truncate(body []byte) string {
	if len(body) > maxErrorBodyBytes {
		return string(body[:maxErrorBodyBytes])
	}
	return string(body)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}
