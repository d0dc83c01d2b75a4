package circuitbreaker

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Doer is the subset of *http.Client the wrapper needs.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPClient sends requests through a breaker. Transport errors and 5xx
// responses count as failures; 4xx responses do not.
type HTTPClient struct {
	doer    Doer
	cb      *CircuitBreaker
	service string
	metrics *Collector
}

// NewHTTPClient wraps doer (an http.Client with a 10s timeout when nil).
func NewHTTPClient(doer Doer, name, service string, settings Settings, logger *zap.Logger) *HTTPClient {
	if doer == nil {
		doer = &http.Client{Timeout: 10 * time.Second}
	}
	cb := New(name, settings, logger)
	DefaultCollector.Register(service, cb)
	return &HTTPClient{doer: doer, cb: cb, service: service, metrics: DefaultCollector}
}

// Breaker exposes the underlying breaker, mainly for health reporting.
func (c *HTTPClient) Breaker() *CircuitBreaker { return c.cb }

// Do sends req. A 5xx response is returned to the caller with a nil error
// after being counted against the breaker.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := c.cb.Execute(req.Context(), func() error {
		var err error
		resp, err = c.doer.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return &serverError{code: resp.StatusCode}
		}
		return nil
	})

	c.metrics.RecordRequest(c.service, c.cb.Name(), c.cb.State(), err == nil)

	var se *serverError
	if errors.As(err, &se) {
		return resp, nil
	}
	return resp, err
}

type serverError struct{ code int }

func (e *serverError) Error() string { return http.StatusText(e.code) }
