package distance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	orsMaxAttempts  = 4
	orsFirstBackoff = 200 * time.Millisecond
	orsMaxBackoff   = 5 * time.Second
)

type httpStatusError struct {
	Code int
	Body string
	// RetryAfter is the server-requested delay, zero when absent.
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("ors status %d: %s", e.Code, e.Body)
}

func (o *ORSDistanceProvider) newRequest(ctx context.Context, method, url string, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send performs one attempt. Non-2xx responses are drained into an
// *httpStatusError so the connection can be reused.
func (o *ORSDistanceProvider) send(req *http.Request) (*http.Response, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return nil, &httpStatusError{
		Code:       resp.StatusCode,
		Body:       strings.TrimSpace(string(b)),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// call sends method/url with payload, retrying transient failures with
// exponential backoff. Each attempt first waits on the rate limiter.
func (o *ORSDistanceProvider) call(ctx context.Context, method, url string, payload []byte) (*http.Response, error) {
	log := zerolog.Ctx(ctx)
	wait := orsFirstBackoff

	for attempt := 1; ; attempt++ {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := o.newRequest(ctx, method, url, payload)
		if err != nil {
			return nil, err
		}

		resp, err := o.send(req)
		if err == nil {
			return resp, nil
		}
		if attempt == orsMaxAttempts || !retryable(err) {
			return nil, err
		}

		delay := wait
		var he *httpStatusError
		if errors.As(err, &he) && he.RetryAfter > delay {
			delay = min(he.RetryAfter, orsMaxBackoff)
		}
		log.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("ors request failed, retrying")

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		wait = min(wait*2, orsMaxBackoff)
	}
}

// retryable reports whether err is a throttling response, a gateway/server
// failure or a network error.
func retryable(err error) bool {
	var he *httpStatusError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
