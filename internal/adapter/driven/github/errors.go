package github

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/repometa/internal/domain/model"
	"github.com/ericfisherdev/repometa/internal/domain/port/driven"
)

// classify maps go-github errors onto the port's error taxonomy. op describes
// the failed operation and prefixes the message.
func classify(op string, err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%s: %w", op, &driven.RateLimitError{
			Status:  mapRate(rateErr.Rate),
			Message: rateErr.Message,
		})
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%s: %w", op, &driven.RateLimitError{
			Status:     model.RateLimitStatus{Resource: "secondary"},
			RetryAfter: abuseErr.GetRetryAfter(),
			Message:    abuseErr.Message,
		})
	}

	var otpErr *gh.TwoFactorAuthError
	if errors.As(err, &otpErr) {
		return fmt.Errorf("%s: %w: %s", op, driven.ErrAuth, otpErr.Message)
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, driven.ErrNotFound)
		case http.StatusTooManyRequests:
			// go-github only recognises rate limits on 403.
			return fmt.Errorf("%s: %w", op, rateLimitFromResponse(respErr.Response, respErr.Message))
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w: %s", op, driven.ErrAuth, respErr.Message)
		default:
			return fmt.Errorf("%s: %w: status %d: %s", op, driven.ErrUnexpectedResponse, respErr.Response.StatusCode, respErr.Message)
		}
	}

	// Anything that is not an API response is a transport failure: DNS,
	// connection reset, TLS, timeout, or a cancelled context.
	return fmt.Errorf("%s: %w: %w", op, driven.ErrTransport, err)
}

// rateLimitFromResponse builds a RateLimitError from the quota headers of a
// 429 response. Without X-RateLimit-Remaining: 0 the limit is a secondary one.
func rateLimitFromResponse(resp *http.Response, message string) *driven.RateLimitError {
	h := resp.Header
	e := &driven.RateLimitError{Message: message}

	if h.Get("X-RateLimit-Remaining") == "0" {
		e.Status = model.RateLimitStatus{
			Resource:  h.Get("X-RateLimit-Resource"),
			Limit:     headerInt(h, "X-RateLimit-Limit"),
			Remaining: 0,
			Used:      headerInt(h, "X-RateLimit-Used"),
		}
		if e.Status.Resource == "" {
			e.Status.Resource = "core"
		}
		if reset := headerInt(h, "X-RateLimit-Reset"); reset > 0 {
			e.Status.Reset = time.Unix(int64(reset), 0).UTC()
		}
	} else {
		e.Status = model.RateLimitStatus{Resource: "secondary"}
	}

	if secs := headerInt(h, "Retry-After"); secs > 0 {
		e.RetryAfter = time.Duration(secs) * time.Second
	}
	return e
}

func headerInt(h http.Header, key string) int {
	n, err := strconv.Atoi(h.Get(key))
	if err != nil {
		return 0
	}
	return n
}
