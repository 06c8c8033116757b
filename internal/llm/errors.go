package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrFatalAPI indicates an API error that will not resolve on retry:
// billing, authentication, or quota exhaustion. Callers should stop the
// current run rather than hammer the API.
var ErrFatalAPI = errors.New("fatal API error")

// ErrRateLimited indicates the oracle rejected a request for rate
// limiting. It is transient and handled inside this package; it only
// escapes when the retry budget is exhausted.
var ErrRateLimited = errors.New("rate limited")

// fatalPatterns are substrings that identify unrecoverable API errors.
var fatalPatterns = []string{
	"credit balance",
	"quota exceeded",
	"billing",
	"invalid api key",
	"incorrect api key",
	"authentication",
	"unauthorized",
	"401",
	"403",
}

// rateLimitPatterns identify transient throttling responses.
var rateLimitPatterns = []string{
	"429",
	"rate limit",
	"rate_limit",
	"too many requests",
}

func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	if isRateLimitError(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range fatalPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range rateLimitPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func wrapFatalError(err error) error {
	if isFatalAPIError(err) {
		return fmt.Errorf("%w: %v", ErrFatalAPI, err)
	}
	return err
}

// retryDelayRe matches the wait hints OpenAI-style APIs embed in 429
// bodies, e.g. "Please try again in 20s" or "retry after 1.5s".
var retryDelayRe = regexp.MustCompile(`(?i)(?:try again|retry(?:-| )after)[^\d]*([\d.]+)\s*(ms|s)?`)

const defaultRetryDelay = 5 * time.Second

// retryDelay extracts the oracle-specified wait from a rate-limit error,
// falling back to a fixed default when the hint is absent or unparsable.
func retryDelay(err error) time.Duration {
	if err == nil {
		return defaultRetryDelay
	}
	m := retryDelayRe.FindStringSubmatch(err.Error())
	if m == nil {
		return defaultRetryDelay
	}
	n, perr := strconv.ParseFloat(m[1], 64)
	if perr != nil || n <= 0 {
		return defaultRetryDelay
	}
	if m[2] == "ms" {
		return time.Duration(n * float64(time.Millisecond))
	}
	return time.Duration(n * float64(time.Second))
}
