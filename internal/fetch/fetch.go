package fetch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/adityabisht-lab/reddit-video-generator/internal/types"
)

// Fetch failure classes. NotFound and Unauthorized are permanent; RateLimited
// and Network are transient and worth retrying.
var (
	ErrNotFound     = errors.New("fetch: thread not found")
	ErrUnauthorized = errors.New("fetch: unauthorized")
	ErrRateLimited  = errors.New("fetch: rate limited")
	ErrNetwork      = errors.New("fetch: network error")
)

// Retryable reports whether err is a transient fetch failure.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetwork)
}

// Fetcher retrieves a thread snapshot for a source reference. Implementations
// must normalize comment text before returning and must not mutate any local
// state beyond the outbound call.
type Fetcher interface {
	Fetch(ctx context.Context, sourceRef string) (*types.ThreadSnapshot, error)
}

var (
	threadURLRe = regexp.MustCompile(`(?i)^https?://(?:www\.|old\.|new\.)?reddit\.com/r/[A-Za-z0-9_]+/comments/([a-z0-9]+)(?:/|$)`)
	shortURLRe  = regexp.MustCompile(`(?i)^https?://redd\.it/([a-z0-9]+)/?$`)
	postIDRe    = regexp.MustCompile(`^[a-z0-9]{4,10}$`)
)

// ParseSourceRef extracts the reddit post ID from a thread reference. It
// accepts full thread URLs, redd.it short links, and bare post IDs.
func ParseSourceRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if m := threadURLRe.FindStringSubmatch(ref); m != nil {
		return strings.ToLower(m[1]), nil
	}
	if m := shortURLRe.FindStringSubmatch(ref); m != nil {
		return strings.ToLower(m[1]), nil
	}
	if postIDRe.MatchString(ref) {
		return ref, nil
	}
	return "", fmt.Errorf("not a reddit thread reference: %q", ref)
}
