package fetch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"github.com/adityabisht-lab/reddit-video-generator/internal/types"
)

// minCommentLen filters out throwaway comments ("this", "lol") that make for
// unusable narration.
const minCommentLen = 10

// RedditFetcher fetches thread snapshots from the reddit API.
type RedditFetcher struct {
	client *reddit.Client
}

// NewRedditFetcher builds a fetcher from the REDDIT_CLIENT_ID,
// REDDIT_CLIENT_SECRET and REDDIT_USER_AGENT environment variables. Without
// credentials it falls back to the read-only API.
func NewRedditFetcher() (*RedditFetcher, error) {
	userAgent := os.Getenv("REDDIT_USER_AGENT")
	if userAgent == "" {
		userAgent = "RedditVideoGenerator/1.0"
	}

	clientID := os.Getenv("REDDIT_CLIENT_ID")
	clientSecret := os.Getenv("REDDIT_CLIENT_SECRET")

	var client *reddit.Client
	var err error
	if clientID != "" && clientSecret != "" {
		client, err = reddit.NewClient(
			reddit.Credentials{ID: clientID, Secret: clientSecret},
			reddit.WithUserAgent(userAgent),
			reddit.WithApplicationOnlyOAuth(true),
		)
	} else {
		log.Println("[fetch] REDDIT_CLIENT_ID/SECRET not set, using read-only reddit client")
		client, err = reddit.NewReadonlyClient(reddit.WithUserAgent(userAgent))
	}
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	return &RedditFetcher{client: client}, nil
}

// Fetch retrieves the thread for sourceRef and returns a normalized snapshot.
func (f *RedditFetcher) Fetch(ctx context.Context, sourceRef string) (*types.ThreadSnapshot, error) {
	postID, err := ParseSourceRef(sourceRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	pc, _, err := f.client.Post.Get(ctx, postID)
	if err != nil {
		return nil, classify(err)
	}

	snapshot := &types.ThreadSnapshot{
		Title: Clean(pc.Post.Title),
		Body:  Clean(pc.Post.Body),
	}
	for _, c := range pc.Comments {
		body := Clean(c.Body)
		if len(body) < minCommentLen {
			continue
		}
		snapshot.Comments = append(snapshot.Comments, types.Comment{
			ID:    c.ID,
			Body:  body,
			Score: c.Score,
		})
	}

	log.Printf("[fetch] %s: %q (%d eligible comments)", postID, snapshot.Title, len(snapshot.Comments))
	return snapshot, nil
}

// classify maps reddit API failures onto the fetch error taxonomy.
func classify(err error) error {
	var rateErr *reddit.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	var apiErr *reddit.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		switch apiErr.Response.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
