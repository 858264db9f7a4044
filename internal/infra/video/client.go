// Package video provides metadata lookup for requested media.
package video

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kkdai/youtube/v2"
)

// Errors
var (
	ErrVideoNotFound = errors.New("video not found")
	ErrNoDuration    = errors.New("video has no duration")
)

// Info holds the resolved metadata for a requested video.
type Info struct {
	VideoID  string        // Source media identifier
	Title    string        // Video title
	Duration time.Duration // Video duration
}

// Client resolves video metadata from YouTube.
type Client struct {
	yt youtube.Client
}

// New creates a new metadata client.
func New() *Client {
	return &Client{yt: youtube.Client{}}
}

// Resolve looks up the title and duration for a video ID or URL.
// Videos without a known duration (live streams, premieres) are rejected
// because the queue needs a positive duration.
func (c *Client) Resolve(ctx context.Context, idOrURL string) (Info, error) {
	v, err := c.yt.GetVideoContext(ctx, idOrURL)
	if err != nil {
		return Info{}, errors.Mark(errors.Wrapf(err, "resolving %s", idOrURL), ErrVideoNotFound)
	}

	if v.Duration <= 0 {
		return Info{}, errors.Wrapf(ErrNoDuration, "id=%s", v.ID)
	}

	return Info{
		VideoID:  v.ID,
		Title:    v.Title,
		Duration: v.Duration,
	}, nil
}
