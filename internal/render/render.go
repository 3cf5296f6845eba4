package render

import (
	"context"
	"errors"

	"github.com/adityabisht-lab/reddit-video-generator/internal/types"
)

// ErrRender marks a terminal rendering failure. Rendering the same script
// fails the same way again, so the orchestrator never retries it.
var ErrRender = errors.New("render: failed")

// Renderer turns a script into a persisted video artifact and returns its
// reference. Any implementation honoring this contract can be plugged in.
type Renderer interface {
	Render(ctx context.Context, jobID string, script *types.Script) (string, error)
}
