package types

import "time"

// Status is the lifecycle state of a Job. Transitions only move forward:
// pending → fetching → composing → rendering → completed, with error
// reachable from any in-flight state. completed and error are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFetching  Status = "fetching"
	StatusComposing Status = "composing"
	StatusRendering Status = "rendering"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// statusRank orders statuses along the pipeline. Higher rank = later stage.
var statusRank = map[Status]int{
	StatusPending:   0,
	StatusFetching:  1,
	StatusComposing: 2,
	StatusRendering: 3,
	StatusCompleted: 4,
	StatusError:     4,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no further transitions may occur from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanAdvanceTo reports whether a transition from s to next is forward-legal.
func (s Status) CanAdvanceTo(next Status) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	if next == StatusError {
		// error is reachable from any in-flight stage, not from pending
		return s != StatusPending
	}
	return statusRank[next] == statusRank[s]+1
}

// Job is one request to turn a reddit thread into a narrated video.
type Job struct {
	ID          string    `json:"id"`
	OwnerID     int64     `json:"-"`
	SourceRef   string    `json:"source_ref"`
	MaxComments int       `json:"max_comments"`
	Title       string    `json:"title,omitempty"`
	Status      Status    `json:"status"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	ArtifactRef string    `json:"artifact_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Comment is one ranked comment from a fetched thread.
type Comment struct {
	ID    string `json:"id"`
	Body  string `json:"body"`
	Score int    `json:"score"`
}

// ThreadSnapshot holds the fetched thread content for one job. It lives only
// for the duration of that job's processing and is never persisted.
type ThreadSnapshot struct {
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Comments []Comment `json:"comments"`
}

// ScriptLine is one narration line with its origin tag. Index 0 is the post
// itself; comment lines carry the 1-based rank of the selected comment.
type ScriptLine struct {
	Index  int    `json:"index"`
	Origin string `json:"origin"` // "post" or "comment-N"
	Text   string `json:"text"`
}

// Script is the ordered narration derived from a ThreadSnapshot.
type Script struct {
	Title string       `json:"title"`
	Lines []ScriptLine `json:"lines"`
}
