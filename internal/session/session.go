package session

import (
    "context"
    "errors"
    "time"

    "github.com/local/chaptersplit/internal/chapter"
)

// ErrNotFound is returned when a session ID is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Session is the reviewable state of one loaded document: where it came
// from, where the working copy lives, and the currently detected chapters.
type Session struct {
    ID         string             `json:"id"`
    SourceRef  string             `json:"source_ref"`
    LocalPath  string             `json:"local_path"`
    TempFile   bool               `json:"temp_file"`
    PageCount  int                `json:"page_count"`
    Strategy   string             `json:"strategy,omitempty"`
    Boundaries []chapter.Boundary `json:"boundaries,omitempty"`
    ExportDir  string             `json:"export_dir,omitempty"`
    CreatedAt  time.Time          `json:"created_at"`
    UpdatedAt  time.Time          `json:"updated_at"`
}

// Store persists sessions across requests. Open document handles are kept
// in-process by the orchestrator; the store holds everything re-openable.
type Store interface {
    Put(ctx context.Context, s *Session) error
    Get(ctx context.Context, id string) (*Session, error)
    Delete(ctx context.Context, id string) error
}
