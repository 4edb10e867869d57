package federation

import (
	"errors"
	"fmt"

	"github.com/cvhariharan/fedactor/models"
)

var (
	// ErrInstanceMissing means an actor references an instance that does not
	// exist, which is a data-integrity fault.
	ErrInstanceMissing = errors.New("instance record missing")
	ErrNotBackfilled   = errors.New("actor has no ap_url yet")
	ErrInvalidResource = errors.New("invalid webfinger resource")
	// ErrIncompleteRemote rejects remote actors published without an id or
	// inbox. Remote URLs are never derived locally.
	ErrIncompleteRemote = errors.New("remote actor lacks ap_url or inbox")
)

// BackfillError reports which derived field of which actor failed to persist.
type BackfillError struct {
	ActorID string
	Field   models.Field
	Err     error
}

func (e *BackfillError) Error() string {
	return fmt.Sprintf("backfilling %s of actor %s: %v", e.Field, e.ActorID, e.Err)
}

func (e *BackfillError) Unwrap() error { return e.Err }
