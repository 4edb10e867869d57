// Package store persists actor and instance records.
package store

import (
	"context"
	"errors"

	"github.com/cvhariharan/fedactor/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate record")
	ErrImmutableField = errors.New("field is already set")
)

// ActorStore is the storage collaborator for actor records. Lookups report
// absence through the bool, not through an error.
type ActorStore interface {
	Insert(ctx context.Context, rec *models.ActorRecord) (*models.ActorRecord, error)
	GetByID(ctx context.Context, id string) (*models.ActorRecord, bool, error)
	GetByActorID(ctx context.Context, instanceID, actorID string) (*models.ActorRecord, bool, error)
	GetByAPURL(ctx context.Context, apURL string) (*models.ActorRecord, bool, error)
	// UpdateField atomically sets one field and returns the updated record.
	// Derived URL fields can only go from empty to set; rewriting the same
	// value succeeds.
	UpdateField(ctx context.Context, id string, field models.Field, value string) (*models.ActorRecord, error)
}

// InstanceStore holds the federation domains actors belong to.
type InstanceStore interface {
	InsertInstance(ctx context.Context, inst *models.Instance) (*models.Instance, error)
	GetInstance(ctx context.Context, id string) (*models.Instance, bool, error)
	GetInstanceByDomain(ctx context.Context, domain string) (*models.Instance, bool, error)
}

// Store is implemented by the memory and leveldb backends.
type Store interface {
	ActorStore
	InstanceStore
	Close() error
}

// checkUpdate enforces the write-once rule for derived fields.
func checkUpdate(rec *models.ActorRecord, field models.Field, value string) (changed bool, err error) {
	current, err := rec.Get(field)
	if err != nil {
		return false, err
	}
	if current == value {
		return false, nil
	}
	if field.Derived() && current != "" {
		return false, ErrImmutableField
	}
	return true, nil
}
