package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvhariharan/fedactor/models"
)

func backends(t *testing.T) map[string]Store {
	ldb, err := OpenLevelDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { ldb.Close() })

	return map[string]Store{
		"memory":  NewMemory(),
		"leveldb": ldb,
	}
}

func newRecord(actorID string) *models.ActorRecord {
	return &models.ActorRecord{
		Kind:       models.ActorTypeBlog,
		ActorID:    actorID,
		InstanceID: "inst-1",
		PublicKey:  "PEM",
	}
}

func TestActorStore(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec, err := s.Insert(ctx, newRecord("alice"))
			require.NoError(t, err)
			require.NotEmpty(t, rec.ID)

			got, ok, err := s.GetByID(ctx, rec.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "alice", got.ActorID)

			got, ok, err = s.GetByActorID(ctx, "inst-1", "alice")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, rec.ID, got.ID)

			_, ok, err = s.GetByActorID(ctx, "inst-2", "alice")
			require.NoError(t, err)
			assert.False(t, ok)

			_, ok, err = s.GetByID(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = s.Insert(ctx, newRecord("alice"))
			assert.ErrorIs(t, err, ErrDuplicate)
		})
	}
}

func TestUpdateFieldWriteOnce(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec, err := s.Insert(ctx, newRecord("bob"))
			require.NoError(t, err)

			_, ok, err := s.GetByAPURL(ctx, "https://example.com/~/bob")
			require.NoError(t, err)
			assert.False(t, ok)

			updated, err := s.UpdateField(ctx, rec.ID, models.FieldAPURL, "https://example.com/~/bob")
			require.NoError(t, err)
			assert.Equal(t, "https://example.com/~/bob", updated.APURL)

			got, ok, err := s.GetByAPURL(ctx, "https://example.com/~/bob")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, rec.ID, got.ID)

			// same value again is a no-op
			_, err = s.UpdateField(ctx, rec.ID, models.FieldAPURL, "https://example.com/~/bob")
			assert.NoError(t, err)

			_, err = s.UpdateField(ctx, rec.ID, models.FieldAPURL, "https://other.example/~/bob")
			assert.ErrorIs(t, err, ErrImmutableField)

			// metadata stays mutable
			_, err = s.UpdateField(ctx, rec.ID, models.FieldSummary, "first")
			require.NoError(t, err)
			updated, err = s.UpdateField(ctx, rec.ID, models.FieldSummary, "second")
			require.NoError(t, err)
			assert.Equal(t, "second", updated.Summary)

			_, err = s.UpdateField(ctx, "missing", models.FieldSummary, "x")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = s.UpdateField(ctx, rec.ID, models.Field("private_key"), "x")
			assert.Error(t, err)
		})
	}
}

func TestUpdateFieldDuplicateAPURL(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a, err := s.Insert(ctx, newRecord("a"))
			require.NoError(t, err)
			b, err := s.Insert(ctx, newRecord("b"))
			require.NoError(t, err)

			_, err = s.UpdateField(ctx, a.ID, models.FieldAPURL, "https://example.com/~/shared")
			require.NoError(t, err)
			_, err = s.UpdateField(ctx, b.ID, models.FieldAPURL, "https://example.com/~/shared")
			assert.ErrorIs(t, err, ErrDuplicate)
		})
	}
}

func TestConcurrentSameValueUpdates(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec, err := s.Insert(ctx, newRecord("carol"))
			require.NoError(t, err)

			var wg sync.WaitGroup
			errs := make([]error, 8)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = s.UpdateField(ctx, rec.ID, models.FieldInboxURL, "https://example.com/~/carol/inbox")
				}(i)
			}
			wg.Wait()

			for _, err := range errs {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInstanceStore(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			inst, err := s.InsertInstance(ctx, &models.Instance{Name: "Example", PublicDomain: "example.com", Local: true})
			require.NoError(t, err)

			got, ok, err := s.GetInstance(ctx, inst.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "example.com", got.PublicDomain)

			got, ok, err = s.GetInstanceByDomain(ctx, "example.com")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, inst.ID, got.ID)

			_, ok, err = s.GetInstance(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = s.InsertInstance(ctx, &models.Instance{PublicDomain: "example.com"})
			assert.ErrorIs(t, err, ErrDuplicate)
		})
	}
}

func TestLevelDBReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := OpenLevelDB(dir)
	require.NoError(t, err)
	rec, err := db.Insert(ctx, newRecord("dave"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenLevelDB(dir)
	require.NoError(t, err)
	defer db.Close()

	got, ok, err := db.GetByActorID(ctx, "inst-1", "dave")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.ID, got.ID)
}
