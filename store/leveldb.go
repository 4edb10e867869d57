package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/beevik/guid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/cvhariharan/fedactor/models"
)

// Key prefixes
const (
	actorKeyPrefix          = "actor_"       // id -> actor record
	actorSlugKeyPrefix      = "actorslug_"   // instance id + actor_id -> id
	actorURLKeyPrefix       = "actorurl_"    // ap_url -> id
	instanceKeyPrefix       = "instance_"    // id -> instance record
	instanceDomainKeyPrefix = "instancedom_" // public domain -> id
)

// LevelDB persists records in a goleveldb database.
type LevelDB struct {
	db *leveldb.DB
	// writeLock serialises read-modify-write sequences so that single
	// field updates are atomic.
	writeLock sync.Mutex
}

// OpenLevelDB opens (or creates) the database under dataDir.
func OpenLevelDB(dataDir string) (*LevelDB, error) {
	dbPath := filepath.Join(dataDir, "actors")

	options := &opt.Options{
		BlockCacheCapacity: 8 * 1024 * 1024,
		WriteBuffer:        4 * 1024 * 1024,
	}

	db, err := leveldb.OpenFile(dbPath, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open actor database: %w", err)
	}

	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

func (l *LevelDB) Insert(ctx context.Context, rec *models.ActorRecord) (*models.ActorRecord, error) {
	l.writeLock.Lock()
	defer l.writeLock.Unlock()

	c := *rec
	if c.ID == "" {
		c.ID = guid.NewString()
	}

	actorKey := []byte(actorKeyPrefix + c.ID)
	slugIdx := []byte(actorSlugKeyPrefix + slugKey(c.InstanceID, c.ActorID))
	if err := l.ensureAbsent(actorKey, "actor id "+c.ID); err != nil {
		return nil, err
	}
	if err := l.ensureAbsent(slugIdx, fmt.Sprintf("actor %s on instance %s", c.ActorID, c.InstanceID)); err != nil {
		return nil, err
	}

	data, err := json.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal actor: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put(actorKey, data)
	batch.Put(slugIdx, []byte(c.ID))
	if c.APURL != "" {
		urlKey := []byte(actorURLKeyPrefix + c.APURL)
		if err := l.ensureAbsent(urlKey, "ap_url "+c.APURL); err != nil {
			return nil, err
		}
		batch.Put(urlKey, []byte(c.ID))
	}

	if err := l.db.Write(batch, nil); err != nil {
		return nil, fmt.Errorf("failed to save actor %s: %w", c.ActorID, err)
	}
	return &c, nil
}

func (l *LevelDB) ensureAbsent(key []byte, what string) error {
	exists, err := l.db.Has(key, nil)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", what, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, what)
	}
	return nil
}

func (l *LevelDB) GetByID(ctx context.Context, id string) (*models.ActorRecord, bool, error) {
	data, err := l.db.Get([]byte(actorKeyPrefix+id), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to retrieve actor %s: %w", id, err)
	}

	var rec models.ActorRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal actor %s: %w", id, err)
	}
	return &rec, true, nil
}

func (l *LevelDB) GetByActorID(ctx context.Context, instanceID, actorID string) (*models.ActorRecord, bool, error) {
	return l.getByIndex(ctx, actorSlugKeyPrefix+slugKey(instanceID, actorID))
}

func (l *LevelDB) GetByAPURL(ctx context.Context, apURL string) (*models.ActorRecord, bool, error) {
	return l.getByIndex(ctx, actorURLKeyPrefix+apURL)
}

func (l *LevelDB) getByIndex(ctx context.Context, key string) (*models.ActorRecord, bool, error) {
	id, err := l.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read index %s: %w", key, err)
	}
	return l.GetByID(ctx, string(id))
}

func (l *LevelDB) UpdateField(ctx context.Context, id string, field models.Field, value string) (*models.ActorRecord, error) {
	l.writeLock.Lock()
	defer l.writeLock.Unlock()

	rec, ok, err := l.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("updating %s of actor %s: %w", field, id, ErrNotFound)
	}

	changed, err := checkUpdate(rec, field, value)
	if err != nil {
		return nil, fmt.Errorf("updating %s of actor %s: %w", field, rec.ActorID, err)
	}
	if !changed {
		return rec, nil
	}
	if err := rec.Set(field, value); err != nil {
		return nil, err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal actor: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put([]byte(actorKeyPrefix+id), data)
	if field == models.FieldAPURL {
		urlKey := []byte(actorURLKeyPrefix + value)
		if err := l.ensureAbsent(urlKey, "ap_url "+value); err != nil {
			return nil, err
		}
		batch.Put(urlKey, []byte(id))
	}

	if err := l.db.Write(batch, nil); err != nil {
		return nil, fmt.Errorf("failed to update %s of actor %s: %w", field, rec.ActorID, err)
	}
	return rec, nil
}

func (l *LevelDB) InsertInstance(ctx context.Context, inst *models.Instance) (*models.Instance, error) {
	l.writeLock.Lock()
	defer l.writeLock.Unlock()

	c := *inst
	if c.ID == "" {
		c.ID = guid.NewString()
	}

	instKey := []byte(instanceKeyPrefix + c.ID)
	domainKey := []byte(instanceDomainKeyPrefix + c.PublicDomain)
	if err := l.ensureAbsent(instKey, "instance id "+c.ID); err != nil {
		return nil, err
	}
	if err := l.ensureAbsent(domainKey, "instance domain "+c.PublicDomain); err != nil {
		return nil, err
	}

	data, err := json.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal instance: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put(instKey, data)
	batch.Put(domainKey, []byte(c.ID))
	if err := l.db.Write(batch, nil); err != nil {
		return nil, fmt.Errorf("failed to save instance %s: %w", c.PublicDomain, err)
	}
	return &c, nil
}

func (l *LevelDB) GetInstance(ctx context.Context, id string) (*models.Instance, bool, error) {
	data, err := l.db.Get([]byte(instanceKeyPrefix+id), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to retrieve instance %s: %w", id, err)
	}

	var inst models.Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal instance %s: %w", id, err)
	}
	return &inst, true, nil
}

func (l *LevelDB) GetInstanceByDomain(ctx context.Context, domain string) (*models.Instance, bool, error) {
	id, err := l.db.Get([]byte(instanceDomainKeyPrefix+domain), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read instance domain %s: %w", domain, err)
	}
	return l.GetInstance(ctx, string(id))
}
