package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/beevik/guid"

	"github.com/cvhariharan/fedactor/models"
)

// Memory keeps records in process. Returned records are copies.
type Memory struct {
	mu        sync.RWMutex
	actors    map[string]*models.ActorRecord // id -> record
	bySlug    map[string]string              // instance/actor_id -> id
	byAPURL   map[string]string              // ap_url -> id
	instances map[string]*models.Instance
}

func NewMemory() *Memory {
	return &Memory{
		actors:    make(map[string]*models.ActorRecord),
		bySlug:    make(map[string]string),
		byAPURL:   make(map[string]string),
		instances: make(map[string]*models.Instance),
	}
}

func slugKey(instanceID, actorID string) string {
	return instanceID + "/" + actorID
}

func (m *Memory) Insert(ctx context.Context, rec *models.ActorRecord) (*models.ActorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *rec
	if c.ID == "" {
		c.ID = guid.NewString()
	}
	if _, exists := m.actors[c.ID]; exists {
		return nil, fmt.Errorf("%w: actor id %s", ErrDuplicate, c.ID)
	}
	sk := slugKey(c.InstanceID, c.ActorID)
	if _, exists := m.bySlug[sk]; exists {
		return nil, fmt.Errorf("%w: actor %s on instance %s", ErrDuplicate, c.ActorID, c.InstanceID)
	}
	if c.APURL != "" {
		if _, exists := m.byAPURL[c.APURL]; exists {
			return nil, fmt.Errorf("%w: ap_url %s", ErrDuplicate, c.APURL)
		}
		m.byAPURL[c.APURL] = c.ID
	}
	m.actors[c.ID] = &c
	m.bySlug[sk] = c.ID

	out := c
	return &out, nil
}

func (m *Memory) GetByID(ctx context.Context, id string) (*models.ActorRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookupLocked(id)
}

func (m *Memory) GetByActorID(ctx context.Context, instanceID, actorID string) (*models.ActorRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookupLocked(m.bySlug[slugKey(instanceID, actorID)])
}

func (m *Memory) GetByAPURL(ctx context.Context, apURL string) (*models.ActorRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookupLocked(m.byAPURL[apURL])
}

func (m *Memory) lookupLocked(id string) (*models.ActorRecord, bool, error) {
	rec, ok := m.actors[id]
	if !ok {
		return nil, false, nil
	}
	c := *rec
	return &c, true, nil
}

func (m *Memory) UpdateField(ctx context.Context, id string, field models.Field, value string) (*models.ActorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.actors[id]
	if !ok {
		return nil, fmt.Errorf("updating %s of actor %s: %w", field, id, ErrNotFound)
	}
	changed, err := checkUpdate(rec, field, value)
	if err != nil {
		return nil, fmt.Errorf("updating %s of actor %s: %w", field, rec.ActorID, err)
	}
	if changed {
		if field == models.FieldAPURL {
			if _, exists := m.byAPURL[value]; exists {
				return nil, fmt.Errorf("%w: ap_url %s", ErrDuplicate, value)
			}
			m.byAPURL[value] = id
		}
		if err := rec.Set(field, value); err != nil {
			return nil, err
		}
	}

	c := *rec
	return &c, nil
}

func (m *Memory) InsertInstance(ctx context.Context, inst *models.Instance) (*models.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *inst
	if c.ID == "" {
		c.ID = guid.NewString()
	}
	if _, exists := m.instances[c.ID]; exists {
		return nil, fmt.Errorf("%w: instance id %s", ErrDuplicate, c.ID)
	}
	for _, existing := range m.instances {
		if existing.PublicDomain == c.PublicDomain {
			return nil, fmt.Errorf("%w: instance domain %s", ErrDuplicate, c.PublicDomain)
		}
	}
	m.instances[c.ID] = &c

	out := c
	return &out, nil
}

func (m *Memory) GetInstance(ctx context.Context, id string) (*models.Instance, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.instances[id]
	if !ok {
		return nil, false, nil
	}
	c := *inst
	return &c, true, nil
}

func (m *Memory) GetInstanceByDomain(ctx context.Context, domain string) (*models.Instance, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, inst := range m.instances {
		if inst.PublicDomain == domain {
			c := *inst
			return &c, true, nil
		}
	}
	return nil, false, nil
}

func (m *Memory) Close() error { return nil }
