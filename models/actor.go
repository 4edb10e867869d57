package models

import (
	"fmt"
	"time"

	"github.com/beevik/guid"

	"github.com/cvhariharan/fedactor/keys"
)

// ActorType tags the concrete kind behind an Actor.
type ActorType string

const (
	ActorTypeBlog   ActorType = "blog"
	ActorTypePerson ActorType = "person"
)

const (
	BlogBoxPrefix   = "~"
	PersonBoxPrefix = "@"
)

// APType is the ActivityStreams type the kind is published as.
func (t ActorType) APType() string {
	switch t {
	case ActorTypeBlog:
		return "Group"
	case ActorTypePerson:
		return "Person"
	}
	return ""
}

// Field names a column of an actor record that can be updated in place.
type Field string

const (
	FieldAPURL       Field = "ap_url"
	FieldInboxURL    Field = "inbox_url"
	FieldOutboxURL   Field = "outbox_url"
	FieldDisplayName Field = "display_name"
	FieldSummary     Field = "summary"
)

// Derived reports whether the field is computed by backfill and write-once.
func (f Field) Derived() bool {
	return f == FieldAPURL || f == FieldInboxURL || f == FieldOutboxURL
}

// Actor is implemented by every kind of entity taking part in federation.
// Federation code depends on this interface only.
type Actor interface {
	RecordID() string
	ActorID() string
	DisplayName() string
	Summary() string
	InstanceID() string
	ActorType() ActorType
	// BoxPrefix separates the URL namespace of this kind from the others.
	BoxPrefix() string
	APURL() string
	InboxURL() string
	OutboxURL() string
	Keys() keys.Material

	// KeyID is the id remote peers fetch the public key by.
	KeyID() string
	Sign(payload []byte) ([]byte, error)
}

// ActorRecord is the stored form shared by all actor kinds.
type ActorRecord struct {
	ID           string    `json:"id"`
	Kind         ActorType `json:"kind"`
	ActorID      string    `json:"actor_id"`
	DisplayName  string    `json:"display_name"`
	Summary      string    `json:"summary"`
	InstanceID   string    `json:"instance_id"`
	APURL        string    `json:"ap_url"`
	InboxURL     string    `json:"inbox_url"`
	OutboxURL    string    `json:"outbox_url"`
	PublicKey    string    `json:"public_key"`
	PrivateKey   string    `json:"private_key,omitempty"`
	CreationDate time.Time `json:"creation_date"`
}

// Get returns the value of an updatable field.
func (r *ActorRecord) Get(f Field) (string, error) {
	switch f {
	case FieldAPURL:
		return r.APURL, nil
	case FieldInboxURL:
		return r.InboxURL, nil
	case FieldOutboxURL:
		return r.OutboxURL, nil
	case FieldDisplayName:
		return r.DisplayName, nil
	case FieldSummary:
		return r.Summary, nil
	}
	return "", fmt.Errorf("unknown field %q", f)
}

// Set assigns an updatable field.
func (r *ActorRecord) Set(f Field, value string) error {
	switch f {
	case FieldAPURL:
		r.APURL = value
	case FieldInboxURL:
		r.InboxURL = value
	case FieldOutboxURL:
		r.OutboxURL = value
	case FieldDisplayName:
		r.DisplayName = value
	case FieldSummary:
		r.Summary = value
	default:
		return fmt.Errorf("unknown field %q", f)
	}
	return nil
}

// Local reports whether the actor is hosted here, i.e. owns a private key.
func (r *ActorRecord) Local() bool {
	return r.PrivateKey != ""
}

// NewLocalActor builds a record for an actor hosted on this instance with a
// fresh keypair. Derived URLs are left empty until backfill.
func NewLocalActor(kind ActorType, actorID, displayName, summary, instanceID string) (*ActorRecord, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	k, err := keys.GenerateLocalKeypair()
	if err != nil {
		return nil, fmt.Errorf("creating actor %s: %w", actorID, err)
	}
	return &ActorRecord{
		ID:           guid.NewString(),
		Kind:         kind,
		ActorID:      actorID,
		DisplayName:  displayName,
		Summary:      summary,
		InstanceID:   instanceID,
		PublicKey:    k.Public,
		PrivateKey:   k.Private,
		CreationDate: time.Now().UTC(),
	}, nil
}

// NewRemoteActor builds a record for an actor discovered on another instance.
// Remote actors never carry a private key.
func NewRemoteActor(kind ActorType, actorID, displayName, summary, instanceID, apURL, inboxURL, outboxURL, publicKey string) (*ActorRecord, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	return &ActorRecord{
		ID:           guid.NewString(),
		Kind:         kind,
		ActorID:      actorID,
		DisplayName:  displayName,
		Summary:      summary,
		InstanceID:   instanceID,
		APURL:        apURL,
		InboxURL:     inboxURL,
		OutboxURL:    outboxURL,
		PublicKey:    publicKey,
		CreationDate: time.Now().UTC(),
	}, nil
}

func checkKind(kind ActorType) error {
	if kind.APType() == "" {
		return fmt.Errorf("unknown actor type %q", kind)
	}
	return nil
}

// AsActor wraps a stored record in the Actor implementation of its kind.
func AsActor(r *ActorRecord) (Actor, error) {
	switch r.Kind {
	case ActorTypeBlog:
		return &Blog{record{r}}, nil
	case ActorTypePerson:
		return &Person{record{r}}, nil
	}
	return nil, fmt.Errorf("actor %s: unknown actor type %q", r.ActorID, r.Kind)
}

// record carries the accessors every kind shares.
type record struct {
	r *ActorRecord
}

func (a record) Record() *ActorRecord { return a.r }
func (a record) RecordID() string     { return a.r.ID }
func (a record) ActorID() string      { return a.r.ActorID }
func (a record) DisplayName() string  { return a.r.DisplayName }
func (a record) Summary() string      { return a.r.Summary }
func (a record) InstanceID() string   { return a.r.InstanceID }
func (a record) APURL() string        { return a.r.APURL }
func (a record) InboxURL() string     { return a.r.InboxURL }
func (a record) OutboxURL() string    { return a.r.OutboxURL }
func (a record) Keys() keys.Material  { return keys.FromPEM(a.r.PublicKey, a.r.PrivateKey) }

func (a record) KeyID() string {
	return a.r.APURL + "#main-key"
}

func (a record) Sign(payload []byte) ([]byte, error) {
	local, ok := a.Keys().(keys.LocalKeys)
	if !ok {
		return nil, fmt.Errorf("signing as %s: %w", a.r.ActorID, keys.ErrNoPrivateKey)
	}
	sig, err := local.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("signing as %s: %w", a.r.ActorID, err)
	}
	return sig, nil
}

// Blog is a publication that federates as a Group.
type Blog struct {
	record
}

func (b *Blog) ActorType() ActorType { return ActorTypeBlog }
func (b *Blog) BoxPrefix() string    { return BlogBoxPrefix }

// Title is the blog's display name.
func (b *Blog) Title() string { return b.r.DisplayName }

// Person is a user profile.
type Person struct {
	record
}

func (p *Person) ActorType() ActorType { return ActorTypePerson }
func (p *Person) BoxPrefix() string    { return PersonBoxPrefix }
