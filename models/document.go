package models

// ActorDocument is the ActivityPub representation served at an actor's ap_url.
type ActorDocument struct {
	Context           []string  `json:"@context"`
	ID                string    `json:"id"`
	Type              string    `json:"type"`
	PreferredUsername string    `json:"preferredUsername"`
	Name              string    `json:"name,omitempty"`
	Summary           string    `json:"summary,omitempty"`
	Inbox             string    `json:"inbox"`
	Outbox            string    `json:"outbox"`
	PubKey            PublicKey `json:"publicKey"`
}

type PublicKey struct {
	ID        string `json:"id"`
	Owner     string `json:"owner"`
	PubKeyPem string `json:"publicKeyPem"`
}

// NewActorDocument renders a backfilled actor.
func NewActorDocument(a Actor) *ActorDocument {
	return &ActorDocument{
		Context: []string{
			"https://www.w3.org/ns/activitystreams",
			"https://w3id.org/security/v1",
		},
		ID:                a.APURL(),
		Type:              a.ActorType().APType(),
		PreferredUsername: a.ActorID(),
		Name:              a.DisplayName(),
		Summary:           a.Summary(),
		Inbox:             a.InboxURL(),
		Outbox:            a.OutboxURL(),
		PubKey: PublicKey{
			ID:        a.KeyID(),
			Owner:     a.APURL(),
			PubKeyPem: a.Keys().PublicPEM(),
		},
	}
}
