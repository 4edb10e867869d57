package federation

import (
	"github.com/cvhariharan/fedactor/models"
)

// ActorURL is the canonical id of an actor: <base>/<box prefix>/<actor id>.
func ActorURL(inst *models.Instance, boxPrefix, actorID string) string {
	return inst.BaseURL() + "/" + boxPrefix + "/" + actorID
}

// BoxURL is a named endpoint below an actor's canonical id.
func BoxURL(inst *models.Instance, boxPrefix, actorID, box string) string {
	return ActorURL(inst, boxPrefix, actorID) + "/" + box
}

// derivedURL computes the value backfill stores for a derived field.
func derivedURL(inst *models.Instance, a models.Actor, f models.Field) string {
	switch f {
	case models.FieldInboxURL:
		return BoxURL(inst, a.BoxPrefix(), a.ActorID(), "inbox")
	case models.FieldOutboxURL:
		return BoxURL(inst, a.BoxPrefix(), a.ActorID(), "outbox")
	}
	return ActorURL(inst, a.BoxPrefix(), a.ActorID())
}
