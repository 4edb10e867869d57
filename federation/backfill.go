package federation

import (
	"context"

	"go.uber.org/zap"

	"github.com/cvhariharan/fedactor/keys"
	"github.com/cvhariharan/fedactor/models"
	"github.com/cvhariharan/fedactor/store"
)

// backfillOrder is the order derived fields are checked in.
var backfillOrder = []models.Field{
	models.FieldOutboxURL,
	models.FieldInboxURL,
	models.FieldAPURL,
}

// Backfiller fills the derived URLs of actors stored without them.
type Backfiller struct {
	actors    store.ActorStore
	instances store.InstanceStore
	logger    *zap.Logger
	metrics   *Metrics
}

func NewBackfiller(actors store.ActorStore, instances store.InstanceStore, logger *zap.Logger, metrics *Metrics) *Backfiller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backfiller{
		actors:    actors,
		instances: instances,
		logger:    logger,
		metrics:   metrics,
	}
}

// Backfill computes and persists every derived URL that is still empty and
// returns the updated actor. Fields already set are left alone, so calling it
// again, or from two goroutines at once, converges on the same values.
//
// Only actors of the local instance are backfilled. The URLs of a remote
// actor are whatever its home server published and are returned as is.
func (b *Backfiller) Backfill(ctx context.Context, a models.Actor) (models.Actor, error) {
	if _, remote := a.Keys().(keys.RemoteKey); remote {
		return a, nil
	}
	current := map[models.Field]string{
		models.FieldOutboxURL: a.OutboxURL(),
		models.FieldInboxURL:  a.InboxURL(),
		models.FieldAPURL:     a.APURL(),
	}
	if current[models.FieldOutboxURL] != "" && current[models.FieldInboxURL] != "" && current[models.FieldAPURL] != "" {
		return a, nil
	}

	inst, err := InstanceOf(ctx, b.instances, a)
	if err != nil {
		return nil, err
	}
	if !inst.Local {
		return a, nil
	}

	updated := a
	for _, field := range backfillOrder {
		if current[field] != "" {
			continue
		}
		value := derivedURL(inst, a, field)
		rec, err := b.actors.UpdateField(ctx, a.RecordID(), field, value)
		if err != nil {
			if b.metrics != nil {
				b.metrics.BackfillFailures.Inc()
			}
			b.logger.Error("Backfill failed",
				zap.String("actor_id", a.ActorID()),
				zap.String("field", string(field)),
				zap.Error(err))
			return nil, &BackfillError{ActorID: a.ActorID(), Field: field, Err: err}
		}
		if updated, err = models.AsActor(rec); err != nil {
			return nil, err
		}
		if b.metrics != nil {
			b.metrics.BackfilledFields.WithLabelValues(string(field)).Inc()
		}
		b.logger.Debug("Backfilled field",
			zap.String("actor_id", a.ActorID()),
			zap.String("field", string(field)),
			zap.String("value", value))
	}
	return updated, nil
}
