package federation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cvhariharan/fedactor/models"
	"github.com/cvhariharan/fedactor/store"
)

// Service ties actor creation, lookup and backfill together for the HTTP layer.
type Service struct {
	actors    store.ActorStore
	instances store.InstanceStore
	backfill  *Backfiller
	webfinger *WebfingerResolver
	logger    *zap.Logger
	metrics   *Metrics
}

func NewService(actors store.ActorStore, instances store.InstanceStore, logger *zap.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		actors:    actors,
		instances: instances,
		backfill:  NewBackfiller(actors, instances, logger.Named("backfill"), metrics),
		webfinger: NewWebfingerResolver(instances, metrics),
		logger:    logger,
		metrics:   metrics,
	}
}

// CreateLocal generates keys for a new local actor, stores it and fills in
// its derived URLs.
func (s *Service) CreateLocal(ctx context.Context, kind models.ActorType, instanceID, actorID, displayName, summary string) (models.Actor, error) {
	rec, err := models.NewLocalActor(kind, actorID, displayName, summary, instanceID)
	if err != nil {
		return nil, err
	}
	rec, err = s.actors.Insert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("storing actor %s: %w", actorID, err)
	}
	a, err := models.AsActor(rec)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ActorsCreated.WithLabelValues(string(kind)).Inc()
	}
	s.logger.Info("Created local actor",
		zap.String("actor_id", actorID),
		zap.String("type", string(kind)))

	return s.backfill.Backfill(ctx, a)
}

// Lookup finds an actor of an instance by its actor id, backfilling it on
// first use.
func (s *Service) Lookup(ctx context.Context, instanceID, actorID string) (models.Actor, bool, error) {
	rec, ok, err := s.actors.GetByActorID(ctx, instanceID, actorID)
	if err != nil || !ok {
		return nil, false, err
	}
	a, err := models.AsActor(rec)
	if err != nil {
		return nil, false, err
	}
	if a, err = s.backfill.Backfill(ctx, a); err != nil {
		return nil, false, err
	}
	return a, true, nil
}

// Webfinger builds the discovery document for a local account. Accounts of
// remote instances are reported as not found.
func (s *Service) Webfinger(ctx context.Context, acct Account) (*models.WebFingerResp, bool, error) {
	inst, ok, err := s.instances.GetInstanceByDomain(ctx, acct.Domain)
	if err != nil || !ok || !inst.Local {
		return nil, false, err
	}
	a, ok, err := s.Lookup(ctx, inst.ID, acct.User)
	if err != nil || !ok {
		return nil, false, err
	}
	doc, err := s.webfinger.Resolve(ctx, a)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// ImportRemote stores an actor learned from another instance. An actor
// already known under the same ap_url is returned unchanged.
func (s *Service) ImportRemote(ctx context.Context, rec *models.ActorRecord, domain string) (models.Actor, error) {
	if rec.Local() {
		return nil, fmt.Errorf("importing %s: remote actors cannot carry a private key", rec.APURL)
	}
	if rec.APURL == "" || rec.InboxURL == "" {
		return nil, fmt.Errorf("importing %s: %w", rec.ActorID, ErrIncompleteRemote)
	}
	if existing, ok, err := ResolveByURL(ctx, s.actors, rec.APURL); err != nil || ok {
		return existing, err
	}

	inst, ok, err := s.instances.GetInstanceByDomain(ctx, domain)
	if err != nil {
		return nil, err
	}
	if !ok {
		inst, err = s.instances.InsertInstance(ctx, &models.Instance{Name: domain, PublicDomain: domain})
		if errors.Is(err, store.ErrDuplicate) {
			// lost a race with another import from the same domain
			inst, ok, err = s.instances.GetInstanceByDomain(ctx, domain)
			if err == nil && !ok {
				err = fmt.Errorf("instance %s: %w", domain, store.ErrNotFound)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("importing %s: %w", rec.APURL, err)
		}
	}

	c := *rec
	c.InstanceID = inst.ID
	stored, err := s.actors.Insert(ctx, &c)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", rec.APURL, err)
	}
	if s.metrics != nil {
		s.metrics.RemoteActorsImported.Inc()
	}
	s.logger.Info("Imported remote actor",
		zap.String("actor_id", c.ActorID),
		zap.String("ap_url", c.APURL))
	return models.AsActor(stored)
}
