package federation

import (
	"context"
	"fmt"

	"github.com/cvhariharan/fedactor/models"
	"github.com/cvhariharan/fedactor/store"
)

// InstanceOf loads the instance an actor belongs to. A missing instance is
// reported as ErrInstanceMissing.
func InstanceOf(ctx context.Context, instances store.InstanceStore, a models.Actor) (*models.Instance, error) {
	inst, ok, err := instances.GetInstance(ctx, a.InstanceID())
	if err != nil {
		return nil, fmt.Errorf("loading instance of actor %s: %w", a.ActorID(), err)
	}
	if !ok {
		return nil, fmt.Errorf("actor %s references instance %s: %w", a.ActorID(), a.InstanceID(), ErrInstanceMissing)
	}
	return inst, nil
}

// ResolveByURL finds the actor whose canonical id is exactly url.
func ResolveByURL(ctx context.Context, actors store.ActorStore, url string) (models.Actor, bool, error) {
	rec, ok, err := actors.GetByAPURL(ctx, url)
	if err != nil || !ok {
		return nil, false, err
	}
	a, err := models.AsActor(rec)
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

// Resolve is ResolveByURL restricted to one actor kind, e.g. Resolve[*models.Blog].
func Resolve[T models.Actor](ctx context.Context, actors store.ActorStore, url string) (T, bool, error) {
	var zero T
	a, ok, err := ResolveByURL(ctx, actors, url)
	if err != nil || !ok {
		return zero, false, err
	}
	typed, ok := a.(T)
	if !ok {
		return zero, false, nil
	}
	return typed, true, nil
}
