package federation

import (
	"context"
	"fmt"
	"strings"

	"github.com/cvhariharan/fedactor/models"
	"github.com/cvhariharan/fedactor/store"
)

// WebfingerSubject is acct:<actor id>@<instance domain>.
func WebfingerSubject(a models.Actor, inst *models.Instance) string {
	return fmt.Sprintf("acct:%s@%s", a.ActorID(), inst.PublicDomain)
}

func WebfingerAliases(a models.Actor) []string {
	return []string{a.APURL()}
}

// WebfingerLinks returns the three links of the discovery document. Peers
// read them by position as well as by rel, so the order is fixed.
func WebfingerLinks(a models.Actor) []models.Link {
	return []models.Link{
		{
			Rel:  models.RelProfilePage,
			Href: a.APURL(),
		},
		{
			Rel:  models.RelUpdatesFrom,
			Type: models.TypeAtom,
			Href: a.APURL() + "/feed.atom",
		},
		{
			Rel:  models.RelSelf,
			Type: models.TypeActivity,
			Href: a.APURL(),
		},
	}
}

// Webfinger builds the JRD document of a backfilled actor.
func Webfinger(a models.Actor, inst *models.Instance) (*models.WebFingerResp, error) {
	if a.APURL() == "" {
		return nil, fmt.Errorf("webfinger for %s: %w", a.ActorID(), ErrNotBackfilled)
	}
	return &models.WebFingerResp{
		Subject: WebfingerSubject(a, inst),
		Aliases: WebfingerAliases(a),
		Links:   WebfingerLinks(a),
	}, nil
}

// WebfingerResolver builds documents for actors, loading their instance.
type WebfingerResolver struct {
	instances store.InstanceStore
	metrics   *Metrics
}

func NewWebfingerResolver(instances store.InstanceStore, metrics *Metrics) *WebfingerResolver {
	return &WebfingerResolver{instances: instances, metrics: metrics}
}

func (r *WebfingerResolver) Resolve(ctx context.Context, a models.Actor) (*models.WebFingerResp, error) {
	inst, err := InstanceOf(ctx, r.instances, a)
	if err != nil {
		return nil, err
	}
	doc, err := Webfinger(a, inst)
	if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.WebfingerDocuments.Inc()
	}
	return doc, nil
}

// Account is the user@domain pair of an acct: resource.
type Account struct {
	User   string
	Domain string
}

func (a Account) String() string {
	return "acct:" + a.User + "@" + a.Domain
}

// ParseResource parses a webfinger resource such as acct:alice@example.com.
// The acct: scheme is optional.
func ParseResource(resource string) (Account, error) {
	if resource == "" {
		return Account{}, fmt.Errorf("%w: resource cannot be empty", ErrInvalidResource)
	}
	addr := strings.TrimPrefix(resource, "acct:")
	addr = strings.TrimPrefix(addr, "@")

	parts := strings.Split(addr, "@")
	if len(parts) != 2 {
		return Account{}, fmt.Errorf("%w: %q must contain exactly one @", ErrInvalidResource, resource)
	}
	if parts[0] == "" {
		return Account{}, fmt.Errorf("%w: user cannot be empty", ErrInvalidResource)
	}
	if parts[1] == "" {
		return Account{}, fmt.Errorf("%w: domain cannot be empty", ErrInvalidResource)
	}
	return Account{User: parts[0], Domain: strings.ToLower(parts[1])}, nil
}
