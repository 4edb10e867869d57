// Package discovery resolves actors hosted on other instances.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/cvhariharan/fedactor/federation"
	"github.com/cvhariharan/fedactor/keys"
	"github.com/cvhariharan/fedactor/models"
)

var ErrNoSelfLink = errors.New("webfinger document has no self link")

// Client fetches WebFinger and actor documents from remote instances.
type Client struct {
	r      *resty.Client
	scheme string
	logger *zap.Logger
}

type Option func(*Client)

// WithScheme overrides https, for talking to test servers.
func WithScheme(scheme string) Option {
	return func(c *Client) { c.scheme = scheme }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.r.SetTimeout(d) }
}

func New(logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		r:      resty.New().SetTimeout(10 * time.Second),
		scheme: "https",
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// remoteActor is the subset of an actor document we read. @context is
// ignored since peers send it in several shapes.
type remoteActor struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	PreferredUsername string `json:"preferredUsername"`
	Name              string `json:"name"`
	Summary           string `json:"summary"`
	Inbox             string `json:"inbox"`
	Outbox            string `json:"outbox"`
	PublicKey         struct {
		ID           string `json:"id"`
		Owner        string `json:"owner"`
		PublicKeyPem string `json:"publicKeyPem"`
	} `json:"publicKey"`
}

// Webfinger fetches the discovery document of acct from its own domain.
func (c *Client) Webfinger(ctx context.Context, acct federation.Account) (*models.WebFingerResp, error) {
	endpoint := c.scheme + "://" + acct.Domain + "/.well-known/webfinger"
	resp, err := c.r.R().
		SetContext(ctx).
		SetHeader("Accept", models.TypeJRD).
		SetQueryParam("resource", acct.String()).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("webfinger %s: %w", acct, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("webfinger %s: %s", acct, resp.Status())
	}

	var doc models.WebFingerResp
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("webfinger %s: decoding: %w", acct, err)
	}
	return &doc, nil
}

// FetchActor loads an actor document and turns it into a remote record.
// The record has no instance id yet.
func (c *Client) FetchActor(ctx context.Context, actorURL string) (*models.ActorRecord, error) {
	resp, err := c.r.R().
		SetContext(ctx).
		SetHeader("Accept", models.TypeActivity).
		Get(actorURL)
	if err != nil {
		return nil, fmt.Errorf("fetching actor %s: %w", actorURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching actor %s: %s", actorURL, resp.Status())
	}
	c.logger.Debug("Fetched actor", zap.String("url", actorURL), zap.Int("status", resp.StatusCode()))

	var doc remoteActor
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("fetching actor %s: decoding: %w", actorURL, err)
	}
	if doc.ID == "" || doc.PreferredUsername == "" {
		return nil, fmt.Errorf("actor %s: document lacks id or preferredUsername", actorURL)
	}
	if doc.Inbox == "" {
		return nil, fmt.Errorf("actor %s: %w", doc.ID, federation.ErrIncompleteRemote)
	}
	if doc.PublicKey.Owner != doc.ID {
		return nil, fmt.Errorf("actor %s: key owner %q does not match id", doc.ID, doc.PublicKey.Owner)
	}
	if _, err := keys.ParsePublicKey(doc.PublicKey.PublicKeyPem); err != nil {
		return nil, fmt.Errorf("actor %s: %w", doc.ID, err)
	}

	kind := models.ActorTypePerson
	if doc.Type == models.ActorTypeBlog.APType() {
		kind = models.ActorTypeBlog
	}
	return models.NewRemoteActor(kind, doc.PreferredUsername, doc.Name, doc.Summary, "",
		doc.ID, doc.Inbox, doc.Outbox, doc.PublicKey.PublicKeyPem)
}

// Discover resolves acct through WebFinger and fetches its actor document.
func (c *Client) Discover(ctx context.Context, acct federation.Account) (*models.ActorRecord, error) {
	doc, err := c.Webfinger(ctx, acct)
	if err != nil {
		return nil, err
	}
	self, ok := doc.Self()
	if !ok {
		return nil, fmt.Errorf("%s: %w", acct, ErrNoSelfLink)
	}
	return c.FetchActor(ctx, self)
}

// Import discovers acct and stores it as a remote actor.
func (c *Client) Import(ctx context.Context, svc *federation.Service, acct federation.Account) (models.Actor, error) {
	rec, err := c.Discover(ctx, acct)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(rec.APURL)
	if err != nil {
		return nil, fmt.Errorf("actor %s: %w", rec.APURL, err)
	}
	return svc.ImportRemote(ctx, rec, u.Host)
}
