package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cvhariharan/fedactor/federation"
	"github.com/cvhariharan/fedactor/keys"
	"github.com/cvhariharan/fedactor/models"
	"github.com/cvhariharan/fedactor/store"
)

type remote struct {
	srv       *httptest.Server
	publicPEM string
	owner     string
	noBoxes   bool
}

func newRemote(t *testing.T) *remote {
	k, err := keys.GenerateLocalKeypair()
	require.NoError(t, err)
	r := &remote{publicPEM: k.Public}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/webfinger", func(w http.ResponseWriter, req *http.Request) {
		host := strings.TrimPrefix(r.srv.URL, "http://")
		if req.URL.Query().Get("resource") != "acct:carol@"+host {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", models.TypeJRD)
		json.NewEncoder(w).Encode(models.WebFingerResp{
			Subject: "acct:carol@" + host,
			Links: []models.Link{
				{Rel: models.RelProfilePage, Href: r.srv.URL + "/@carol"},
				{Rel: models.RelSelf, Type: models.TypeActivity, Href: r.srv.URL + "/users/carol"},
			},
		})
	})
	mux.HandleFunc("/users/carol", func(w http.ResponseWriter, req *http.Request) {
		owner := r.owner
		if owner == "" {
			owner = r.srv.URL + "/users/carol"
		}
		inbox, outbox := r.srv.URL+"/users/carol/inbox", r.srv.URL+"/users/carol/outbox"
		if r.noBoxes {
			inbox, outbox = "", ""
		}
		w.Header().Set("Content-Type", models.TypeActivity)
		w.Write([]byte(`{
			"@context": ["https://www.w3.org/ns/activitystreams", {"toot": "http://joinmastodon.org/ns#"}],
			"id": "` + r.srv.URL + `/users/carol",
			"type": "Person",
			"preferredUsername": "carol",
			"name": "Carol",
			"inbox": "` + inbox + `",
			"outbox": "` + outbox + `",
			"publicKey": {
				"id": "` + r.srv.URL + `/users/carol#main-key",
				"owner": "` + owner + `",
				"publicKeyPem": ` + jsonString(r.publicPEM) + `
			}
		}`))
	})
	r.srv = httptest.NewServer(mux)
	t.Cleanup(r.srv.Close)
	return r
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (r *remote) account() federation.Account {
	return federation.Account{User: "carol", Domain: strings.TrimPrefix(r.srv.URL, "http://")}
}

func TestDiscover(t *testing.T) {
	r := newRemote(t)
	c := New(zaptest.NewLogger(t), WithScheme("http"))

	rec, err := c.Discover(context.Background(), r.account())
	require.NoError(t, err)
	assert.Equal(t, models.ActorTypePerson, rec.Kind)
	assert.Equal(t, "carol", rec.ActorID)
	assert.Equal(t, r.srv.URL+"/users/carol", rec.APURL)
	assert.Equal(t, r.srv.URL+"/users/carol/inbox", rec.InboxURL)
	assert.Equal(t, r.publicPEM, rec.PublicKey)
	assert.False(t, rec.Local())
}

func TestDiscoverUnknownAccount(t *testing.T) {
	r := newRemote(t)
	c := New(zaptest.NewLogger(t), WithScheme("http"))

	acct := r.account()
	acct.User = "nobody"
	_, err := c.Discover(context.Background(), acct)
	assert.Error(t, err)
}

func TestFetchActorOwnerMismatch(t *testing.T) {
	r := newRemote(t)
	r.owner = "https://evil.example/users/carol"
	c := New(zaptest.NewLogger(t), WithScheme("http"))

	_, err := c.FetchActor(context.Background(), r.srv.URL+"/users/carol")
	assert.Error(t, err)
}

func TestFetchActorWithoutInbox(t *testing.T) {
	r := newRemote(t)
	r.noBoxes = true
	c := New(zaptest.NewLogger(t), WithScheme("http"))

	_, err := c.FetchActor(context.Background(), r.srv.URL+"/users/carol")
	assert.ErrorIs(t, err, federation.ErrIncompleteRemote)
}

func TestImport(t *testing.T) {
	r := newRemote(t)
	s := store.NewMemory()
	svc := federation.NewService(s, s, zaptest.NewLogger(t), federation.NewMetrics(prometheus.NewRegistry()))
	c := New(zaptest.NewLogger(t), WithScheme("http"))
	ctx := context.Background()

	a, err := c.Import(ctx, svc, r.account())
	require.NoError(t, err)
	assert.Equal(t, r.srv.URL+"/users/carol#main-key", a.KeyID())

	got, ok, err := federation.ResolveByURL(ctx, s, r.srv.URL+"/users/carol")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a.RecordID(), got.RecordID())

	_, err = got.Sign([]byte("x"))
	assert.ErrorIs(t, err, keys.ErrNoPrivateKey)
}
