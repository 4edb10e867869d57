// Package signature builds the HTTP Signature header outgoing deliveries carry.
// Delivery itself belongs to the caller.
package signature

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spacemonkeygo/httpsig"

	"github.com/cvhariharan/fedactor/keys"
)

const Algorithm = "rsa-sha256"

// DefaultHeaders are signed when the caller does not pick its own.
var DefaultHeaders = []string{"(request-target)", "host", "date", "digest"}

var (
	ErrMissingHeader = errors.New("header to sign is missing")
	ErrNotSigner     = errors.New("key cannot sign requests")
)

// Signer is the part of an actor needed to sign requests.
type Signer interface {
	KeyID() string
	Sign(payload []byte) ([]byte, error)
}

// actorAlgorithm is rsa-sha256 with the private key kept behind the actor.
// Only actors holding local keys produce a signature.
type actorAlgorithm struct{}

var _ httpsig.Algorithm = actorAlgorithm{}

func (actorAlgorithm) Name() string { return Algorithm }

func (actorAlgorithm) Sign(key interface{}, data []byte) ([]byte, error) {
	s, ok := key.(Signer)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotSigner, key)
	}
	return s.Sign(data)
}

func (actorAlgorithm) Verify(key interface{}, data, sig []byte) error {
	switch k := key.(type) {
	case string:
		return keys.Verify(k, data, sig)
	case *rsa.PublicKey:
		return httpsig.RSAVerify(k, crypto.SHA256, data, sig)
	default:
		return fmt.Errorf("unsupported verification key %T", key)
	}
}

// Digest is the value of the Digest header for body.
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
}

// prepare lowercases headers and fills in the Date and Digest values the
// signature covers. Any other listed header must already be present.
func prepare(req *http.Request, headers []string) ([]string, error) {
	if len(headers) == 0 {
		headers = DefaultHeaders
	}
	lower := make([]string, len(headers))
	for i, h := range headers {
		h = strings.ToLower(h)
		lower[i] = h
		switch h {
		case "(request-target)":
		case "host":
			if req.Host == "" {
				req.Host = req.URL.Host
			}
		case "date":
			if req.Header.Get("Date") == "" {
				req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
			}
		case "digest":
			if req.Header.Get("Digest") == "" {
				body, err := readBody(req)
				if err != nil {
					return nil, err
				}
				req.Header.Set("Digest", Digest(body))
			}
		default:
			if len(req.Header.Values(h)) == 0 {
				return nil, fmt.Errorf("%w: %s", ErrMissingHeader, h)
			}
		}
	}
	return lower, nil
}

// SignRequest adds Date and Digest headers when they are signed but absent,
// then sets the Signature header using s.
func SignRequest(req *http.Request, s Signer, headers []string) error {
	headers, err := prepare(req, headers)
	if err != nil {
		return err
	}
	sig, err := actorAlgorithm{}.Sign(s, httpsig.BuildSignatureData(req, headers))
	if err != nil {
		return err
	}
	req.Header.Set("Signature", Header(s.KeyID(), headers, sig))
	return nil
}

// SignAuthorization signs req like SignRequest but carries the parameters in
// an "Authorization: Signature ..." header instead.
func SignAuthorization(req *http.Request, s Signer, headers []string) error {
	headers, err := prepare(req, headers)
	if err != nil {
		return err
	}
	return httpsig.NewSigner(s.KeyID(), s, actorAlgorithm{}, headers).Sign(req)
}

// Header formats the Signature header value.
func Header(keyID string, headers []string, sig []byte) string {
	return fmt.Sprintf(`keyId="%s",algorithm="%s",headers="%s",signature="%s"`,
		keyID, Algorithm, strings.Join(headers, " "), base64.StdEncoding.EncodeToString(sig))
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be re-read for digest")
	}
	rc, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
