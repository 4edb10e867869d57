// Package keys generates and parses the RSA key material attached to actors.
package keys

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
)

// MinBits is the smallest modulus accepted for generated keys.
const MinBits = 2048

var (
	ErrKeyGeneration  = errors.New("key generation failed")
	ErrMalformedKey   = errors.New("malformed key")
	ErrNoPrivateKey   = errors.New("actor has no private key")
	ErrSigningBackend = errors.New("signing backend error")
)

// Material is the key material of an actor. It is either LocalKeys or RemoteKey.
type Material interface {
	PublicPEM() string
	isMaterial()
}

// LocalKeys belong to actors hosted on this instance.
type LocalKeys struct {
	Public  string
	Private string
}

// RemoteKey is the public half learned from a remote actor document.
type RemoteKey struct {
	Public string
}

func (k LocalKeys) PublicPEM() string { return k.Public }
func (k LocalKeys) isMaterial()       {}

func (k RemoteKey) PublicPEM() string { return k.Public }
func (k RemoteKey) isMaterial()       {}

// FromPEM picks the variant matching the stored columns.
func FromPEM(public, private string) Material {
	if private != "" {
		return LocalKeys{Public: public, Private: private}
	}
	return RemoteKey{Public: public}
}

// GenerateLocalKeypair returns a fresh 2048 bit keypair rendered as PEM.
func GenerateLocalKeypair() (LocalKeys, error) {
	return Generate(rand.Reader, MinBits)
}

// Generate creates a keypair of the given size from r.
func Generate(r io.Reader, bits int) (LocalKeys, error) {
	if bits < MinBits {
		return LocalKeys{}, fmt.Errorf("%w: modulus of %d bits is below %d", ErrKeyGeneration, bits, MinBits)
	}
	privKey, err := rsa.GenerateKey(r, bits)
	if err != nil {
		return LocalKeys{}, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	if err != nil {
		return LocalKeys{}, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}

	publicPemData := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubDER,
	})
	privatePemData := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privKey),
	})

	return LocalKeys{Public: string(publicPemData), Private: string(privatePemData)}, nil
}

// ParsePrivateKey accepts PKCS#1 and PKCS#8 encoded RSA private keys.
func ParsePrivateKey(data string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrMalformedKey)
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		return key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA key", ErrMalformedKey)
		}
		return rsaKey, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM type %q", ErrMalformedKey, block.Type)
	}
}

// ParsePublicKey accepts PKIX and PKCS#1 encoded RSA public keys.
func ParsePublicKey(data string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrMalformedKey)
	}

	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA key", ErrMalformedKey)
		}
		return rsaKey, nil
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM type %q", ErrMalformedKey, block.Type)
	}
}

// Sign computes an RSASSA-PKCS1-v1_5 signature over the SHA-256 digest of
// payload. The result is raw, callers encode it.
func (k LocalKeys) Sign(payload []byte) ([]byte, error) {
	privKey, err := ParsePrivateKey(k.Private)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(nil, privKey, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningBackend, err)
	}
	return sig, nil
}

// Verify checks an RSA-SHA256 signature against a PEM encoded public key.
func Verify(publicPEM string, payload, sig []byte) error {
	pubKey, err := ParsePublicKey(publicPEM)
	if err != nil {
		return err
	}
	digest := sha256.Sum256(payload)
	return rsa.VerifyPKCS1v15(pubKey, crypto.SHA256, digest[:], sig)
}
