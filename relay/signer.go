package relay

import (
	"errors"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
)

var (
	ErrNoSigner = errors.New("relay: no signing capability available")
)

// Signer provides the identity/signing capability events are published
// under. The relay layer never implements signing itself; publishing
// without a Signer fails with ErrNoSigner.
type Signer interface {
	PublicKey() string
	Sign(event *nostr.Event) error
}

// KeySigner signs with a locally held private key.
type KeySigner struct {
	privateKey string
	publicKey  string
}

// NewKeySigner builds a signer from a hex private key.
func NewKeySigner(privateKey string) (*KeySigner, error) {
	publicKey, err := nostr.GetPublicKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("relay: invalid private key: %w", err)
	}
	return &KeySigner{
		privateKey: privateKey,
		publicKey:  publicKey,
	}, nil
}

// GenerateKeySigner creates a signer with a fresh keypair.
func GenerateKeySigner() (*KeySigner, error) {
	return NewKeySigner(nostr.GeneratePrivateKey())
}

func (s *KeySigner) PublicKey() string {
	return s.publicKey
}

func (s *KeySigner) Sign(event *nostr.Event) error {
	return event.Sign(s.privateKey)
}
