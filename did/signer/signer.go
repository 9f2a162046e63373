package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// SignerProvider is the interface for the signer provider.
//
// Sign receives a 32-byte digest and returns a 65-byte [R || S || V]
// signature. GetAddress returns the lowercase 0x-prefixed address of the key.
type SignerProvider interface {
	Sign(payload []byte) ([]byte, error)
	GetAddress() string
}

// DefaultProvider is the default signer provider backed by an in-process key.
type DefaultProvider struct {
	priv *ecdsa.PrivateKey
}

// NewDefaultProvider creates a new default signer provider.
//
// privHex is the private key in hex format, with or without the 0x prefix.
// Returns the signer provider or an error if the private key is invalid.
func NewDefaultProvider(privHex string) (SignerProvider, error) {
	priv, err := ParsePrivateKey(privHex)
	if err != nil {
		return nil, err
	}

	return &DefaultProvider{priv: priv}, nil
}

// NewProviderFromKey wraps an already parsed private key.
func NewProviderFromKey(priv *ecdsa.PrivateKey) SignerProvider {
	return &DefaultProvider{priv: priv}
}

// Sign signs the payload.
//
// hashPayload is the hash of the payload to sign.
// Returns the signature or an error if the signature is invalid.
func (s *DefaultProvider) Sign(hashPayload []byte) ([]byte, error) {
	signature, err := crypto.Sign(hashPayload, s.priv)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	if len(signature) != 65 {
		return nil, fmt.Errorf("invalid signature length: expected 65 bytes, got %d", len(signature))
	}

	return signature, nil
}

// GetAddress returns the address of the signer.
func (s *DefaultProvider) GetAddress() string {
	return strings.ToLower(crypto.PubkeyToAddress(s.priv.PublicKey).Hex())
}

// ParsePrivateKey parses a hex-encoded secp256k1 private key.
func ParsePrivateKey(key string) (*ecdsa.PrivateKey, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "0x")
	if len(key) == 0 || len(key)%2 != 0 {
		return nil, fmt.Errorf("invalid private key: empty or odd length")
	}

	privKey, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return privKey, nil
}
