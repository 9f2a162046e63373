package signer

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignMessage signs message with the Ethereum personal-message scheme
// ("\x19Ethereum Signed Message:\n" + len + message, keccak256) and returns
// the 0x-prefixed hex signature with V normalized to 27 or 28.
func SignMessage(p SignerProvider, message []byte) (string, error) {
	if p == nil {
		return "", fmt.Errorf("signer provider is required")
	}

	sig, err := p.Sign(accounts.TextHash(message))
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("invalid signature length: expected 65 bytes, got %d", len(sig))
	}

	out := make([]byte, 65)
	copy(out, sig)
	if out[64] < 27 {
		out[64] += 27
	}

	return hexutil.Encode(out), nil
}

// RecoverAddress returns the checksummed address whose key produced the
// personal-message signature over message.
func RecoverAddress(message []byte, signature string) (string, error) {
	sig, err := decodeSignature(signature)
	if err != nil {
		return "", err
	}

	pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return "", fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// RecoverPublicKey returns the 0x-prefixed compressed secp256k1 public key
// that produced the personal-message signature over message.
func RecoverPublicKey(message []byte, signature string) (string, error) {
	sig, err := decodeSignature(signature)
	if err != nil {
		return "", err
	}

	// decred expects the compact layout [27 + recid + 4 || R || S].
	compact := make([]byte, 65)
	compact[0] = 27 + sig[64] + 4
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, accounts.TextHash(message))
	if err != nil {
		return "", fmt.Errorf("failed to recover public key: %w", err)
	}

	return "0x" + hex.EncodeToString(pub.SerializeCompressed()), nil
}

// decodeSignature decodes a hex signature and normalizes V to 0 or 1.
func decodeSignature(signature string) ([]byte, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature hex: %w", err)
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("invalid signature length: expected 65 bytes, got %d", len(sig))
	}

	switch sig[64] {
	case 0, 1:
	case 27, 28:
		sig[64] -= 27
	default:
		return nil, fmt.Errorf("invalid signature recovery id %d", sig[64])
	}

	return sig, nil
}
