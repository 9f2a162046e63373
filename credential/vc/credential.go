package vc

import (
	"fmt"
	"strings"
	"time"

	"github.com/pilacorp/go-bnb-identity/credential/common/dto"
	"github.com/pilacorp/go-bnb-identity/credential/common/errs"
	"github.com/pilacorp/go-bnb-identity/credential/common/jsonmap"
	"github.com/pilacorp/go-bnb-identity/credential/common/schema"
	"github.com/pilacorp/go-bnb-identity/did"
	"github.com/pilacorp/go-bnb-identity/did/signer"
)

// TypeVerifiableCredential is the base type of every credential.
const TypeVerifiableCredential = "VerifiableCredential"

// DefaultContext is the @context of issued credentials.
var DefaultContext = []string{"https://www.w3.org/2018/credentials/v1"}

// Credential is a verifiable credential in JSON object form.
type Credential jsonmap.JSONMap

// ParseCredential parses a JSON credential.
func ParseCredential(raw []byte) (Credential, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("JSON string is empty")
	}

	m, err := jsonmap.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}

	return Credential(m), nil
}

// ID returns the credential id.
func (c Credential) ID() string {
	return jsonmap.JSONMap(c).String("id")
}

// Issuer returns the issuer DID.
func (c Credential) Issuer() string {
	return jsonmap.JSONMap(c).String("issuer")
}

// GetSigningInput returns the bytes covered by the proof signature.
func (c Credential) GetSigningInput() ([]byte, error) {
	return jsonmap.JSONMap(c).SigningInput()
}

// AddCustomProof attaches proof to the credential.
func (c *Credential) AddCustomProof(proof *dto.Proof) error {
	if c == nil {
		return fmt.Errorf("credential is nil")
	}

	return (*jsonmap.JSONMap)(c).AddCustomProof(proof)
}

// Serialize returns the JSON form of the credential.
func (c Credential) Serialize() ([]byte, error) {
	if _, ok := c["proof"]; !ok {
		return nil, fmt.Errorf("credential must have proof before serialization")
	}

	m := jsonmap.JSONMap(c)
	return m.ToJSON()
}

// VerifyCredential checks a single credential: its structure, that its proof
// recovers to the address of its issuer, and that it has not expired at now.
func VerifyCredential(c Credential, now time.Time) error {
	if err := schema.Credential.Validate(map[string]interface{}(c)); err != nil {
		return errs.Describe(errs.ErrInvalidVCStructure, "Invalid credential: %v", err)
	}

	issuer, err := did.AddressOf(c.Issuer())
	if err != nil {
		return errs.Describe(errs.ErrInvalidVCStructure, "Invalid credential: %v", err)
	}

	proof, err := jsonmap.JSONMap(c).Proof()
	if err != nil {
		return errs.Describe(errs.ErrInvalidVCStructure, "Invalid credential: %v", err)
	}
	input, err := c.GetSigningInput()
	if err != nil {
		return errs.Wrap(errs.ErrInvalidVCStructure, err)
	}
	recovered, err := signer.RecoverAddress(input, proof.Signature)
	if err != nil {
		return errs.Describe(errs.ErrIssuerMismatch, "Credential signature verification failed: %v", err)
	}
	if !strings.EqualFold(recovered, issuer.Hex()) {
		return errs.Describe(errs.ErrIssuerMismatch,
			"Credential signature verification failed. Recovered: %s, Expected: %s.", recovered, issuer.Hex())
	}

	if expiration := jsonmap.JSONMap(c).String("expirationDate"); expiration != "" {
		expiresAt, err := time.Parse(time.RFC3339Nano, expiration)
		if err != nil {
			return errs.Describe(errs.ErrInvalidVCStructure, "Invalid credential: invalid expirationDate %q", expiration)
		}
		if now.After(expiresAt) {
			return errs.Describe(errs.ErrExpired, "Credential expired at %s", expiration)
		}
	}

	return nil
}
