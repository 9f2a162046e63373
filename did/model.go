package did

import (
	"fmt"

	"github.com/pilacorp/go-bnb-identity/credential/common/dto"
	"github.com/pilacorp/go-bnb-identity/did/blockchain"
)

// Document is a DID document for a wallet address.
type Document struct {
	Context            []string             `json:"@context"`
	ID                 string               `json:"id"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	Authentication     []string             `json:"authentication"`
	Service            []Service            `json:"service"`
	Created            string               `json:"created"`
	Updated            string               `json:"updated"`
	Proof              *dto.Proof           `json:"proof,omitempty"`
}

// VerificationMethod describes the key controlling the DID.
type VerificationMethod struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Controller   string `json:"controller"`
	PublicKeyHex string `json:"publicKeyHex"`
}

// Service is a service endpoint of the DID subject.
type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
	Description     string `json:"description"`
}

// Profile is the optional profile data supplied at creation.
type Profile struct {
	// StorageHash locates the subject's profile in decentralized storage.
	StorageHash string `json:"storageHash,omitempty"`
	// GreenfieldProfileHash is accepted as an alias of StorageHash.
	GreenfieldProfileHash string `json:"greenfieldProfileHash,omitempty"`
}

func (p *Profile) endpoint() string {
	if p == nil {
		return ""
	}
	if p.StorageHash != "" {
		return p.StorageHash
	}

	return p.GreenfieldProfileHash
}

// Created is the result of CreateDID.
type Created struct {
	Document *Document           `json:"didDocument"`
	Hash     string              `json:"didHash"`
	Anchor   *blockchain.Receipt `json:"anchor,omitempty"`
}

// Challenge is a signed ownership challenge.
type Challenge struct {
	Address   string `json:"walletAddress"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

// Validate checks the invariants of a document: a subject id, at least one
// verification method, and authentication entries that reference one.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("document is nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document id is empty")
	}
	if len(d.VerificationMethod) == 0 {
		return fmt.Errorf("document has no verification method")
	}

	ids := make(map[string]struct{}, len(d.VerificationMethod))
	for _, vm := range d.VerificationMethod {
		ids[vm.ID] = struct{}{}
	}
	for _, ref := range d.Authentication {
		if _, ok := ids[ref]; !ok {
			return fmt.Errorf("authentication %q does not reference a verification method", ref)
		}
	}

	return nil
}
