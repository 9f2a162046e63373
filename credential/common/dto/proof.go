package dto

// Proof represents the signature block attached to a DID document,
// a Verifiable Credential or a Verifiable Presentation.
//
// DID document proofs carry no signature; ownership is proven out of band
// by signing the challenge message.
type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	Signature          string `json:"signature,omitempty"`
}

// Proof types and purposes.
const (
	ProofTypeSecp256k1     = "EcdsaSecp256k1Signature2019"
	PurposeAssertionMethod = "assertionMethod"
	PurposeAuthentication  = "authentication"
	DefaultVerificationKey = "#key-1"
	TimestampLayout        = "2006-01-02T15:04:05.000Z"
)
