// Package result holds the verification outcome returned by the DID and VP
// engines. Verification failures are reported as data, never as errors.
package result

import (
	"time"

	"github.com/pilacorp/go-bnb-identity/credential/common/errs"
)

// Status values.
const (
	StatusVerified = "verified"
	StatusFailed   = "failed"
	StatusError    = "error"
)

// Verification is the outcome of verifying a DID document or a presentation.
type Verification struct {
	Success           bool               `json:"success"`
	Status            string             `json:"status"`
	DIDHash           string             `json:"didHash,omitempty"`
	VerificationDate  *time.Time         `json:"verificationDate,omitempty"`
	Message           string             `json:"message,omitempty"`
	Error             string             `json:"error,omitempty"`
	Reason            errs.Kind          `json:"reason,omitempty"`
	PublicKeyHex      string             `json:"publicKeyHex,omitempty"`
	CredentialResults []CredentialResult `json:"credentialResults,omitempty"`
}

// CredentialResult is the outcome of one embedded credential.
type CredentialResult struct {
	Index  int       `json:"index"`
	ID     string    `json:"id,omitempty"`
	Valid  bool      `json:"valid"`
	Error  string    `json:"error,omitempty"`
	Reason errs.Kind `json:"reason,omitempty"`
}

// Verified returns a successful result verified at at.
func Verified(at time.Time) Verification {
	at = at.UTC()
	return Verification{Success: true, Status: StatusVerified, VerificationDate: &at}
}

// Failed returns a failed result for a check that did not pass.
func Failed(err error) Verification {
	return Verification{Status: StatusFailed, Error: err.Error(), Reason: errs.KindOf(err)}
}

// Errored returns a result for an unexpected failure.
func Errored(err error) Verification {
	return Verification{Status: StatusError, Error: err.Error(), Reason: errs.KindOf(err)}
}

// Invalid returns the failed result of the credential at index.
func Invalid(index int, id string, err error) CredentialResult {
	return CredentialResult{Index: index, ID: id, Error: err.Error(), Reason: errs.KindOf(err)}
}
