// Package errs defines the error taxonomy shared by the DID, VC and VP engines.
//
// Every error carries a Kind (what class of failure it is) and a Code (which
// named failure it is). Callers match named failures with errors.Is against
// the exported sentinels, and classes with KindOf.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

// Kind constants.
const (
	KindInvalidInput          Kind = "InvalidInput"
	KindStructuralViolation   Kind = "StructuralViolation"
	KindCryptographicMismatch Kind = "CryptographicMismatch"
	KindExpired               Kind = "Expired"
	KindNotConfigured         Kind = "NotConfigured"
	KindCollaboratorFailure   Kind = "CollaboratorFailure"
	KindInternal              Kind = "Internal"
)

// Error is a classified error with an optional cause.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// Named failures.
var (
	ErrInvalidAddress        = &Error{Kind: KindInvalidInput, Code: "InvalidAddress", Message: "invalid wallet address"}
	ErrInvalidInput          = &Error{Kind: KindInvalidInput, Code: "InvalidInput", Message: "invalid input"}
	ErrCreationFailed        = &Error{Kind: KindInternal, Code: "CreationFailed", Message: "DID creation failed"}
	ErrInvalidDocument       = &Error{Kind: KindStructuralViolation, Code: "InvalidDocument", Message: "invalid DID document"}
	ErrOwnershipMismatch     = &Error{Kind: KindCryptographicMismatch, Code: "OwnershipMismatch", Message: "wallet ownership verification failed"}
	ErrExpired               = &Error{Kind: KindExpired, Code: "Expired", Message: "expired"}
	ErrIssuerNotConfigured   = &Error{Kind: KindNotConfigured, Code: "IssuerNotConfigured", Message: "issuer signer is not configured"}
	ErrIssuanceFailed        = &Error{Kind: KindCollaboratorFailure, Code: "IssuanceFailed", Message: "credential issuance failed"}
	ErrPresentationFailed    = &Error{Kind: KindCollaboratorFailure, Code: "PresentationFailed", Message: "presentation creation failed"}
	ErrInvalidVPStructure    = &Error{Kind: KindStructuralViolation, Code: "InvalidVPStructure", Message: "invalid presentation structure"}
	ErrInvalidVCStructure    = &Error{Kind: KindStructuralViolation, Code: "InvalidVCStructure", Message: "invalid credential structure"}
	ErrHolderMismatch        = &Error{Kind: KindCryptographicMismatch, Code: "HolderMismatch", Message: "presentation proof does not match holder"}
	ErrIssuerMismatch        = &Error{Kind: KindCryptographicMismatch, Code: "IssuerMismatch", Message: "credential proof does not match issuer"}
	ErrDevSigningDisabled    = &Error{Kind: KindNotConfigured, Code: "DevSigningDisabled", Message: "development signing is disabled"}
	ErrStorageNotConfigured  = &Error{Kind: KindNotConfigured, Code: "StorageNotConfigured", Message: "storage is not configured"}
	ErrAnchoringFailed       = &Error{Kind: KindCollaboratorFailure, Code: "AnchoringFailed", Message: "on-chain anchoring failed"}
	ErrRegistryNotConfigured = &Error{Kind: KindNotConfigured, Code: "RegistryNotConfigured", Message: "DID registry is not configured"}
	ErrInternal              = &Error{Kind: KindInternal, Code: "Internal", Message: "internal error"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}

	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Code == e.Code
}

// Wrap returns a copy of base carrying err as its cause.
func Wrap(base *Error, err error) error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: base.Message, Err: err}
}

// New returns a copy of base with a formatted cause.
func New(base *Error, format string, args ...any) error {
	return Wrap(base, fmt.Errorf(format, args...))
}

// Describe returns a copy of base whose message is replaced by a formatted,
// caller-facing description. Code and Kind are kept, so errors.Is still matches.
func Describe(base *Error, format string, args ...any) error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}

// CodeOf returns the Code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ""
}
