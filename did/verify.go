package did

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pilacorp/go-bnb-identity/credential/common/canonical"
	"github.com/pilacorp/go-bnb-identity/credential/common/errs"
	"github.com/pilacorp/go-bnb-identity/credential/common/metrics"
	"github.com/pilacorp/go-bnb-identity/credential/common/result"
	"github.com/pilacorp/go-bnb-identity/credential/common/schema"
	"github.com/pilacorp/go-bnb-identity/did/signer"
)

const verifiedMessage = "BNB DID verification completed successfully"

// ChallengeMessage returns the message a wallet signs to prove it controls id.
func ChallengeMessage(id string) string {
	return "Verify ownership of " + id
}

// documentFields are the fields read by the checks. The hash is always
// computed over the raw document, not over this view.
type documentFields struct {
	ID                 string            `json:"id"`
	VerificationMethod []json.RawMessage `json:"verificationMethod"`
	Created            string            `json:"created"`
}

// VerifyDID verifies that document is a well-formed DID document for
// address, that signature proves control of address, and that the document
// is not older than VerificationTimeout. Checks run in that order and stop
// at the first failure.
//
// document is kept as raw JSON so the hash is computed over the bytes the
// caller holds.
func (e *Engine) VerifyDID(ctx context.Context, address string, document json.RawMessage, signature string) result.Verification {
	ctx, span := e.tracer.Start(ctx, "did.VerifyDID")
	defer span.End()

	res := e.verify(ctx, address, document, signature)

	span.SetAttributes(attribute.String("verification.status", res.Status))
	e.metrics.ObserveVerification(metrics.ArtifactDID, res.Status)
	if res.Success {
		e.logger.DebugContext(ctx, "DID verified", "address", address, "hash", res.DIDHash)
	} else {
		e.logger.InfoContext(ctx, "DID verification did not pass", "address", address, "status", res.Status, "error", res.Error)
	}

	return res
}

// VerifyDocument is VerifyDID for a typed document.
func (e *Engine) VerifyDocument(ctx context.Context, address string, doc *Document, signature string) result.Verification {
	if doc == nil {
		return e.VerifyDID(ctx, address, nil, signature)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return result.Errored(errs.Wrap(errs.ErrInvalidDocument, err))
	}

	return e.VerifyDID(ctx, address, raw, signature)
}

func (e *Engine) verify(_ context.Context, address string, document json.RawMessage, signature string) result.Verification {
	trimmed := bytes.TrimSpace(document)
	if strings.TrimSpace(address) == "" || len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || strings.TrimSpace(signature) == "" {
		return result.Errored(errs.Describe(errs.ErrInvalidInput, "Missing required parameters"))
	}

	addr, err := NormalizeAddress(address)
	if err != nil {
		return result.Errored(err)
	}

	fields, err := e.checkStructure(document, addr.Hex())
	if err != nil {
		return result.Failed(err)
	}
	if err := checkOwnership(fields.ID, addr.Hex(), signature); err != nil {
		return result.Failed(err)
	}
	if err := e.checkFreshness(fields.Created); err != nil {
		return result.Failed(err)
	}

	hash, err := canonical.Hash(document)
	if err != nil {
		return result.Errored(errs.Wrap(errs.ErrInvalidDocument, err))
	}
	publicKey, err := signer.RecoverPublicKey([]byte(ChallengeMessage(fields.ID)), signature)
	if err != nil {
		return result.Errored(err)
	}

	res := result.Verified(e.now())
	res.DIDHash = hash
	res.Message = verifiedMessage
	res.PublicKeyHex = publicKey

	return res
}

func (e *Engine) checkStructure(document json.RawMessage, address string) (*documentFields, error) {
	invalid := func(format string, args ...any) error {
		return errs.Describe(errs.ErrInvalidDocument, "Invalid DID document: "+format, args...)
	}

	if err := schema.DIDDocument.Validate(document); err != nil {
		return nil, invalid("%v", err)
	}

	var fields documentFields
	if err := json.Unmarshal(document, &fields); err != nil {
		// verificationMethod is the only field the schema leaves untyped.
		return nil, invalid("Invalid or missing verification method")
	}

	prefix := e.method + ":"
	didAddress, ok := strings.CutPrefix(fields.ID, prefix)
	if !ok {
		return nil, invalid("Invalid DID format - must start with %s", prefix)
	}
	if !strings.EqualFold(didAddress, address) {
		return nil, invalid("DID address does not match provided wallet address")
	}
	if len(fields.VerificationMethod) == 0 {
		return nil, invalid("Invalid or missing verification method")
	}

	return &fields, nil
}

func checkOwnership(id, address, signature string) error {
	recovered, err := signer.RecoverAddress([]byte(ChallengeMessage(id)), signature)
	if err != nil {
		return errs.Describe(errs.ErrOwnershipMismatch, "Wallet ownership verification failed: %v", err)
	}
	if !strings.EqualFold(recovered, address) {
		return errs.Describe(errs.ErrOwnershipMismatch,
			"Wallet ownership verification failed: Signature verification failed. Recovered: %s, Expected: %s.", recovered, address)
	}

	return nil
}

func (e *Engine) checkFreshness(created string) error {
	createdAt, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return errs.Describe(errs.ErrExpired, "DID authenticity verification failed: %s", invalidCreated(created))
	}
	if e.now().Sub(createdAt) > VerificationTimeout {
		return errs.Describe(errs.ErrExpired, "DID authenticity verification failed: DID document is too old (verification timeout)")
	}

	return nil
}

func invalidCreated(created string) string {
	if created == "" {
		return "DID document has no creation timestamp"
	}

	return fmt.Sprintf("invalid creation timestamp %q", created)
}

// SignChallenge signs the ownership challenge of didID with a raw private key.
//
// It exists for development and tests; deployments gate it behind an
// operator flag.
func SignChallenge(privateKey, didID string) (*Challenge, error) {
	p, err := signer.NewDefaultProvider(privateKey)
	if err != nil {
		return nil, errs.New(errs.ErrInvalidInput, "Failed to sign message: %v", err)
	}

	message := ChallengeMessage(didID)
	sig, err := signer.SignMessage(p, []byte(message))
	if err != nil {
		return nil, errs.New(errs.ErrInvalidInput, "Failed to sign message: %v", err)
	}

	addr, err := NormalizeAddress(p.GetAddress())
	if err != nil {
		return nil, err
	}

	return &Challenge{Address: addr.Hex(), Signature: sig, Message: message}, nil
}
