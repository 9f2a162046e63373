// Package did builds, hashes, anchors and verifies did:bnb documents.
package did

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pilacorp/go-bnb-identity/credential/common/canonical"
	"github.com/pilacorp/go-bnb-identity/credential/common/dto"
	"github.com/pilacorp/go-bnb-identity/credential/common/errs"
	"github.com/pilacorp/go-bnb-identity/credential/common/metrics"
	"github.com/pilacorp/go-bnb-identity/did/blockchain"
)

//go:generate mockgen -source=engine.go -destination=mocks/mocks.go -package=mocks Anchorer,RegistrationChecker

// VerificationTimeout is the maximum age of a document accepted by VerifyDID.
const VerificationTimeout = 24 * time.Hour

// Anchorer records a canonical DID document and its digest on chain.
type Anchorer interface {
	RegisterDocument(ctx context.Context, document string, digest common.Hash) (*blockchain.Receipt, error)
}

// RegistrationChecker reports whether a digest has been anchored.
type RegistrationChecker interface {
	IsRegistered(ctx context.Context, digest common.Hash) (bool, error)
}

// Engine creates and verifies DID documents.
type Engine struct {
	method   string
	anchorer Anchorer
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	tracer   trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithAnchorer enables on-chain registration of created documents.
func WithAnchorer(a Anchorer) Option {
	return func(e *Engine) { e.anchorer = a }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMethod overrides the DID method prefix.
func WithMethod(method string) Option {
	return func(e *Engine) { e.method = method }
}

// NewEngine creates a DID engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		method: DefaultMethod,
		logger: slog.Default(),
		now:    time.Now,
		tracer: otel.Tracer("github.com/pilacorp/go-bnb-identity/did"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	return e
}

// Method returns the DID method prefix.
func (e *Engine) Method() string {
	return e.method
}

// CreateDID builds the DID document of address, hashes it and, when an
// Anchorer is configured, registers it on chain.
//
// Anchoring failures are logged and do not fail the call; Created.Anchor is
// nil in that case.
func (e *Engine) CreateDID(ctx context.Context, address string, profile *Profile) (*Created, error) {
	ctx, span := e.tracer.Start(ctx, "did.CreateDID")
	defer span.End()

	addr, err := NormalizeAddress(address)
	if err != nil {
		span.SetStatus(codes.Error, "invalid address")
		return nil, err
	}

	doc := e.buildDocument(addr, profile)
	if err := doc.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrCreationFailed, err)
	}

	canonicalDoc, err := canonical.Canonicalize(doc)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCreationFailed, err)
	}
	sum := sha256.Sum256(canonicalDoc)

	created := &Created{Document: doc, Hash: hex.EncodeToString(sum[:])}
	span.SetAttributes(attribute.String("did.id", doc.ID), attribute.String("did.hash", created.Hash))

	if e.anchorer != nil {
		created.Anchor = e.anchor(ctx, addr, canonicalDoc)
	}

	e.metrics.IncrementDIDCreated()
	e.logger.InfoContext(ctx, "DID created", "did", doc.ID, "hash", created.Hash, "anchored", created.Anchor != nil)

	return created, nil
}

func (e *Engine) anchor(ctx context.Context, addr common.Address, canonicalDoc []byte) *blockchain.Receipt {
	digest := canonical.Keccak256(canonicalDoc)
	start := time.Now()

	e.logger.InfoContext(ctx, "registering DID on-chain", "address", addr.Hex(), "digest", digest.Hex())
	receipt, err := e.anchorer.RegisterDocument(ctx, string(canonicalDoc), digest)
	e.metrics.ObserveAnchoring(start, err)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to register DID on-chain", "address", addr.Hex(), "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
		return nil
	}
	if receipt == nil {
		receipt = &blockchain.Receipt{DocumentHash: digest}
	}

	e.logger.InfoContext(ctx, "DID registered on-chain", "address", addr.Hex(), "tx", receipt.TxHash.Hex())

	return receipt
}

func (e *Engine) buildDocument(addr common.Address, profile *Profile) *Document {
	id := ToDID(e.method, addr.Hex())
	keyID := id + dto.DefaultVerificationKey
	now := e.now().UTC().Format(dto.TimestampLayout)

	// Addresses do not carry the public key; this is an opaque placeholder.
	pubSum := sha256.Sum256(addr.Bytes())

	return &Document{
		Context: []string{
			"https://www.w3.org/ns/did/v1",
			"https://w3id.org/security/suites/secp256k1-2019/v1",
		},
		ID: id,
		VerificationMethod: []VerificationMethod{{
			ID:           keyID,
			Type:         "EcdsaSecp256k1VerificationKey2019",
			Controller:   id,
			PublicKeyHex: hex.EncodeToString(pubSum[:]),
		}},
		Authentication: []string{keyID},
		Service: []Service{{
			ID:              id + "#profile",
			Type:            "UserProfile",
			ServiceEndpoint: profile.endpoint(),
			Description:     "Decentralized profile storage",
		}},
		Created: now,
		Updated: now,
		Proof: &dto.Proof{
			Type:               dto.ProofTypeSecp256k1,
			Created:            now,
			VerificationMethod: keyID,
			ProofPurpose:       dto.PurposeAssertionMethod,
		},
	}
}

// IsAnchored reports whether the canonical form of document is registered
// on chain. It requires an Anchorer that also implements RegistrationChecker.
func (e *Engine) IsAnchored(ctx context.Context, document any) (bool, error) {
	checker, ok := e.anchorer.(RegistrationChecker)
	if !ok {
		return false, errs.ErrRegistryNotConfigured
	}

	canonicalDoc, err := canonical.Canonicalize(document)
	if err != nil {
		return false, errs.Wrap(errs.ErrInvalidDocument, err)
	}

	registered, err := checker.IsRegistered(ctx, canonical.Keccak256(canonicalDoc))
	if err != nil {
		return false, errs.Wrap(errs.ErrAnchoringFailed, err)
	}

	return registered, nil
}
