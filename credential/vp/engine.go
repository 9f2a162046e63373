// Package vp creates verifiable presentations and verifies them together
// with every credential they embed.
package vp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/pilacorp/go-bnb-identity/credential/common/dto"
	"github.com/pilacorp/go-bnb-identity/credential/common/errs"
	"github.com/pilacorp/go-bnb-identity/credential/common/jsonmap"
	"github.com/pilacorp/go-bnb-identity/credential/common/metrics"
	"github.com/pilacorp/go-bnb-identity/credential/common/result"
	"github.com/pilacorp/go-bnb-identity/credential/common/schema"
	"github.com/pilacorp/go-bnb-identity/credential/vc"
	"github.com/pilacorp/go-bnb-identity/did"
	"github.com/pilacorp/go-bnb-identity/did/signer"
	"github.com/pilacorp/go-bnb-identity/storage"
)

// Defaults.
const (
	DefaultBucket      = "presentations"
	DefaultConcurrency = 8
)

const verifiedMessage = "VP verification completed successfully"

// Engine creates and verifies presentations.
type Engine struct {
	store       storage.Store
	bucket      string
	method      string
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	tracer      trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore sets the storage backend of created presentations.
func WithStore(s storage.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithBucket overrides DefaultBucket.
func WithBucket(bucket string) Option {
	return func(e *Engine) {
		if bucket != "" {
			e.bucket = bucket
		}
	}
}

// WithMethod overrides the DID method of holder identifiers.
func WithMethod(method string) Option {
	return func(e *Engine) {
		if method != "" {
			e.method = method
		}
	}
}

// WithConcurrency bounds the number of credentials verified in parallel.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock sets the time source used for proofs and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a presentation engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		bucket:      DefaultBucket,
		method:      did.DefaultMethod,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		now:         time.Now,
		tracer:      otel.Tracer("github.com/pilacorp/go-bnb-identity/credential/vp"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	return e
}

// Created is a signed and stored presentation.
type Created struct {
	Presentation Presentation     `json:"presentation"`
	Locator      string           `json:"storageUrl"`
	Receipt      *storage.Receipt `json:"receipt,omitempty"`
}

// CreateVPWithKey is CreateVP for a raw holder private key.
func (e *Engine) CreateVPWithKey(ctx context.Context, privateKey string, vcs []vc.Credential) (*Created, error) {
	holder, err := signer.NewDefaultProvider(privateKey)
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidInput, err)
	}

	return e.CreateVP(ctx, holder, vcs)
}

// CreateVP builds a presentation of vcs for the holder, signs it with the
// holder key and stores it. The credentials are not validated.
func (e *Engine) CreateVP(ctx context.Context, holder signer.SignerProvider, vcs []vc.Credential) (*Created, error) {
	ctx, span := e.tracer.Start(ctx, "vp.CreateVP")
	defer span.End()

	if holder == nil {
		return nil, errs.New(errs.ErrInvalidInput, "holder signer is required")
	}
	if e.store == nil {
		return nil, errs.ErrStorageNotConfigured
	}

	now := e.now().UTC()
	holderDID := did.ToDID(e.method, holder.GetAddress())

	credentials := make([]interface{}, len(vcs))
	for i, c := range vcs {
		credentials[i] = map[string]interface{}(c)
	}
	vp := Presentation{
		"@context":             DefaultContext,
		"type":                 []string{TypeVerifiablePresentation},
		"verifiableCredential": credentials,
		"holder":               holderDID,
	}

	if err := sign(&vp, holder, holderDID, now); err != nil {
		span.RecordError(err)
		return nil, errs.Wrap(errs.ErrPresentationFailed, err)
	}
	span.SetAttributes(attribute.String("vp.holder", holderDID), attribute.Int("vp.credentials", len(vcs)))

	created, err := e.persist(ctx, vp, holder.GetAddress(), now)
	if err != nil {
		span.RecordError(err)
		e.logger.ErrorContext(ctx, "failed to store presentation", "holder", holderDID, "error", err)
		return nil, errs.Wrap(errs.ErrPresentationFailed, err)
	}

	e.metrics.IncrementPresentationCreated()
	e.logger.InfoContext(ctx, "presentation created", "holder", holderDID, "credentials", len(vcs), "url", created.Locator)

	return created, nil
}

func sign(vp *Presentation, holder signer.SignerProvider, holderDID string, now time.Time) error {
	input, err := vp.GetSigningInput()
	if err != nil {
		return fmt.Errorf("failed to build signing input: %w", err)
	}

	sig, err := signer.SignMessage(holder, input)
	if err != nil {
		return fmt.Errorf("failed to sign presentation: %w", err)
	}

	return vp.AddCustomProof(&dto.Proof{
		Type:               dto.ProofTypeSecp256k1,
		Created:            now.Format(dto.TimestampLayout),
		VerificationMethod: holderDID + dto.DefaultVerificationKey,
		ProofPurpose:       dto.PurposeAuthentication,
		Signature:          sig,
	})
}

func (e *Engine) persist(ctx context.Context, vp Presentation, address string, now time.Time) (*Created, error) {
	data, err := vp.Serialize()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	object := storage.ObjectName("vp", address, now)
	receipt, err := e.store.Put(ctx, e.bucket, object, data, storage.ContentTypeJSON)
	e.metrics.ObserveStorage(metrics.ArtifactPresentation, start)
	if err != nil {
		return nil, fmt.Errorf("failed to store presentation: %w", err)
	}

	url, err := e.store.RetrievalURL(ctx, e.bucket, object)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve presentation URL: %w", err)
	}

	return &Created{Presentation: vp, Locator: url, Receipt: receipt}, nil
}

// VerifyVP verifies the holder proof of vp and then every embedded
// credential. A holder proof failure ends verification with no per-credential
// results; otherwise every credential gets a result, in input order.
func (e *Engine) VerifyVP(ctx context.Context, vp Presentation) result.Verification {
	ctx, span := e.tracer.Start(ctx, "vp.VerifyVP")
	defer span.End()

	res := e.verify(ctx, vp)

	span.SetAttributes(attribute.String("verification.status", res.Status))
	e.metrics.ObserveVerification(metrics.ArtifactPresentation, res.Status)
	if res.Success {
		e.logger.DebugContext(ctx, "presentation verified", "holder", vp.Holder(), "credentials", len(res.CredentialResults))
	} else {
		e.logger.InfoContext(ctx, "presentation verification did not pass", "holder", vp.Holder(), "status", res.Status, "error", res.Error)
	}

	return res
}

func (e *Engine) verify(ctx context.Context, vp Presentation) result.Verification {
	if err := schema.Presentation.Validate(map[string]interface{}(vp)); err != nil {
		return result.Failed(errs.Describe(errs.ErrInvalidVPStructure, "Invalid VP structure: %v", err))
	}
	if err := checkHolder(vp); err != nil {
		return result.Failed(err)
	}

	now := e.now()
	credentials := vp.Credentials()
	results := make([]result.CredentialResult, len(credentials))

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for i, c := range credentials {
		g.Go(func() error {
			results[i] = verifyCredential(ctx, i, c, now)
			return nil
		})
	}
	_ = g.Wait()

	var failed []result.CredentialResult
	for _, r := range results {
		if !r.Valid {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		return result.Verification{
			Status:            result.StatusFailed,
			Error:             fmt.Sprintf("%d of %d credentials failed verification", len(failed), len(results)),
			Reason:            failed[0].Reason,
			CredentialResults: results,
		}
	}

	res := result.Verified(now)
	res.Message = verifiedMessage
	res.CredentialResults = results

	return res
}

func checkHolder(vp Presentation) error {
	holder, err := did.AddressOf(vp.Holder())
	if err != nil {
		return errs.Describe(errs.ErrInvalidVPStructure, "Invalid VP structure: %v", err)
	}

	proof, err := jsonmap.JSONMap(vp).Proof()
	if err != nil {
		return errs.Describe(errs.ErrInvalidVPStructure, "Invalid VP structure: %v", err)
	}
	input, err := vp.GetSigningInput()
	if err != nil {
		return errs.Wrap(errs.ErrInvalidVPStructure, err)
	}

	recovered, err := signer.RecoverAddress(input, proof.Signature)
	if err != nil {
		return errs.Describe(errs.ErrHolderMismatch, "Holder signature verification failed: %v", err)
	}
	if !strings.EqualFold(recovered, holder.Hex()) {
		return errs.Describe(errs.ErrHolderMismatch,
			"Holder signature verification failed. Recovered: %s, Expected: %s.", recovered, holder.Hex())
	}

	return nil
}

func verifyCredential(ctx context.Context, index int, c vc.Credential, now time.Time) result.CredentialResult {
	if c == nil {
		return result.Invalid(index, "", errs.Describe(errs.ErrInvalidVCStructure, "Invalid credential: expected a JSON object"))
	}
	if err := ctx.Err(); err != nil {
		return result.Invalid(index, c.ID(), errs.Wrap(errs.ErrInternal, err))
	}
	if err := vc.VerifyCredential(c, now); err != nil {
		return result.Invalid(index, c.ID(), err)
	}

	return result.CredentialResult{Index: index, ID: c.ID(), Valid: true}
}
