// Package vc issues and verifies verifiable credentials signed with the
// Ethereum personal-message scheme.
package vc

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pilacorp/go-bnb-identity/credential/common/dto"
	"github.com/pilacorp/go-bnb-identity/credential/common/errs"
	"github.com/pilacorp/go-bnb-identity/credential/common/metrics"
	"github.com/pilacorp/go-bnb-identity/did"
	"github.com/pilacorp/go-bnb-identity/did/signer"
	"github.com/pilacorp/go-bnb-identity/storage"
)

// DefaultBucket is the storage bucket of issued credentials.
const DefaultBucket = "credentials"

// Issuer issues credentials on behalf of a configured signing identity.
type Issuer struct {
	signer  signer.SignerProvider
	store   storage.Store
	bucket  string
	method  string
	types   []string
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	tracer  trace.Tracer
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithSigner sets the issuer signing identity.
func WithSigner(p signer.SignerProvider) Option {
	return func(i *Issuer) { i.signer = p }
}

// WithStore sets the storage backend of issued credentials.
func WithStore(s storage.Store) Option {
	return func(i *Issuer) { i.store = s }
}

// WithBucket overrides DefaultBucket.
func WithBucket(bucket string) Option {
	return func(i *Issuer) {
		if bucket != "" {
			i.bucket = bucket
		}
	}
}

// WithMethod overrides the DID method of the issuer identifier.
func WithMethod(method string) Option {
	return func(i *Issuer) {
		if method != "" {
			i.method = method
		}
	}
}

// WithTypes appends credential types after VerifiableCredential.
func WithTypes(types ...string) Option {
	return func(i *Issuer) { i.types = append(i.types, types...) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Issuer) { i.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Issuer) { i.metrics = m }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer creates an Issuer. An Issuer without a signer can be built but
// every IssueVC call fails with errs.ErrIssuerNotConfigured.
func NewIssuer(opts ...Option) *Issuer {
	i := &Issuer{
		bucket: DefaultBucket,
		method: did.DefaultMethod,
		logger: slog.Default(),
		now:    time.Now,
		tracer: otel.Tracer("github.com/pilacorp/go-bnb-identity/credential/vc"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}

	return i
}

// DID returns the issuer identifier, or "" when no signer is configured.
func (i *Issuer) DID() string {
	if i.signer == nil {
		return ""
	}

	return did.ToDID(i.method, i.signer.GetAddress())
}

// Issued is a signed and stored credential.
type Issued struct {
	Credential Credential       `json:"credential"`
	Locator    string           `json:"storageUrl"`
	Receipt    *storage.Receipt `json:"receipt,omitempty"`
}

// IssueVC issues a credential with claims about holderDID, valid for one
// year, and stores it.
func (i *Issuer) IssueVC(ctx context.Context, holderDID string, claims map[string]interface{}) (*Issued, error) {
	ctx, span := i.tracer.Start(ctx, "vc.IssueVC")
	defer span.End()

	if i.signer == nil {
		return nil, errs.ErrIssuerNotConfigured
	}
	if i.store == nil {
		return nil, errs.ErrStorageNotConfigured
	}
	holder, err := did.ParseDID(i.method, holderDID)
	if err != nil {
		span.SetStatus(codes.Error, "invalid holder")
		return nil, err
	}
	if err := checkUTF8("credentialSubject", claims); err != nil {
		span.SetStatus(codes.Error, "invalid claims")
		return nil, err
	}

	now := i.now().UTC()
	cred := i.build(holderDID, claims, now)

	if err := i.sign(&cred, now); err != nil {
		span.RecordError(err)
		return nil, errs.Wrap(errs.ErrIssuanceFailed, err)
	}
	span.SetAttributes(attribute.String("vc.id", cred.ID()))

	issued, err := i.persist(ctx, cred, holder, now)
	if err != nil {
		span.RecordError(err)
		i.logger.ErrorContext(ctx, "failed to store credential", "id", cred.ID(), "error", err)
		return nil, errs.Wrap(errs.ErrIssuanceFailed, err)
	}

	i.metrics.IncrementCredentialIssued()
	i.logger.InfoContext(ctx, "credential issued", "id", cred.ID(), "holder", holderDID, "url", issued.Locator)

	return issued, nil
}

func (i *Issuer) build(holderDID string, claims map[string]interface{}, now time.Time) Credential {
	subject := make(map[string]interface{}, len(claims)+1)
	for k, v := range claims {
		subject[k] = v
	}
	subject["id"] = holderDID

	types := append([]string{TypeVerifiableCredential}, i.types...)

	return Credential{
		"@context":          DefaultContext,
		"id":                "urn:uuid:" + uuid.NewString(),
		"type":              types,
		"issuer":            i.DID(),
		"issuanceDate":      now.Format(dto.TimestampLayout),
		"expirationDate":    now.AddDate(1, 0, 0).Format(dto.TimestampLayout),
		"credentialSubject": subject,
	}
}

// checkUTF8 rejects strings that would not survive a JSON round trip.
// encoding/json replaces invalid bytes with U+FFFD, so the stored credential
// would no longer match its signature.
func checkUTF8(path string, v interface{}) error {
	switch val := v.(type) {
	case string:
		if !utf8.ValidString(val) {
			return errs.New(errs.ErrInvalidInput, "claim %s is not valid UTF-8", path)
		}
	case []string:
		for i, s := range val {
			if err := checkUTF8(fmt.Sprintf("%s[%d]", path, i), s); err != nil {
				return err
			}
		}
	case []interface{}:
		for i, item := range val {
			if err := checkUTF8(fmt.Sprintf("%s[%d]", path, i), item); err != nil {
				return err
			}
		}
	case map[string]interface{}:
		for k, item := range val {
			if !utf8.ValidString(k) {
				return errs.New(errs.ErrInvalidInput, "claim name %q in %s is not valid UTF-8", k, path)
			}
			if err := checkUTF8(path+"."+k, item); err != nil {
				return err
			}
		}
	case map[string]string:
		for k, s := range val {
			if err := checkUTF8(path+"."+k, k); err != nil {
				return err
			}
			if err := checkUTF8(path+"."+k, s); err != nil {
				return err
			}
		}
	}

	return nil
}

func (i *Issuer) sign(cred *Credential, now time.Time) error {
	input, err := cred.GetSigningInput()
	if err != nil {
		return fmt.Errorf("failed to build signing input: %w", err)
	}

	sig, err := signer.SignMessage(i.signer, input)
	if err != nil {
		return fmt.Errorf("failed to sign credential: %w", err)
	}

	return cred.AddCustomProof(&dto.Proof{
		Type:               dto.ProofTypeSecp256k1,
		Created:            now.Format(dto.TimestampLayout),
		VerificationMethod: i.DID() + dto.DefaultVerificationKey,
		ProofPurpose:       dto.PurposeAssertionMethod,
		Signature:          sig,
	})
}

func (i *Issuer) persist(ctx context.Context, cred Credential, holder string, now time.Time) (*Issued, error) {
	data, err := cred.Serialize()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	object := storage.ObjectName("vc", holder, now)
	receipt, err := i.store.Put(ctx, i.bucket, object, data, storage.ContentTypeJSON)
	i.metrics.ObserveStorage(metrics.ArtifactCredential, start)
	if err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	url, err := i.store.RetrievalURL(ctx, i.bucket, object)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credential URL: %w", err)
	}

	return &Issued{Credential: cred, Locator: url, Receipt: receipt}, nil
}
