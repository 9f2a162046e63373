// Package identity wires the DID, credential and presentation engines of a
// did:bnb deployment to their signing, anchoring and storage collaborators.
//
// Collaborators are optional. A deployment without a registry creates DIDs
// off chain; one without an issuer key cannot issue credentials. Calls that
// need a missing collaborator fail with a NotConfigured error.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pilacorp/go-bnb-identity/config"
	"github.com/pilacorp/go-bnb-identity/credential/common/errs"
	"github.com/pilacorp/go-bnb-identity/credential/common/metrics"
	"github.com/pilacorp/go-bnb-identity/credential/common/result"
	"github.com/pilacorp/go-bnb-identity/credential/vc"
	"github.com/pilacorp/go-bnb-identity/credential/vp"
	"github.com/pilacorp/go-bnb-identity/did"
	"github.com/pilacorp/go-bnb-identity/did/blockchain"
	"github.com/pilacorp/go-bnb-identity/did/signer"
	"github.com/pilacorp/go-bnb-identity/storage"
	"github.com/pilacorp/go-bnb-identity/storage/ipfs"
	"github.com/pilacorp/go-bnb-identity/storage/memory"
	"github.com/pilacorp/go-bnb-identity/storage/redis"
)

// Service is an assembled identity deployment.
type Service struct {
	cfg      *config.Config
	dids     *did.Engine
	issuer   *vc.Issuer
	vps      *vp.Engine
	store    storage.Store
	anchorer did.Anchorer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	closers  []func() error
}

type options struct {
	logger       *slog.Logger
	registerer   prometheus.Registerer
	store        storage.Store
	anchorer     did.Anchorer
	issuerSigner signer.SignerProvider
	now          func() time.Time
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger shared by every engine.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer registers the engine metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithStore replaces the storage backend selected by the configuration.
func WithStore(s storage.Store) Option {
	return func(o *options) { o.store = s }
}

// WithAnchorer replaces the registry client dialed from the configuration.
func WithAnchorer(a did.Anchorer) Option {
	return func(o *options) { o.anchorer = a }
}

// WithIssuerSigner replaces the issuer signer built from the configuration.
func WithIssuerSigner(p signer.SignerProvider) Option {
	return func(o *options) { o.issuerSigner = p }
}

// WithClock sets the time source of every engine.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New assembles a Service from cfg. A nil cfg uses the defaults of config.New.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.New(config.Config{})
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	s := &Service{
		cfg:     cfg,
		metrics: metrics.New(o.registerer),
		logger:  o.logger,
		now:     o.now,
	}

	if err := s.setup(ctx, o); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

func (s *Service) setup(ctx context.Context, o options) error {
	issuerSigner := o.issuerSigner
	if issuerSigner == nil {
		p, err := newIssuerSigner(s.cfg)
		if err != nil {
			return fmt.Errorf("failed to create issuer signer: %w", err)
		}
		issuerSigner = p
	}

	s.store = o.store
	if s.store == nil {
		store, err := s.openStore()
		if err != nil {
			return fmt.Errorf("failed to open %s storage: %w", s.cfg.StorageBackend, err)
		}
		s.store = store
	}

	s.anchorer = o.anchorer
	if s.anchorer == nil && s.cfg.Anchoring() {
		registry, err := s.dialRegistry(ctx)
		if err != nil {
			return fmt.Errorf("failed to connect DID registry: %w", err)
		}
		s.anchorer = registry
	}

	s.dids = did.NewEngine(
		did.WithMethod(s.cfg.Method),
		did.WithAnchorer(s.anchorer),
		did.WithLogger(s.logger),
		did.WithMetrics(s.metrics),
		did.WithClock(s.now),
	)
	s.issuer = vc.NewIssuer(
		vc.WithSigner(issuerSigner),
		vc.WithStore(s.store),
		vc.WithBucket(s.cfg.VCBucket),
		vc.WithMethod(s.cfg.Method),
		vc.WithLogger(s.logger),
		vc.WithMetrics(s.metrics),
		vc.WithClock(s.now),
	)
	s.vps = vp.NewEngine(
		vp.WithStore(s.store),
		vp.WithBucket(s.cfg.VPBucket),
		vp.WithMethod(s.cfg.Method),
		vp.WithLogger(s.logger),
		vp.WithMetrics(s.metrics),
		vp.WithClock(s.now),
	)

	s.logger.InfoContext(ctx, "identity service ready",
		"method", s.cfg.Method,
		"storage", s.cfg.StorageBackend,
		"anchoring", s.anchorer != nil,
		"issuer", s.issuer.DID(),
	)

	return nil
}

func newIssuerSigner(cfg *config.Config) (signer.SignerProvider, error) {
	switch {
	case cfg.IssuerSignerURL != "":
		address := cfg.IssuerAddress
		if address == "" {
			local, err := signer.NewDefaultProvider(cfg.IssuerKey)
			if err != nil {
				return nil, err
			}
			address = local.GetAddress()
		}
		return signer.NewRemoteProvider(cfg.IssuerSignerURL, address, signer.WithAPIKey(cfg.IssuerSignerAPIKey))
	case cfg.IssuerKey != "":
		return signer.NewDefaultProvider(cfg.IssuerKey)
	default:
		return nil, nil
	}
}

func (s *Service) openStore() (storage.Store, error) {
	switch s.cfg.StorageBackend {
	case config.BackendIPFS:
		return ipfs.New(s.cfg.IPFSAPIURL, s.cfg.IPFSGatewayURL)
	case config.BackendRedis:
		store, err := redis.NewFromURL(s.cfg.RedisURL, s.cfg.StoragePublicURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	default:
		return memory.New(s.cfg.StoragePublicURL), nil
	}
}

func (s *Service) dialRegistry(ctx context.Context) (*blockchain.Registry, error) {
	registrar, err := signer.NewDefaultProvider(s.cfg.RegistrarKey)
	if err != nil {
		return nil, fmt.Errorf("invalid registrar key: %w", err)
	}

	registry, err := blockchain.Dial(ctx, s.cfg.RPCURL, s.cfg.RegistryAddress, s.cfg.ChainID, registrar,
		blockchain.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() error {
		registry.Close()
		return nil
	})

	return registry, nil
}

// Close releases the connections opened by New.
func (s *Service) Close() error {
	var err error
	for _, closeFn := range s.closers {
		err = errors.Join(err, closeFn())
	}
	s.closers = nil

	return err
}

// Metrics returns the metrics updated by the engines.
func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

// CreateDID creates the DID document of a wallet address.
func (s *Service) CreateDID(ctx context.Context, address string, profile *did.Profile) (*did.Created, error) {
	return s.dids.CreateDID(ctx, address, profile)
}

// VerifyDID verifies a DID document against a wallet address and an
// ownership signature.
func (s *Service) VerifyDID(ctx context.Context, address string, document json.RawMessage, signature string) result.Verification {
	return s.dids.VerifyDID(ctx, address, document, signature)
}

// IsAnchored reports whether a document is registered on chain.
func (s *Service) IsAnchored(ctx context.Context, document any) (bool, error) {
	return s.dids.IsAnchored(ctx, document)
}

// SignChallenge signs the ownership challenge of didID with a raw private
// key. It fails with errs.ErrDevSigningDisabled unless the configuration
// enables development signing.
func (s *Service) SignChallenge(privateKey, didID string) (*did.Challenge, error) {
	if !s.cfg.DevSigningEnabled {
		return nil, errs.ErrDevSigningDisabled
	}

	return did.SignChallenge(privateKey, didID)
}

// IssueVC issues and stores a credential for holderDID.
func (s *Service) IssueVC(ctx context.Context, holderDID string, claims map[string]interface{}) (*vc.Issued, error) {
	return s.issuer.IssueVC(ctx, holderDID, claims)
}

// CreateVP creates and stores a presentation signed with the holder key.
func (s *Service) CreateVP(ctx context.Context, holderPrivateKey string, vcs []vc.Credential) (*vp.Created, error) {
	return s.vps.CreateVPWithKey(ctx, holderPrivateKey, vcs)
}

// VerifyVP verifies a presentation and every credential it embeds.
func (s *Service) VerifyVP(ctx context.Context, presentation vp.Presentation) result.Verification {
	return s.vps.VerifyVP(ctx, presentation)
}

// VerifyVPJSON parses and verifies a JSON presentation.
func (s *Service) VerifyVPJSON(ctx context.Context, raw []byte) result.Verification {
	presentation, err := vp.ParsePresentation(raw)
	if err != nil {
		return result.Errored(errs.Wrap(errs.ErrInvalidInput, err))
	}

	return s.vps.VerifyVP(ctx, presentation)
}

// Health is a liveness report.
type Health struct {
	Status    string    `json:"status"`
	Time      time.Time `json:"time"`
	Method    string    `json:"method"`
	Anchoring bool      `json:"anchoring"`
	Issuer    string    `json:"issuer,omitempty"`
}

// Health reports that the service is up.
func (s *Service) Health() Health {
	return Health{
		Status:    "ok",
		Time:      s.now().UTC(),
		Method:    s.cfg.Method,
		Anchoring: s.anchorer != nil,
		Issuer:    s.issuer.DID(),
	}
}

var _ io.Closer = (*Service)(nil)
