package blockchain

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-bnb-identity/did/signer"
)

//go:embed did-contract/bnb_did_registry.json
var registryArtifactJSON []byte

// HardhatArtifact is the subset of a Hardhat build artifact holding the ABI.
type HardhatArtifact struct {
	Format       string          `json:"_format"`
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
}

// RegistryABI returns the parsed ABI of the DID registry contract.
var RegistryABI = sync.OnceValues(func() (abi.ABI, error) {
	var artifact HardhatArtifact
	if err := json.Unmarshal(registryArtifactJSON, &artifact); err != nil {
		return abi.ABI{}, fmt.Errorf("error parsing smc abi JSON: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(string(artifact.ABI)))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI: %w", err)
	}

	return parsed, nil
})

// Backend is the chain client used by the registry.
type Backend interface {
	bind.ContractBackend
	receiptFetcher
}

// Receipt is the outcome of a mined registration transaction.
type Receipt struct {
	TxHash       common.Hash `json:"txHash"`
	BlockNumber  uint64      `json:"blockNumber"`
	GasUsed      uint64      `json:"gasUsed"`
	DocumentHash common.Hash `json:"documentHash"`
}

// Registry registers DID documents in the BNB DID registry contract.
type Registry struct {
	contract     *bind.BoundContract
	backend      Backend
	contractAddr common.Address
	chainID      *big.Int
	txSigner     signer.SignerProvider
	pollInterval time.Duration
	logger       *slog.Logger
	close        func()
}

// Option configures a Registry.
type Option func(*Registry)

// WithPollInterval sets how often the receipt is polled.
func WithPollInterval(d time.Duration) Option {
	return func(r *Registry) { r.pollInterval = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry creates a registry client over an existing backend.
// txSigner pays for and signs the registration transactions.
func NewRegistry(backend Backend, address string, chainID int64, txSigner signer.SignerProvider, opts ...Option) (*Registry, error) {
	if backend == nil {
		return nil, fmt.Errorf("chain backend is required")
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid registry address %q", address)
	}
	if txSigner == nil {
		return nil, fmt.Errorf("transaction signer is required")
	}

	parsedABI, err := RegistryABI()
	if err != nil {
		return nil, err
	}

	contractAddr := common.HexToAddress(address)
	r := &Registry{
		contract:     bind.NewBoundContract(contractAddr, parsedABI, backend, backend, backend),
		backend:      backend,
		contractAddr: contractAddr,
		chainID:      big.NewInt(chainID),
		txSigner:     txSigner,
		pollInterval: 2 * time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Dial connects to rpcURL over an instrumented HTTP client and creates a registry client.
func Dial(ctx context.Context, rpcURL, address string, chainID int64, txSigner signer.SignerProvider, opts ...Option) (*Registry, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("invalid configuration: RPC URL missing")
	}

	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	rpcClient, err := rpc.DialOptions(ctx, rpcURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC: %w", err)
	}

	r, err := NewRegistry(ethclient.NewClient(rpcClient), address, chainID, txSigner, opts...)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	r.close = rpcClient.Close

	return r, nil
}

// Close releases the RPC connection opened by Dial.
func (r *Registry) Close() {
	if r.close != nil {
		r.close()
	}
}

// RegisterDocument submits registerDID(document, digest) and waits for it to be mined.
func (r *Registry) RegisterDocument(ctx context.Context, document string, digest common.Hash) (*Receipt, error) {
	auth := &bind.TransactOpts{
		From:    common.HexToAddress(r.txSigner.GetAddress()),
		Context: ctx,
		Signer:  TxSignerFn(r.chainID, r.txSigner),
	}

	tx, err := r.contract.Transact(auth, "registerDID", document, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to send registerDID Tx: %w", err)
	}
	r.logger.InfoContext(ctx, "registerDID transaction sent", "tx", tx.Hash().Hex(), "digest", digest.Hex())

	receipt, err := waitForReceipt(ctx, r.backend, tx.Hash(), r.pollInterval)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("registerDID Tx %s reverted in block %d", tx.Hash().Hex(), receipt.BlockNumber)
	}

	out := &Receipt{
		TxHash:       receipt.TxHash,
		GasUsed:      receipt.GasUsed,
		DocumentHash: digest,
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}

	return out, nil
}

// IsRegistered reports whether digest has been registered.
func (r *Registry) IsRegistered(ctx context.Context, digest common.Hash) (bool, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "isRegistered", digest); err != nil {
		return false, fmt.Errorf("failed to call isRegistered: %w", err)
	}
	if len(out) != 1 {
		return false, fmt.Errorf("unexpected isRegistered output length %d", len(out))
	}

	registered, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isRegistered output type %T", out[0])
	}

	return registered, nil
}

// Address returns the registry contract address.
func (r *Registry) Address() common.Address {
	return r.contractAddr
}
