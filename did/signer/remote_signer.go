package signer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RemoteProvider is a signer provider that signs digests through a remote
// signing API, so the issuer key never enters this process.
type RemoteProvider struct {
	endpoint string
	apiKey   string
	address  string
	client   *http.Client
}

// RemoteOption configures a RemoteProvider.
type RemoteOption func(*RemoteProvider)

// WithHTTPClient overrides the HTTP client used to reach the signing API.
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(r *RemoteProvider) { r.client = client }
}

// WithAPIKey sets the value sent in the x-api-key header.
func WithAPIKey(apiKey string) RemoteOption {
	return func(r *RemoteProvider) { r.apiKey = apiKey }
}

// NewRemoteProvider creates a new RemoteProvider.
//
// address is the wallet address of the remote key; it is reported by
// GetAddress and used to build the issuer DID.
func NewRemoteProvider(endpoint, address string, opts ...RemoteOption) (SignerProvider, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("endpoint required")
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid signer address %q", address)
	}

	r := &RemoteProvider{
		endpoint: endpoint,
		address:  strings.ToLower(common.HexToAddress(address).Hex()),
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Sign signs a payload using the remote API.
func (s *RemoteProvider) Sign(payload []byte) ([]byte, error) {
	if len(payload) != 32 {
		return nil, fmt.Errorf("payload must be 32 bytes, got %d", len(payload))
	}

	reqBody, err := json.Marshal(map[string]any{
		"payload_hex": hex.EncodeToString(payload),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		context.Background(),
		http.MethodPost,
		s.endpoint,
		bytes.NewReader(reqBody),
	)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call remote signer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote signer http %d", resp.StatusCode)
	}

	var out struct {
		SignatureHex string `json:"signature_hex"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode remote signer response: %w", err)
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(out.SignatureHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature hex: %w", err)
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("invalid signature length %d", len(sig))
	}

	return sig, nil
}

// GetAddress returns the address of the remote key.
func (s *RemoteProvider) GetAddress() string {
	return s.address
}
