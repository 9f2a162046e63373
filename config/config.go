// Package config holds the settings of an identity deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Default values
const (
	DefaultMethod         = "did:bnb"
	DefaultChainID        = 97
	DefaultStorageBackend = BackendMemory
	DefaultVCBucket       = "credentials"
	DefaultVPBucket       = "presentations"
	DefaultIPFSGateway    = "https://ipfs.io"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendIPFS   = "ipfs"
	BackendRedis  = "redis"
)

// Config holds the configuration of the identity engines and their collaborators.
//
// Chain settings are optional: without RPCURL and RegistryAddress, DIDs are
// created off chain only. Without an issuer key or signer URL, IssueVC fails
// with a not-configured error.
type Config struct {
	Method string

	RPCURL          string
	ChainID         int64
	RegistryAddress string
	// RegistrarKey signs registry transactions.
	RegistrarKey string

	IssuerKey          string
	IssuerSignerURL    string
	IssuerSignerAPIKey string
	// IssuerAddress is the address behind IssuerSignerURL. Defaults to the
	// address of IssuerKey when both are set.
	IssuerAddress string

	StorageBackend   string
	IPFSAPIURL       string
	IPFSGatewayURL   string
	RedisURL         string
	StoragePublicURL string
	VCBucket         string
	VPBucket         string

	// DevSigningEnabled exposes SignChallenge, which takes a raw private key.
	DevSigningEnabled bool
}

// New creates a new Config from cfg, filling empty fields with defaults.
// Pass an empty Config{} to use all defaults.
func New(cfg Config) *Config {
	result := cfg

	if result.Method == "" {
		result.Method = DefaultMethod
	}
	if result.ChainID == 0 {
		result.ChainID = DefaultChainID
	}
	if result.StorageBackend == "" {
		result.StorageBackend = DefaultStorageBackend
	}
	if result.IPFSGatewayURL == "" {
		result.IPFSGatewayURL = DefaultIPFSGateway
	}
	if result.VCBucket == "" {
		result.VCBucket = DefaultVCBucket
	}
	if result.VPBucket == "" {
		result.VPBucket = DefaultVPBucket
	}

	return &result
}

// FromEnv builds a Config from environment variables.
func FromEnv() (*Config, error) {
	chainID, err := envInt64("TESTNET_CHAIN_ID")
	if err != nil {
		return nil, err
	}
	devSigning, err := envBool("DEV_SIGNING_ENABLED")
	if err != nil {
		return nil, err
	}

	return New(Config{
		Method:             os.Getenv("DID_METHOD"),
		RPCURL:             os.Getenv("TESTNET_RPC_URL"),
		ChainID:            chainID,
		RegistryAddress:    os.Getenv("TESTNET_DID_REGISTRY"),
		RegistrarKey:       os.Getenv("TESTNET_PRIV_KEY"),
		IssuerKey:          os.Getenv("ISSUER_PRIV_KEY"),
		IssuerSignerURL:    os.Getenv("ISSUER_SIGNER_URL"),
		IssuerSignerAPIKey: os.Getenv("ISSUER_SIGNER_API_KEY"),
		IssuerAddress:      os.Getenv("ISSUER_ADDRESS"),
		StorageBackend:     strings.ToLower(os.Getenv("STORAGE_BACKEND")),
		IPFSAPIURL:         os.Getenv("IPFS_API_URL"),
		IPFSGatewayURL:     os.Getenv("IPFS_GATEWAY_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		StoragePublicURL:   os.Getenv("STORAGE_PUBLIC_URL"),
		VCBucket:           os.Getenv("VC_BUCKET"),
		VPBucket:           os.Getenv("VP_BUCKET"),
		DevSigningEnabled:  devSigning,
	}), nil
}

// Validate checks that the settings are consistent.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Method, "did:") || strings.Count(c.Method, ":") != 1 {
		return fmt.Errorf("invalid DID method %q", c.Method)
	}
	if c.RegistryAddress != "" && c.RPCURL == "" {
		return fmt.Errorf("TESTNET_RPC_URL is required with a registry address")
	}
	if c.RegistryAddress != "" && c.RegistrarKey == "" {
		return fmt.Errorf("TESTNET_PRIV_KEY is required with a registry address")
	}
	if c.IssuerSignerURL != "" && c.IssuerKey == "" && c.IssuerAddress == "" {
		return fmt.Errorf("ISSUER_ADDRESS is required with a remote issuer signer")
	}

	switch c.StorageBackend {
	case BackendMemory:
	case BackendIPFS:
		if c.IPFSAPIURL == "" {
			return fmt.Errorf("IPFS_API_URL is required for the ipfs backend")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	return nil
}

// Anchoring reports whether DIDs are registered on chain.
func (c *Config) Anchoring() bool {
	return c.RPCURL != "" && c.RegistryAddress != ""
}

func envInt64(key string) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}

	return parsed, nil
}

func envBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}

	return parsed, nil
}
