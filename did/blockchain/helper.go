package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pilacorp/go-bnb-identity/did/signer"
)

// TxSignerFn adapts a SignerProvider to a bind.SignerFn for chainID.
func TxSignerFn(chainID *big.Int, txSigner signer.SignerProvider) bind.SignerFn {
	ethSigner := types.LatestSignerForChainID(chainID)
	from := common.HexToAddress(txSigner.GetAddress())

	return func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
		if addr != from {
			return nil, fmt.Errorf("signer %s cannot sign for %s", from.Hex(), addr.Hex())
		}

		sig, err := txSigner.Sign(ethSigner.Hash(tx).Bytes())
		if err != nil {
			return nil, fmt.Errorf("failed to sign transaction: %w", err)
		}
		if len(sig) != 65 {
			return nil, fmt.Errorf("invalid signature length: expected 65 bytes, got %d", len(sig))
		}

		raw := make([]byte, 65)
		copy(raw, sig)
		if raw[64] >= 27 {
			raw[64] -= 27
		}

		return tx.WithSignature(ethSigner, raw)
	}
}

// receiptFetcher is the part of the chain client used to wait for inclusion.
type receiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// waitForReceipt polls until tx is mined, ctx is done, or the node reports an
// error other than "not found".
func waitForReceipt(ctx context.Context, client receiptFetcher, txHash common.Hash, interval time.Duration) (*types.Receipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to fetch receipt for %s: %w", txHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
