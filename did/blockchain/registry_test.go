package blockchain

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-bnb-identity/did/signer"
)

const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestRegistryABI(t *testing.T) {
	parsed, err := RegistryABI()
	require.NoError(t, err)

	document := `{"id":"did:bnb:0xabc"}`
	digest := crypto.Keccak256Hash([]byte(document))

	packed, err := parsed.Pack("registerDID", document, digest)
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256([]byte("registerDID(string,bytes32)"))[:4], packed[:4])

	packed, err = parsed.Pack("isRegistered", digest)
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256([]byte("isRegistered(bytes32)"))[:4], packed[:4])
	assert.Len(t, packed, 4+32)

	_, ok := parsed.Events["DIDRegistered"]
	assert.True(t, ok)
}

func TestTxSignerFn(t *testing.T) {
	p, err := signer.NewDefaultProvider(testPrivateKey)
	require.NoError(t, err)

	chainID := big.NewInt(97)
	signFn := TxSignerFn(chainID, p)

	to := common.HexToAddress("0x6aD11619F8912f800A6f5CF05BD63Bb60e7ad160")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     1,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21000,
		To:        &to,
	})

	signed, err := signFn(common.HexToAddress(p.GetAddress()), tx)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(p.GetAddress()), sender)

	_, err = signFn(to, tx)
	assert.Error(t, err)
}

type fakeReceipts struct {
	calls    atomic.Int32
	pending  int32
	receipt  *types.Receipt
	failWith error
}

func (f *fakeReceipts) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	n := f.calls.Add(1)
	if f.failWith != nil {
		return nil, f.failWith
	}
	if n <= f.pending {
		return nil, ethereum.NotFound
	}

	return f.receipt, nil
}

func TestWaitForReceipt(t *testing.T) {
	want := &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(7)}
	fetcher := &fakeReceipts{pending: 2, receipt: want}

	got, err := waitForReceipt(context.Background(), fetcher, common.Hash{1}, time.Millisecond)
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, int32(3), fetcher.calls.Load())
}

func TestWaitForReceiptErrors(t *testing.T) {
	fetcher := &fakeReceipts{failWith: errors.New("connection refused")}
	_, err := waitForReceipt(context.Background(), fetcher, common.Hash{1}, time.Millisecond)
	assert.ErrorContains(t, err, "connection refused")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = waitForReceipt(ctx, &fakeReceipts{pending: 1 << 30}, common.Hash{1}, time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRegistryValidates(t *testing.T) {
	p, err := signer.NewDefaultProvider(testPrivateKey)
	require.NoError(t, err)

	_, err = NewRegistry(nil, "0x6aD11619F8912f800A6f5CF05BD63Bb60e7ad160", 97, p)
	assert.Error(t, err)

	_, err = Dial(context.Background(), "", "0x6aD11619F8912f800A6f5CF05BD63Bb60e7ad160", 97, p)
	assert.Error(t, err)
}
