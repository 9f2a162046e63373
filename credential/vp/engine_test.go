package vp_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/pilacorp/go-bnb-identity/credential/common/errs"
	"github.com/pilacorp/go-bnb-identity/credential/common/metrics"
	"github.com/pilacorp/go-bnb-identity/credential/common/result"
	"github.com/pilacorp/go-bnb-identity/credential/vc"
	"github.com/pilacorp/go-bnb-identity/credential/vp"
	"github.com/pilacorp/go-bnb-identity/did/signer"
	"github.com/pilacorp/go-bnb-identity/storage"
	"github.com/pilacorp/go-bnb-identity/storage/memory"
	"github.com/pilacorp/go-bnb-identity/storage/mocks"
)

const (
	issuerKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	holderKey     = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	holderDID     = "did:bnb:0x70997970c51812dc3a010c7d01b50e0d17dc79c8"
	holderAddress = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	strangerKey   = "0x5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func issueCredentials(t *testing.T, n int) []vc.Credential {
	t.Helper()

	p, err := signer.NewDefaultProvider(issuerKey)
	require.NoError(t, err)
	issuedAt := now.Add(-time.Second)
	issuer := vc.NewIssuer(
		vc.WithSigner(p),
		vc.WithStore(memory.New("")),
		vc.WithClock(func() time.Time {
			issuedAt = issuedAt.Add(time.Millisecond)
			return issuedAt
		}),
		vc.WithLogger(quiet),
	)

	out := make([]vc.Credential, n)
	for i := range out {
		issued, err := issuer.IssueVC(context.Background(), holderDID, map[string]interface{}{"seq": i})
		require.NoError(t, err)
		out[i] = reparse(t, issued.Credential)
	}

	return out
}

func reparse(t *testing.T, c vc.Credential) vc.Credential {
	t.Helper()

	data, err := c.Serialize()
	require.NoError(t, err)
	parsed, err := vc.ParseCredential(data)
	require.NoError(t, err)

	return parsed
}

func tamper(c vc.Credential) {
	c["credentialSubject"].(map[string]interface{})["seq"] = 999
}

func newEngine(t *testing.T, clock *time.Time, opts ...vp.Option) (*vp.Engine, *memory.Store) {
	t.Helper()

	store := memory.New("https://files.example")
	base := []vp.Option{
		vp.WithStore(store),
		vp.WithClock(func() time.Time { return *clock }),
		vp.WithLogger(quiet),
	}

	return vp.NewEngine(append(base, opts...)...), store
}

func TestCreateAndVerifyVP(t *testing.T) {
	clock := now
	m := metrics.New(prometheus.NewRegistry())
	engine, store := newEngine(t, &clock, vp.WithMetrics(m))
	vcs := issueCredentials(t, 3)

	created, err := engine.CreateVPWithKey(context.Background(), holderKey, vcs)
	require.NoError(t, err)

	assert.Equal(t, holderDID, created.Presentation.Holder())
	object := "vp/0x70997970c51812dc3a010c7d01b50e0d17dc79c8/1748779200000.json"
	assert.Equal(t, "https://files.example/presentations/"+object, created.Locator)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PresentationsCreated))

	clock = now.Add(time.Hour)
	res := engine.VerifyVP(context.Background(), created.Presentation)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, result.StatusVerified, res.Status)
	assert.Equal(t, "VP verification completed successfully", res.Message)
	require.Len(t, res.CredentialResults, 3)
	for i, r := range res.CredentialResults {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, vcs[i].ID(), r.ID)
		assert.True(t, r.Valid)
	}

	stored, err := store.Get(context.Background(), vp.DefaultBucket, object)
	require.NoError(t, err)
	parsed, err := vp.ParsePresentation(stored)
	require.NoError(t, err)
	assert.True(t, engine.VerifyVP(context.Background(), parsed).Success)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Verifications.WithLabelValues(metrics.ArtifactPresentation, result.StatusVerified)))
}

func TestVerifyVPFlagsExactlyTheTamperedCredential(t *testing.T) {
	clock := now
	engine, _ := newEngine(t, &clock, vp.WithConcurrency(3))
	vcs := issueCredentials(t, 12)
	tamper(vcs[4])
	tamper(vcs[9])

	created, err := engine.CreateVPWithKey(context.Background(), holderKey, vcs)
	require.NoError(t, err)

	res := engine.VerifyVP(context.Background(), created.Presentation)

	assert.False(t, res.Success)
	assert.Equal(t, result.StatusFailed, res.Status)
	assert.Equal(t, "2 of 12 credentials failed verification", res.Error)
	assert.Equal(t, errs.KindCryptographicMismatch, res.Reason)
	require.Len(t, res.CredentialResults, 12)
	for i, r := range res.CredentialResults {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, vcs[i].ID(), r.ID)
		if i == 4 || i == 9 {
			assert.False(t, r.Valid, "credential %d", i)
			assert.Equal(t, errs.KindCryptographicMismatch, r.Reason)
			assert.Contains(t, r.Error, "Credential signature verification failed")
			continue
		}
		assert.True(t, r.Valid, "credential %d: %s", i, r.Error)
	}
}

func TestVerifyVPExpiredCredentials(t *testing.T) {
	clock := now
	engine, _ := newEngine(t, &clock)
	vcs := issueCredentials(t, 2)

	created, err := engine.CreateVPWithKey(context.Background(), holderKey, vcs)
	require.NoError(t, err)

	clock = now.AddDate(2, 0, 0)
	res := engine.VerifyVP(context.Background(), created.Presentation)

	assert.False(t, res.Success)
	assert.Equal(t, errs.KindExpired, res.Reason)
	for _, r := range res.CredentialResults {
		assert.False(t, r.Valid)
		assert.Equal(t, errs.KindExpired, r.Reason)
	}
}

func TestVerifyVPHolderMismatch(t *testing.T) {
	clock := now
	engine, _ := newEngine(t, &clock)
	vcs := issueCredentials(t, 1)

	tests := []struct {
		name   string
		mutate func(p vp.Presentation)
	}{
		{
			name:   "holder replaced",
			mutate: func(p vp.Presentation) { p["holder"] = "did:bnb:0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266" },
		},
		{
			name:   "credential removed",
			mutate: func(p vp.Presentation) { p["verifiableCredential"] = []interface{}{} },
		},
		{
			name: "garbage signature",
			mutate: func(p vp.Presentation) {
				p["proof"].(map[string]interface{})["signature"] = "0x1234"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock = clock.Add(time.Millisecond)
			created, err := engine.CreateVPWithKey(context.Background(), holderKey, vcs)
			require.NoError(t, err)
			tt.mutate(created.Presentation)

			res := engine.VerifyVP(context.Background(), created.Presentation)

			assert.False(t, res.Success)
			assert.Equal(t, result.StatusFailed, res.Status)
			assert.Equal(t, errs.KindCryptographicMismatch, res.Reason)
			assert.Contains(t, res.Error, "Holder signature verification failed")
			assert.Empty(t, res.CredentialResults)
		})
	}
}

// impostor claims the holder address but signs with another key.
type impostor struct {
	signer.SignerProvider
}

func (impostor) GetAddress() string { return "0x70997970c51812dc3a010c7d01b50e0d17dc79c8" }

func TestVerifyVPSignedByAnotherKey(t *testing.T) {
	clock := now
	engine, _ := newEngine(t, &clock)

	stranger, err := signer.NewDefaultProvider(strangerKey)
	require.NoError(t, err)
	created, err := engine.CreateVP(context.Background(), impostor{stranger}, issueCredentials(t, 1))
	require.NoError(t, err)
	require.Equal(t, holderDID, created.Presentation.Holder())

	res := engine.VerifyVP(context.Background(), created.Presentation)

	assert.Equal(t,
		fmt.Sprintf("Holder signature verification failed. Recovered: %s, Expected: %s.",
			common.HexToAddress(stranger.GetAddress()).Hex(), holderAddress),
		res.Error,
	)
}

func TestVerifyVPStructure(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name:    "missing proof",
			raw:     `{"holder":"` + holderDID + `","verifiableCredential":[]}`,
			wantErr: "Invalid VP structure: Missing required field: proof",
		},
		{
			name:    "missing holder",
			raw:     `{"proof":{"signature":"0x01"},"verifiableCredential":[]}`,
			wantErr: "Invalid VP structure: Missing required field: holder",
		},
		{
			name:    "missing signature",
			raw:     `{"holder":"` + holderDID + `","proof":{},"verifiableCredential":[]}`,
			wantErr: "Invalid VP structure: Missing required field: proof.signature",
		},
		{
			name:    "credentials not a list",
			raw:     `{"holder":"` + holderDID + `","proof":{"signature":"0x01"},"verifiableCredential":{}}`,
			wantErr: "Invalid VP structure: verifiableCredential: Invalid type. Expected: array, given: object",
		},
		{
			name:    "holder is not a DID",
			raw:     `{"holder":"alice","proof":{"signature":"0x01"},"verifiableCredential":[]}`,
			wantErr: "Invalid VP structure: ",
		},
	}

	clock := now
	engine, _ := newEngine(t, &clock)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := vp.ParsePresentation([]byte(tt.raw))
			require.NoError(t, err)

			res := engine.VerifyVP(context.Background(), p)

			assert.False(t, res.Success)
			assert.Equal(t, result.StatusFailed, res.Status)
			assert.Equal(t, errs.KindStructuralViolation, res.Reason)
			assert.Contains(t, res.Error, tt.wantErr)
		})
	}
}

func TestVerifyVPNonObjectCredential(t *testing.T) {
	clock := now
	engine, _ := newEngine(t, &clock)
	vcs := issueCredentials(t, 1)

	holder, err := signer.NewDefaultProvider(holderKey)
	require.NoError(t, err)
	created, err := engine.CreateVP(context.Background(), holder, append(vcs, nil))
	require.NoError(t, err)

	res := engine.VerifyVP(context.Background(), created.Presentation)

	assert.False(t, res.Success)
	require.Len(t, res.CredentialResults, 2)
	assert.True(t, res.CredentialResults[0].Valid)
	assert.False(t, res.CredentialResults[1].Valid)
	assert.Equal(t, errs.KindStructuralViolation, res.CredentialResults[1].Reason)
}

func TestCreateVPErrors(t *testing.T) {
	clock := now

	engine := vp.NewEngine(vp.WithLogger(quiet))
	_, err := engine.CreateVPWithKey(context.Background(), holderKey, nil)
	assert.ErrorIs(t, err, errs.ErrStorageNotConfigured)

	engine, _ = newEngine(t, &clock)
	_, err = engine.CreateVPWithKey(context.Background(), "0xnope", nil)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = engine.CreateVP(context.Background(), nil, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().
		Put(gomock.Any(), "vps", gomock.Any(), gomock.Any(), storage.ContentTypeJSON).
		Return(nil, errors.New("bucket full"))

	engine, _ = newEngine(t, &clock, vp.WithStore(store), vp.WithBucket("vps"))
	_, err = engine.CreateVPWithKey(context.Background(), holderKey, nil)
	assert.ErrorIs(t, err, errs.ErrPresentationFailed)
	assert.Equal(t, errs.KindCollaboratorFailure, errs.KindOf(err))
}

func TestEmptyPresentationVerifies(t *testing.T) {
	clock := now
	engine, _ := newEngine(t, &clock)

	created, err := engine.CreateVPWithKey(context.Background(), holderKey, nil)
	require.NoError(t, err)

	res := engine.VerifyVP(context.Background(), created.Presentation)
	assert.True(t, res.Success, res.Error)
	assert.Empty(t, res.CredentialResults)
}
