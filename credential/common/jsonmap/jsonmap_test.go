package jsonmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-bnb-identity/credential/common/dto"
)

func TestParseKeepsNumbers(t *testing.T) {
	m, err := Parse([]byte(`{"score": 12345678901234567890, "ratio": 1.50, "name": "a"}`))
	require.NoError(t, err)

	out, err := m.ToJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"name":"a","ratio":1.50,"score":12345678901234567890}`, string(out))
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "array", in: `[1]`},
		{name: "null", in: `null`},
		{name: "broken", in: `{"a":`},
		{name: "trailing", in: `{"a":1} {"b":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestSigningInputExcludesProof(t *testing.T) {
	m := JSONMap{"holder": "did:bnb:0x1", "type": []interface{}{"VerifiablePresentation"}}
	unsigned, err := m.SigningInput()
	require.NoError(t, err)

	require.NoError(t, m.AddCustomProof(&dto.Proof{
		Type:               dto.ProofTypeSecp256k1,
		Created:            "2025-01-01T00:00:00.000Z",
		VerificationMethod: "did:bnb:0x1#key-1",
		ProofPurpose:       dto.PurposeAuthentication,
		Signature:          "0xabc",
	}))

	signed, err := m.SigningInput()
	require.NoError(t, err)
	assert.Equal(t, string(unsigned), string(signed))
	assert.Equal(t, `{"holder":"did:bnb:0x1","type":["VerifiablePresentation"]}`, string(signed))

	_, stillThere := m["proof"]
	assert.True(t, stillThere, "SigningInput must not mutate the map")
}

func TestProofRoundTrip(t *testing.T) {
	m, err := Parse([]byte(`{"proof":{"type":"EcdsaSecp256k1Signature2019","created":"c","proofPurpose":"assertionMethod","verificationMethod":"vm","signature":"0x01"}}`))
	require.NoError(t, err)

	proof, err := m.Proof()
	require.NoError(t, err)
	assert.Equal(t, dto.Proof{
		Type:               dto.ProofTypeSecp256k1,
		Created:            "c",
		VerificationMethod: "vm",
		ProofPurpose:       dto.PurposeAssertionMethod,
		Signature:          "0x01",
	}, proof)
}

func TestProofErrors(t *testing.T) {
	_, err := JSONMap{}.Proof()
	assert.Error(t, err)

	_, err = JSONMap{"proof": "not an object"}.Proof()
	assert.Error(t, err)

	_, err = JSONMap{"proof": map[string]interface{}{"type": "x"}}.Proof()
	assert.Error(t, err)
}

func TestTypes(t *testing.T) {
	assert.Equal(t, []string{"A"}, JSONMap{"type": "A"}.Types())
	assert.Equal(t, []string{"A", "B"}, JSONMap{"type": []interface{}{"A", 1, "B"}}.Types())
	assert.Nil(t, JSONMap{}.Types())
}
