package vp

import (
	"fmt"

	"github.com/pilacorp/go-bnb-identity/credential/common/dto"
	"github.com/pilacorp/go-bnb-identity/credential/common/jsonmap"
	"github.com/pilacorp/go-bnb-identity/credential/vc"
)

// TypeVerifiablePresentation is the type of every presentation.
const TypeVerifiablePresentation = "VerifiablePresentation"

// DefaultContext is the @context of created presentations.
var DefaultContext = []string{"https://www.w3.org/2018/credentials/v1"}

// Presentation is a verifiable presentation in JSON object form.
type Presentation jsonmap.JSONMap

// ParsePresentation parses a JSON presentation.
func ParsePresentation(raw []byte) (Presentation, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("presentation is empty")
	}

	m, err := jsonmap.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal presentation: %w", err)
	}

	return Presentation(m), nil
}

// Holder returns the holder DID.
func (p Presentation) Holder() string {
	return jsonmap.JSONMap(p).String("holder")
}

// Credentials returns the embedded credentials in order. Entries that are
// not JSON objects are returned as nil.
func (p Presentation) Credentials() []vc.Credential {
	var entries []interface{}
	switch v := p["verifiableCredential"].(type) {
	case []interface{}:
		entries = v
	case []vc.Credential:
		return v
	case []map[string]interface{}:
		out := make([]vc.Credential, len(v))
		for i, c := range v {
			out[i] = vc.Credential(c)
		}
		return out
	default:
		return nil
	}

	out := make([]vc.Credential, len(entries))
	for i, entry := range entries {
		switch c := entry.(type) {
		case map[string]interface{}:
			out[i] = vc.Credential(c)
		case vc.Credential:
			out[i] = c
		case jsonmap.JSONMap:
			out[i] = vc.Credential(c)
		}
	}

	return out
}

// GetSigningInput returns the bytes covered by the holder proof.
func (p Presentation) GetSigningInput() ([]byte, error) {
	return jsonmap.JSONMap(p).SigningInput()
}

// AddCustomProof attaches proof to the presentation.
func (p *Presentation) AddCustomProof(proof *dto.Proof) error {
	if p == nil {
		return fmt.Errorf("presentation is nil")
	}

	return (*jsonmap.JSONMap)(p).AddCustomProof(proof)
}

// Serialize returns the JSON form of the presentation.
func (p Presentation) Serialize() ([]byte, error) {
	if _, ok := p["proof"]; !ok {
		return nil, fmt.Errorf("presentation must have proof before serialization")
	}

	m := jsonmap.JSONMap(p)
	return m.ToJSON()
}
