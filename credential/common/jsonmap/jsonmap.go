package jsonmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pilacorp/go-bnb-identity/credential/common/canonical"
	"github.com/pilacorp/go-bnb-identity/credential/common/dto"
)

// JSONMap represents a JSON object as a map.
type JSONMap map[string]interface{}

// Parse decodes a JSON object into a JSONMap.
//
// Numbers are kept as json.Number so they re-serialize exactly as received.
func Parse(raw []byte) (JSONMap, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var m JSONMap
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode JSON object: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("JSON value is not an object")
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}

	return m, nil
}

// ToJSON serializes the JSONMap to JSON.
func (m *JSONMap) ToJSON() ([]byte, error) {
	if m == nil || *m == nil {
		return nil, fmt.Errorf("JSONMap is nil")
	}

	data, err := canonical.PlainJSON(map[string]interface{}(*m))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSONMap: %w", err)
	}

	return data, nil
}

// Without returns a shallow copy of the JSONMap without key.
func (m JSONMap) Without(key string) JSONMap {
	out := make(JSONMap, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}

	return out
}

// SigningInput returns the plain-JSON serialization of the JSONMap with the
// proof field removed.
func (m JSONMap) SigningInput() ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("JSONMap is nil")
	}

	data, err := canonical.PlainJSON(map[string]interface{}(m.Without("proof")))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize signing input: %w", err)
	}

	return data, nil
}

// AddCustomProof adds a proof to the JSONMap, replacing any existing one.
func (m *JSONMap) AddCustomProof(proof *dto.Proof) error {
	if m == nil || *m == nil {
		return fmt.Errorf("JSONMap is nil")
	}
	if proof == nil {
		return fmt.Errorf("proof is nil")
	}
	(*m)["proof"] = SerializeProof(*proof)

	return nil
}

// Proof returns the parsed proof of the JSONMap.
func (m JSONMap) Proof() (dto.Proof, error) {
	raw, ok := m["proof"]
	if !ok {
		return dto.Proof{}, fmt.Errorf("JSONMap has no proof")
	}

	return ParseRawToProof(raw)
}

// String returns the string value of key, or "" when absent or not a string.
func (m JSONMap) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Types returns the "type" field as a list, accepting a single string.
func (m JSONMap) Types() []string {
	switch v := m["type"].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// SerializeProof converts a Proof struct to its JSON object form.
func SerializeProof(proof dto.Proof) map[string]interface{} {
	out := map[string]interface{}{
		"type":               proof.Type,
		"created":            proof.Created,
		"verificationMethod": proof.VerificationMethod,
		"proofPurpose":       proof.ProofPurpose,
	}
	if proof.Signature != "" {
		out["signature"] = proof.Signature
	}

	return out
}

// ParseRawToProof converts a JSON object to a Proof struct.
func ParseRawToProof(proof interface{}) (dto.Proof, error) {
	var result dto.Proof

	var proofMap map[string]interface{}
	switch v := proof.(type) {
	case map[string]interface{}:
		proofMap = v
	case JSONMap:
		proofMap = v
	default:
		return result, fmt.Errorf("invalid proof format: expected object, got %T", proof)
	}

	if t, ok := proofMap["type"].(string); ok {
		result.Type = t
	}
	if created, ok := proofMap["created"].(string); ok {
		result.Created = created
	}
	if purpose, ok := proofMap["proofPurpose"].(string); ok {
		result.ProofPurpose = purpose
	}
	if vm, ok := proofMap["verificationMethod"].(string); ok {
		result.VerificationMethod = vm
	}
	if sig, ok := proofMap["signature"].(string); ok {
		result.Signature = strings.TrimSpace(sig)
	}

	if result.Signature == "" {
		return result, fmt.Errorf("proof has no signature")
	}

	return result, nil
}
