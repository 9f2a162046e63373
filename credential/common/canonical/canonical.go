// Package canonical provides the two serializations used by the identity engines.
//
// Canonicalize is the content-addressing form of DID documents: top-level
// keys are emitted in lexicographic order, nested values keep the order they
// were encoded in. Nested key order and array order therefore still affect the
// digest; documents must be exchanged with their nested JSON untouched.
// String escaping does not: every string is re-encoded without HTML escaping,
// so "x&y" and "x\u0026y" hash alike.
//
// PlainJSON is the signing form of credentials and presentations: the value
// encoded as is, with no key reordering beyond what encoding/json does for maps.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Canonicalize returns the sorted-top-level-key serialization of v.
//
// v may be any JSON-encodable value whose encoding is an object, or raw JSON
// bytes (json.RawMessage or []byte).
func Canonicalize(v any) ([]byte, error) {
	raw, err := encode(v)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document object: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("document must be a JSON object")
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range slices.Sorted(maps.Keys(fields)) {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := marshal(key)
		if err != nil {
			return nil, fmt.Errorf("failed to encode key %q: %w", key, err)
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		if err := reencode(&buf, fields[key]); err != nil {
			return nil, fmt.Errorf("failed to encode value of %q: %w", key, err)
		}
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Hash returns the lowercase hex SHA-256 digest of Canonicalize(v), without prefix.
func Hash(v any) (string, error) {
	doc, err := Canonicalize(v)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize document: %w", err)
	}

	sum := sha256.Sum256(doc)

	return hex.EncodeToString(sum[:]), nil
}

// PlainJSON returns the signing serialization of v.
func PlainJSON(v any) ([]byte, error) {
	data, err := encode(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to compact JSON: %w", err)
	}

	return buf.Bytes(), nil
}

// Keccak256 returns the on-chain digest of a canonical document string,
// matching Solidity's keccak256(bytes(document)).
func Keccak256(document []byte) common.Hash {
	return crypto.Keccak256Hash(document)
}

func encode(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("document is nil")
	case json.RawMessage:
		if len(val) == 0 {
			return nil, fmt.Errorf("document is empty")
		}
		return val, nil
	case []byte:
		if len(val) == 0 {
			return nil, fmt.Errorf("document is empty")
		}
		return val, nil
	default:
		data, err := marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document: %w", err)
		}
		return data, nil
	}
}

// reencode writes raw compacted, keeping member and element order, with every
// string and number re-emitted in the form marshal produces.
func reencode(buf *bytes.Buffer, raw json.RawMessage) error {
	type level struct {
		object bool
		tokens int
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var stack []level
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if d, ok := tok.(json.Delim); ok && (d == '}' || d == ']') {
			stack = stack[:len(stack)-1]
			buf.WriteByte(byte(d))
			continue
		}

		if n := len(stack); n > 0 {
			top := &stack[n-1]
			switch {
			case top.tokens == 0:
			case top.object && top.tokens%2 == 1:
				buf.WriteByte(':')
			default:
				buf.WriteByte(',')
			}
			top.tokens++
		}

		switch v := tok.(type) {
		case json.Delim:
			buf.WriteByte(byte(v))
			stack = append(stack, level{object: v == '{'})
		case json.Number:
			buf.WriteString(v.String())
		default:
			data, err := marshal(v)
			if err != nil {
				return err
			}
			buf.Write(data)
		}
	}
}

// marshal encodes v without HTML escaping and without the trailing newline
// added by json.Encoder.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
