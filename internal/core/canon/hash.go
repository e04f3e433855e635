// Package canon provides deterministic canonical hashing of arbitrary
// JSON-able payloads. It backs the audit hash chain (4.A) and the anchor
// client's bytes32 hashes (4.F): both require that the same logical
// payload always serializes to the exact same bytes before hashing,
// independent of map key iteration order or numeric formatting.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Hash32 is a 32-byte SHA-256 digest, the unit the audit chain and the
// anchor client both deal in
type Hash32 [32]byte

// Bytes returns the slice form of the digest
func (h Hash32) Bytes() []byte { return h[:] }

// Hex returns the lowercase hex encoding of the digest
func (h Hash32) Hex() string { return hex.EncodeToString(h[:]) }

// IsZero reports whether h is the all-zero sentinel (used as prev_hash for
// the first audit entry, seq=1)
func (h Hash32) IsZero() bool { return h == Hash32{} }

// FromBytes converts a byte slice to a Hash32, ok=false if length != 32
func FromBytes(b []byte) (Hash32, bool) {
	var h Hash32
	if len(b) != len(h) {
		return Hash32{}, false
	}
	copy(h[:], b)
	return h, true
}

// Marshal produces the canonical byte form of v: UTF-8 JSON with object
// keys sorted lexicographically at every nesting level, and numbers
// rendered in their shortest unambiguous decimal form. v must already be a
// JSON-able value (map[string]any, []any, string, float64/int, bool, nil)
// as produced by encoding/json.Unmarshal, or a value whose json.Marshal
// output is first round-tripped through that shape.
func Marshal(v any) ([]byte, error) {
	norm, err := normalize(v)
	if err != nil {
		return nil, fmt.Errorf("canon: normalize: %w", err)
	}
	return encode(norm)
}

// Sum256 returns the SHA-256 digest of the canonical form of v
func Sum256(v any) (Hash32, error) {
	b, err := Marshal(v)
	if err != nil {
		return Hash32{}, err
	}
	return sha256.Sum256(b), nil
}

// normalize round-trips v through encoding/json so struct values, maps with
// non-string-keyed types, etc. all collapse to the same plain-value shape
// json.Unmarshal would have produced, which is what canonicalization needs
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// encode writes the canonical JSON form of a normalized value (the shape
// produced by normalize: map[string]any, []any, json.Number, string, bool, nil)
func encode(v any) ([]byte, error) {
	buf := make([]byte, 0, 256)
	var err error
	buf, err = appendValue(buf, v)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func appendValue(buf []byte, v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return append(buf, "null"...), nil
	case bool:
		if t {
			return append(buf, "true"...), nil
		}
		return append(buf, "false"...), nil
	case json.Number:
		return appendNumber(buf, t)
	case string:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return append(buf, b...), nil
	case map[string]any:
		return appendObject(buf, t)
	case []any:
		return appendArray(buf, t)
	default:
		return nil, fmt.Errorf("canon: unsupported value type %T", v)
	}
}

func appendObject(buf []byte, m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf, err = appendValue(buf, m[k])
		if err != nil {
			return nil, err
		}
	}
	buf = append(buf, '}')
	return buf, nil
}

func appendArray(buf []byte, a []any) ([]byte, error) {
	buf = append(buf, '[')
	for i, v := range a {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		buf, err = appendValue(buf, v)
		if err != nil {
			return nil, err
		}
	}
	buf = append(buf, ']')
	return buf, nil
}

// appendNumber renders a JSON number in its shortest unambiguous decimal
// form. Integral values are emitted without a decimal point or exponent;
// non-integral float64 values use strconv's shortest round-trip form.
// Hashable payloads must not contain floats with precision beyond what
// float64 preserves — callers are responsible for not handing us NaN/Inf.
func appendNumber(buf []byte, n json.Number) ([]byte, error) {
	if i, err := n.Int64(); err == nil {
		return append(buf, strconv.FormatInt(i, 10)...), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("canon: invalid number %q: %w", n.String(), err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("canon: NaN/Inf not hashable: %q", n.String())
	}
	return append(buf, strconv.FormatFloat(f, 'g', -1, 64)...), nil
}
