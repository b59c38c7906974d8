package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// KeyNamespace prefixes every derived key so derived keys cannot collide
// with keys inserted directly by callers.
const KeyNamespace = "qc"

// anonymousOperation stands in for a missing operation name.
const anonymousOperation = "anonymous"

// Keyer derives deterministic cache keys from a logical query request.
//
// Contract:
// - Determinism: identical inputs must produce identical keys, regardless
//   of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key derives a cache key for one field resolution within a query.
	Key(operationName string, variables map[string]any, fieldName string, args map[string]any) (string, error)
}

// DefaultKeyer derives SHA-256 based cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key derives a deterministic cache key.
// Format: qc:<operation>:<field>:<hash>
// where hash is the first 32 hex characters of SHA-256 over the canonical
// representation of (operation, variables, field, args).
func (k *DefaultKeyer) Key(operationName string, variables map[string]any, fieldName string, args map[string]any) (string, error) {
	if operationName == "" {
		operationName = anonymousOperation
	}

	buf := make([]byte, 0, 128)
	buf = append(buf, operationName...)
	buf = append(buf, '|')
	var err error
	if buf, err = appendCanonical(buf, variables); err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize variables: %w", err)
	}
	buf = append(buf, '|')
	buf = append(buf, fieldName...)
	buf = append(buf, '|')
	if buf, err = appendCanonical(buf, args); err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize args: %w", err)
	}

	sum := sha256.Sum256(buf)
	// First 16 bytes = 128 bits, collision probability negligible for
	// practical cache sizes.
	return fmt.Sprintf("%s:%s:%s:%s", KeyNamespace, operationName, fieldName, hex.EncodeToString(sum[:16])), nil
}

// appendCanonical appends a deterministic JSON representation of v to dst.
// Map keys are sorted at every nesting level; slice order is preserved.
func appendCanonical(dst []byte, v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return append(dst, "null"...), nil

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		dst = append(dst, '{')
		for i, k := range keys {
			if i > 0 {
				dst = append(dst, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			dst = append(dst, kb...)
			dst = append(dst, ':')
			if dst, err = appendCanonical(dst, val[k]); err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil

	case []any:
		dst = append(dst, '[')
		var err error
		for i, item := range val {
			if i > 0 {
				dst = append(dst, ',')
			}
			if dst, err = appendCanonical(dst, item); err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil

	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return append(dst, b...), nil
	}
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
