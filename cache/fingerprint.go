package cache

import (
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Key derives the cache key for a query with bound parameters.
//
// Parameters are serialized as canonical JSON with sorted object keys, so
// two maps holding the same entries produce the same key regardless of
// insertion order, and a nil map is equivalent to an empty one. The key is
// the hex BLAKE2b-256 digest of "query:params".
//
// Key fails only when params holds a value JSON cannot represent.
func Key(query string, params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}

	payload, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("serializing cache key params: %w", err)
	}

	sum := blake2b.Sum256([]byte(query + ":" + string(payload)))
	return fmt.Sprintf("%x", sum), nil
}
