package mapping

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// defaultBucketHours is the cache-key time bucket width. Predictions for
// the same record identity within one bucket share a key.
const defaultBucketHours = 6

// buildKey derives a deterministic, time-bucketed cache key:
//
//	predict:<model>:<tenant>:<bucket>:<hash>
//
// The hash covers only the identity fields passed in, canonicalized so
// map ordering cannot perturb the key.
func buildKey(model ModelType, opts Options, identity map[string]any) (string, error) {
	bucketHours := opts.BucketHours
	if bucketHours <= 0 {
		bucketHours = defaultBucketHours
	}
	bucket := time.Now().UTC().Truncate(time.Duration(bucketHours) * time.Hour)

	canonical, err := canonicalize(identity)
	if err != nil {
		return "", fmt.Errorf("mapping: canonicalize cache key input: %w", err)
	}
	sum := sha256.Sum256([]byte(canonical))

	tenant := opts.TenantID
	if tenant == "" {
		tenant = "default"
	}
	return strings.Join([]string{
		"predict",
		model.String(),
		tenant,
		bucket.Format("2006010215"),
		hex.EncodeToString(sum[:8]),
	}, ":"), nil
}

// canonicalize renders a value as deterministic JSON with sorted map keys.
func canonicalize(v any) (string, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kj, err := json.Marshal(k)
			if err != nil {
				return "", err
			}
			b.Write(kj)
			b.WriteByte(':')
			vj, err := canonicalize(t[k])
			if err != nil {
				return "", err
			}
			b.WriteString(vj)
		}
		b.WriteByte('}')
		return b.String(), nil
	case []any:
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			ej, err := canonicalize(e)
			if err != nil {
				return "", err
			}
			b.WriteString(ej)
		}
		b.WriteByte(']')
		return b.String(), nil
	default:
		out, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}
