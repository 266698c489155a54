package row

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Canonicalize converts a value into its deterministic byte form.
// CRITICAL: This is the ONLY encoding that feeds digest computation.
// Two semantically equal values within a declared domain must produce
// identical bytes across calls, restarts, and re-derivation from stored
// data.
//
// Encodings:
//   - String: NFC-normalized UTF-8 bytes
//   - Int: base-10 text
//   - Float: shortest round-trippable text (strconv 'g', precision -1)
//   - Bool: "true" / "false"
//   - Decimal: the exact pre-storage text, untouched
//   - Time: UTC "2006-01-02 15:04:05"
//
// Null is rejected: a hashed attribute must carry a concrete value.
func Canonicalize(v Value) ([]byte, error) {
	switch val := v.(type) {
	case String:
		// NFC normalize at the serialization boundary so visually equal
		// strings with different codepoint sequences hash identically.
		return []byte(norm.NFC.String(string(val))), nil
	case Int:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case Float:
		return strconv.AppendFloat(nil, float64(val), 'g', -1, 64), nil
	case Bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case Decimal:
		// Deliberately NOT numerically normalized: "1.10" and "1.1" are
		// the same stored number but different canonical bytes, because
		// canonicalization happens on the pre-storage text.
		return []byte(val), nil
	case Time:
		return []byte(time.Time(val).UTC().Format(TimeLayout)), nil
	case Null:
		return nil, fmt.Errorf("null cannot be canonicalized: hashed attributes require a concrete value")
	default:
		return nil, fmt.Errorf("unsupported value type for canonicalization: %T", v)
	}
}

// EncodeRows flattens a batch of rows into one unambiguous byte sequence:
// rows in the order given, attributes within each row in the order of
// attrs, then the scope salts in their fixed order. Every segment is
// length-prefixed (uvarint), so no byte boundary is ambiguous without
// reserving delimiter characters.
func EncodeRows(rows []Row, attrs []string, salts []string) ([]byte, error) {
	var buf []byte
	for i, r := range rows {
		for _, a := range attrs {
			v, ok := r[a]
			if !ok {
				return nil, fmt.Errorf("row %d: hashed attribute %q not present", i, a)
			}
			b, err := Canonicalize(v)
			if err != nil {
				return nil, fmt.Errorf("row %d, attribute %q: %w", i, a, err)
			}
			buf = appendSegment(buf, b)
		}
	}
	for _, s := range salts {
		buf = appendSegment(buf, []byte(s))
	}
	return buf, nil
}

func appendSegment(buf, seg []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(seg)))
	return append(buf, seg...)
}
