package row

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// DigestHexLen is the length of a full hex-encoded digest.
const DigestHexLen = 32

// Digester turns canonical bytes into a fixed-width digest. The digest
// algorithm is swappable; collision resistance at the table's expected
// cardinality is the load-bearing requirement, not the algorithm itself.
type Digester interface {
	// Sum returns the raw digest of data. Must be at least 16 bytes.
	Sum(data []byte) []byte
}

// MD5 is the default Digester. 128-bit, hex-encoded to 32 characters.
type MD5 struct{}

// Sum implements Digester.
func (MD5) Sum(data []byte) []byte {
	s := md5.Sum(data)
	return s[:]
}

// Digest computes the truncated hex digest for a batch of rows hashed as
// one unit (the hash-group mode) or for a single row (pass one row).
//
// The digest input is the canonical bytes of each hashed attribute in
// declared order, then the scope salts (table name before part name).
// The full digest is never persisted; only the first hashLen hex
// characters are.
func Digest(d Digester, rows []Row, attrs []string, salts []string, hashLen int) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("no rows to hash")
	}
	if hashLen < 1 || hashLen > DigestHexLen {
		return "", fmt.Errorf("hash length %d out of range [1, %d]", hashLen, DigestHexLen)
	}
	data, err := EncodeRows(rows, attrs, salts)
	if err != nil {
		return "", err
	}
	sum := d.Sum(data)
	full := hex.EncodeToString(sum)
	if len(full) < hashLen {
		return "", fmt.Errorf("digester output %d hex chars, need %d", len(full), hashLen)
	}
	return full[:hashLen], nil
}

// DigestEach computes one truncated digest per row, each re-salted with
// the same scope salts.
func DigestEach(d Digester, rows []Row, attrs []string, salts []string, hashLen int) ([]string, error) {
	out := make([]string, 0, len(rows))
	for i, r := range rows {
		h, err := Digest(d, []Row{r}, attrs, salts, hashLen)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, h)
	}
	return out, nil
}

// MustDigest is like Digest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDigest(d Digester, rows []Row, attrs []string, salts []string, hashLen int) string {
	h, err := Digest(d, rows, attrs, salts, hashLen)
	if err != nil {
		panic(err)
	}
	return h
}
