package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind enumerates the attribute domains the store can hold.
type Kind int

const (
	KindVarchar Kind = iota
	KindInt
	KindFloat
	KindDecimal
	KindTimestamp
	KindBool
)

// String returns the declaration form of the kind.
func (k Kind) String() string {
	switch k {
	case KindVarchar:
		return "varchar"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindTimestamp:
		return "timestamp"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// AttrType is a declared attribute domain: kind plus its parameters.
type AttrType struct {
	Kind      Kind
	Length    int // varchar width
	Precision int // decimal total digits
	Scale     int // decimal fractional digits
}

// String renders the type in its declaration form, e.g. "varchar(32)".
func (t AttrType) String() string {
	switch t.Kind {
	case KindVarchar:
		return fmt.Sprintf("varchar(%d)", t.Length)
	case KindDecimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	default:
		return t.Kind.String()
	}
}

var (
	varcharPattern = regexp.MustCompile(`^varchar\(([0-9]+)\)$`)
	decimalPattern = regexp.MustCompile(`^decimal\(([0-9]+),\s*([0-9]+)\)$`)
)

// ParseAttrType parses a declaration-form type string.
// Accepted forms: varchar(N), int, float, decimal(P,S), timestamp, bool.
func ParseAttrType(s string) (AttrType, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "int":
		return AttrType{Kind: KindInt}, nil
	case "float":
		return AttrType{Kind: KindFloat}, nil
	case "timestamp":
		return AttrType{Kind: KindTimestamp}, nil
	case "bool":
		return AttrType{Kind: KindBool}, nil
	}
	if m := varcharPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return AttrType{}, fmt.Errorf("invalid varchar width in %q", s)
		}
		return AttrType{Kind: KindVarchar, Length: n}, nil
	}
	if m := decimalPattern.FindStringSubmatch(s); m != nil {
		p, err1 := strconv.Atoi(m[1])
		sc, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil || p < 1 || sc < 0 || sc > p {
			return AttrType{}, fmt.Errorf("invalid decimal parameters in %q", s)
		}
		return AttrType{Kind: KindDecimal, Precision: p, Scale: sc}, nil
	}
	return AttrType{}, fmt.Errorf("unsupported attribute type %q", s)
}

// Attribute is one declared column of a table.
type Attribute struct {
	Name    string
	Type    AttrType
	InKey   bool // part of the primary key
	Comment string
}

// HashConfig is the per-table hashing configuration. Immutable after
// registration.
type HashConfig struct {
	// Name is the attribute that holds the digest.
	Name string

	// Attrs are the hashed attributes, in digest input order.
	Attrs []string

	// Len is the stored digest length in hex characters, 1..32.
	// Zero means "derive from the hash attribute's varchar width".
	Len int

	// Group makes a batch inserted in one call share a single digest.
	Group bool

	// TableName folds the table's own name into the digest input.
	TableName bool

	// PartTableNames folds each part's name into the digests computed
	// for inserts into that part. Master-only.
	PartTableNames bool
}

// Enabled reports whether the configuration turns hashing on.
func (c *HashConfig) Enabled() bool {
	return c != nil && (c.Name != "" || len(c.Attrs) > 0)
}

// TableDef declares one table: its attributes in column order, its hash
// configuration, and (for masters) its part tables.
type TableDef struct {
	Name       string
	Comment    string
	Attributes []Attribute
	Hash       *HashConfig
	Parts      []TableDef
}

// Attribute looks up a declared attribute by name.
func (d *TableDef) Attribute(name string) (Attribute, bool) {
	for _, a := range d.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// AttributeNames returns the declared column order.
func (d *TableDef) AttributeNames() []string {
	names := make([]string, len(d.Attributes))
	for i, a := range d.Attributes {
		names[i] = a.Name
	}
	return names
}

// KeyNames returns the primary key attributes in declaration order.
func (d *TableDef) KeyNames() []string {
	var keys []string
	for _, a := range d.Attributes {
		if a.InKey {
			keys = append(keys, a.Name)
		}
	}
	return keys
}
