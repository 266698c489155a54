package schema

import (
	"fmt"
	"strings"
)

// maxHashLen is the full hex width of a 128-bit digest.
const maxHashLen = 32

// Table is a registered table: its validated definition plus its place
// in the master/part graph.
type Table struct {
	def    TableDef
	master string   // master identity, "" for top-level tables
	parts  []string // part identities in declaration order, masters only
}

// Identity returns the table's qualified name: "method" for a top-level
// table, "method.gaussian" for a part.
func (t *Table) Identity() string {
	if t.master != "" {
		return t.master + "." + t.def.Name
	}
	return t.def.Name
}

// StorageName returns the name of the backing relation. Part tables
// store as "<master>__<part>".
func (t *Table) StorageName() string {
	if t.master != "" {
		return t.master + "__" + t.def.Name
	}
	return t.def.Name
}

// Name returns the unqualified table name.
func (t *Table) Name() string { return t.def.Name }

// Master returns the owning master identity, or "" for a top-level table.
func (t *Table) Master() string { return t.master }

// Def returns the table definition. Callers must treat it as read-only.
func (t *Table) Def() *TableDef { return &t.def }

// Hash returns the hashing configuration, nil if hashing is disabled.
func (t *Table) Hash() *HashConfig {
	if !t.def.Hash.Enabled() {
		return nil
	}
	return t.def.Hash
}

// HashEnabled reports whether the table derives digests on insert.
func (t *Table) HashEnabled() bool { return t.def.Hash.Enabled() }

// Registry is the validated, immutable set of table configurations and
// the pre-resolved master/part adjacency. Built once; read-only after.
type Registry struct {
	tables map[string]*Table
	order  []string // registration order of identities
}

// NewRegistry validates definitions and builds the registry. Any invalid
// hashing setup fails with a ConfigError; no partial registry is returned.
func NewRegistry(defs []TableDef) (*Registry, error) {
	r := &Registry{tables: make(map[string]*Table)}
	for i := range defs {
		def := defs[i]
		if err := r.register(def, ""); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(def TableDef, master string) error {
	t := &Table{def: def, master: master}
	if def.Hash != nil {
		// Own the config so later derivation (default hash length) never
		// reaches back into the caller's definition.
		cfg := *def.Hash
		cfg.Attrs = append([]string(nil), def.Hash.Attrs...)
		t.def.Hash = &cfg
	}
	identity := t.Identity()

	if _, exists := r.tables[identity]; exists {
		return configError(identity, "", "duplicate table definition")
	}
	if master != "" && len(def.Parts) > 0 {
		return configError(identity, "parts", "part tables cannot own parts")
	}
	if err := validateHashConfig(t); err != nil {
		return err
	}
	if master != "" {
		if err := r.validatePartAgainstMaster(t); err != nil {
			return err
		}
	}

	r.tables[identity] = t
	r.order = append(r.order, identity)

	for i := range def.Parts {
		part := def.Parts[i]
		if err := r.register(part, def.Name); err != nil {
			return err
		}
		t.parts = append(t.parts, def.Name+"."+part.Name)
	}
	return nil
}

// validateHashConfig runs the definition-time checks: hash attribute
// declared with sufficient width, hashed attributes present and disjoint
// from the hash attribute, grouped hashing compatible with the primary
// key, and the hash length within [1, 32].
func validateHashConfig(t *Table) error {
	cfg := t.def.Hash
	identity := t.Identity()

	if cfg == nil {
		return nil
	}
	if cfg.Name == "" && len(cfg.Attrs) > 0 {
		return configError(identity, "hash.name", "hashing requires a hash attribute name")
	}
	if cfg.Name != "" && len(cfg.Attrs) == 0 {
		return configError(identity, "hash.attrs", "hashing requires at least one hashed attribute")
	}
	if !cfg.Enabled() {
		return nil
	}

	attr, ok := t.def.Attribute(cfg.Name)
	if !ok {
		return configError(identity, "hash.name", "hash attribute %q not declared", cfg.Name)
	}
	if attr.Type.Kind != KindVarchar {
		return configError(identity, "hash.name", "hash attribute %q must have a varchar domain, got %s", cfg.Name, attr.Type)
	}

	if cfg.Len == 0 {
		cfg.Len = attr.Type.Length
		if cfg.Len > maxHashLen {
			cfg.Len = maxHashLen
		}
	}
	if cfg.Len < 1 || cfg.Len > maxHashLen {
		return configError(identity, "hash.length", "hash length must be within [1, %d], got %d", maxHashLen, cfg.Len)
	}
	if attr.Type.Length < cfg.Len {
		return configError(identity, "hash.name", "hash attribute %q is varchar(%d), narrower than hash length %d", cfg.Name, attr.Type.Length, cfg.Len)
	}

	seen := make(map[string]bool, len(cfg.Attrs))
	for _, a := range cfg.Attrs {
		if a == cfg.Name {
			return configError(identity, "hash.attrs", "hash attribute %q cannot also be hashed", a)
		}
		if seen[a] {
			return configError(identity, "hash.attrs", "hashed attribute %q listed twice", a)
		}
		seen[a] = true
		if _, ok := t.def.Attribute(a); !ok && !t.partsDeclare(a) {
			return configError(identity, "hash.attrs", "hashed attribute %q not declared", a)
		}
	}

	// A grouped batch shares one digest across every row. If the hash
	// attribute is the entire primary key, any batch longer than one row
	// cannot satisfy uniqueness.
	if cfg.Group && !t.isAggregating() {
		keys := t.def.KeyNames()
		if len(keys) == 1 && keys[0] == cfg.Name {
			return configError(identity, "hash.group", "grouped hashing needs primary key attributes beyond the hash attribute")
		}
	}

	// Masters aggregate one row per digest: the hash attribute must be
	// the primary key of the aggregate relation.
	if len(t.def.Parts) > 0 && !attr.InKey {
		return configError(identity, "hash.name", "hash attribute %q must be in the master's primary key", cfg.Name)
	}

	return nil
}

// isAggregating reports whether this table is a master with parts.
func (t *Table) isAggregating() bool { return len(t.def.Parts) > 0 }

// partsDeclare reports whether any part of an aggregating master
// declares the attribute. A master's hashed attributes usually live in
// its parts; the master row holds only the aggregate digest.
func (t *Table) partsDeclare(attr string) bool {
	for i := range t.def.Parts {
		if _, ok := t.def.Parts[i].Attribute(attr); ok {
			return true
		}
	}
	return false
}

// validatePartAgainstMaster checks that a part's hash attribute agrees
// with the master's declaration of the same attribute. A width mismatch
// would truncate the shared digest differently on the two sides.
func (r *Registry) validatePartAgainstMaster(t *Table) error {
	cfg := t.def.Hash
	if !cfg.Enabled() {
		return nil
	}
	m, ok := r.tables[t.master]
	if !ok {
		return nil
	}
	mAttr, ok := m.def.Attribute(cfg.Name)
	if !ok {
		return nil
	}
	pAttr, _ := t.def.Attribute(cfg.Name)
	if mAttr.Type.Kind == KindVarchar && pAttr.Type.Kind == KindVarchar &&
		mAttr.Type.Length != pAttr.Type.Length {
		return configError(t.Identity(), "hash.name",
			"hash attribute %q is varchar(%d) here but varchar(%d) in master %q",
			cfg.Name, pAttr.Type.Length, mAttr.Type.Length, t.master)
	}
	return nil
}

// Table resolves a qualified identity ("method" or "method.gaussian").
func (r *Registry) Table(identity string) (*Table, error) {
	t, ok := r.tables[identity]
	if !ok {
		return nil, fmt.Errorf("table %q not registered", identity)
	}
	return t, nil
}

// Tables returns every registered table in registration order.
func (r *Registry) Tables() []*Table {
	out := make([]*Table, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tables[id])
	}
	return out
}

// PartsOf returns the part identities of a master, in declaration order.
// The adjacency is resolved at registration and treated as read-only.
func (r *Registry) PartsOf(master string) ([]string, error) {
	t, err := r.Table(master)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.parts))
	copy(out, t.parts)
	return out, nil
}

// IsMaster reports whether identity names a table that owns parts.
func (r *Registry) IsMaster(identity string) bool {
	t, ok := r.tables[identity]
	return ok && len(t.parts) > 0
}

// IsPart reports whether identity names a part table.
func (r *Registry) IsPart(identity string) bool {
	t, ok := r.tables[identity]
	return ok && t.master != ""
}

// ScopeSalts returns the identity tokens folded into digests computed
// for inserts into t, in their fixed order: table name before part name.
//
// For a part, both flags come from the owning master's configuration:
// the master's name when hash_table_name is set, the part's own name
// when hash_part_table_names is set.
func (r *Registry) ScopeSalts(t *Table) []string {
	var salts []string
	if t.master != "" {
		m, ok := r.tables[t.master]
		if ok && m.def.Hash != nil {
			if m.def.Hash.TableName {
				salts = append(salts, m.def.Name)
			}
			if m.def.Hash.PartTableNames {
				salts = append(salts, t.def.Name)
			}
		}
		return salts
	}
	if t.def.Hash != nil && t.def.Hash.TableName {
		salts = append(salts, t.def.Name)
	}
	return salts
}

// SplitIdentity splits a qualified identity into master and part names.
// For a top-level identity the part name is empty.
func SplitIdentity(identity string) (master, part string) {
	if i := strings.IndexByte(identity, '.'); i >= 0 {
		return identity[:i], identity[i+1:]
	}
	return identity, ""
}
