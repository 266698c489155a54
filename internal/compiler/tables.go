// Package compiler parses CUE table definitions into schema values.
// Uses CUE SDK's Go API directly (not CLI subprocess). Structural
// validation of the hashing configuration happens afterwards in
// schema.NewRegistry; the compiler only maps CUE fields onto TableDef.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rowhash/internal/schema"
)

// CompileSource parses CUE source text and compiles the "tables" struct
// into table definitions, in declaration order.
//
//	tables: {
//		method: {
//			attributes: method_hash: {type: "varchar(32)", key: true}
//			hash: {name: "method_hash", attrs: ["param1", "param2"]}
//			parts: gaussian: { ... }
//		}
//	}
func CompileSource(filename string, src []byte) ([]schema.TableDef, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileTables(v.LookupPath(cue.ParsePath("tables")))
}

// CompileTables parses a CUE struct of table definitions. The value is
// the "tables" struct itself; each field is one top-level table.
func CompileTables(v cue.Value) ([]schema.TableDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.Exists() {
		return nil, &CompileError{
			Field:   "tables",
			Message: "tables struct is required",
		}
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []schema.TableDef
	for iter.Next() {
		def, err := parseTable(iter.Label(), iter.Value(), true)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return nil, &CompileError{
			Field:   "tables",
			Message: "at least one table is required",
			Pos:     v.Pos(),
		}
	}
	return defs, nil
}

// parseTable maps one CUE table struct onto a TableDef. Part tables are
// parsed recursively; only top-level tables may declare parts.
func parseTable(name string, v cue.Value, topLevel bool) (schema.TableDef, error) {
	def := schema.TableDef{Name: name}

	commentVal := v.LookupPath(cue.ParsePath("comment"))
	if commentVal.Exists() {
		comment, err := commentVal.String()
		if err != nil {
			return def, formatCUEError(err)
		}
		def.Comment = comment
	}

	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return def, &CompileError{
			Field:   fmt.Sprintf("tables.%s.attributes", name),
			Message: "attributes are required",
			Pos:     v.Pos(),
		}
	}
	attrs, err := parseAttributes(name, attrsVal)
	if err != nil {
		return def, err
	}
	def.Attributes = attrs

	hashVal := v.LookupPath(cue.ParsePath("hash"))
	if hashVal.Exists() {
		cfg, err := parseHash(name, hashVal)
		if err != nil {
			return def, err
		}
		def.Hash = cfg
	}

	partsVal := v.LookupPath(cue.ParsePath("parts"))
	if partsVal.Exists() {
		if !topLevel {
			return def, &CompileError{
				Field:   fmt.Sprintf("tables.%s.parts", name),
				Message: "part tables cannot declare parts",
				Pos:     partsVal.Pos(),
			}
		}
		partIter, err := partsVal.Fields()
		if err != nil {
			return def, formatCUEError(err)
		}
		for partIter.Next() {
			part, err := parseTable(partIter.Label(), partIter.Value(), false)
			if err != nil {
				return def, err
			}
			def.Parts = append(def.Parts, part)
		}
	}

	return def, nil
}

// parseAttributes reads the attribute struct in declaration order. Each
// attribute is either a bare type string ("int", "varchar(32)") or a
// struct with type, key, and comment fields.
func parseAttributes(table string, v cue.Value) ([]schema.Attribute, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var attrs []schema.Attribute
	for iter.Next() {
		attrName := iter.Label()
		attrVal := iter.Value()
		attr := schema.Attribute{Name: attrName}

		field := fmt.Sprintf("tables.%s.attributes.%s", table, attrName)

		// Shorthand: a plain type string declares a non-key attribute.
		if typeStr, err := attrVal.String(); err == nil {
			at, err := schema.ParseAttrType(typeStr)
			if err != nil {
				return nil, &CompileError{Field: field, Message: err.Error(), Pos: attrVal.Pos()}
			}
			attr.Type = at
			attrs = append(attrs, attr)
			continue
		}

		typeVal := attrVal.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return nil, &CompileError{
				Field:   field,
				Message: "must be a type string or a struct with a type field",
				Pos:     attrVal.Pos(),
			}
		}
		typeStr, err := typeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		at, err := schema.ParseAttrType(typeStr)
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: typeVal.Pos()}
		}
		attr.Type = at

		keyVal := attrVal.LookupPath(cue.ParsePath("key"))
		if keyVal.Exists() {
			key, err := keyVal.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			attr.InKey = key
		}

		commentVal := attrVal.LookupPath(cue.ParsePath("comment"))
		if commentVal.Exists() {
			comment, err := commentVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			attr.Comment = comment
		}

		attrs = append(attrs, attr)
	}
	if len(attrs) == 0 {
		return nil, &CompileError{
			Field:   fmt.Sprintf("tables.%s.attributes", table),
			Message: "at least one attribute is required",
			Pos:     v.Pos(),
		}
	}
	return attrs, nil
}

// parseHash reads the hashing block. partTableNames defaults to true
// when omitted, matching the aggregation default: identical content in
// two different parts gets two distinct digests unless the definition
// opts out.
func parseHash(table string, v cue.Value) (*schema.HashConfig, error) {
	cfg := &schema.HashConfig{PartTableNames: true}
	field := func(f string) string { return fmt.Sprintf("tables.%s.hash.%s", table, f) }

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		cfg.Name = name
	}

	attrsVal := v.LookupPath(cue.ParsePath("attrs"))
	if attrsVal.Exists() {
		iter, err := attrsVal.List()
		if err != nil {
			return nil, &CompileError{
				Field:   field("attrs"),
				Message: "must be a list of attribute names",
				Pos:     attrsVal.Pos(),
			}
		}
		for iter.Next() {
			a, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			cfg.Attrs = append(cfg.Attrs, a)
		}
	}

	lenVal := v.LookupPath(cue.ParsePath("len"))
	if lenVal.Exists() {
		n, err := lenVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		cfg.Len = int(n)
	}

	for f, dst := range map[string]*bool{
		"group":          &cfg.Group,
		"tableName":      &cfg.TableName,
		"partTableNames": &cfg.PartTableNames,
	} {
		bv := v.LookupPath(cue.ParsePath(f))
		if !bv.Exists() {
			continue
		}
		b, err := bv.Bool()
		if err != nil {
			return nil, &CompileError{
				Field:   field(f),
				Message: "must be a boolean",
				Pos:     bv.Pos(),
			}
		}
		*dst = b
	}

	return cfg, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
