package store

import (
	"fmt"
	"time"

	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/schema"
)

// DecodeRow maps loosely-typed scalars (as produced by YAML or JSON
// decoding) onto a table's attribute domains. Unknown attributes are
// rejected.
func DecodeRow(raw map[string]any, t *schema.Table) (row.Row, error) {
	r := make(row.Row, len(raw))
	for name, v := range raw {
		attr, ok := t.Def().Attribute(name)
		if !ok {
			return nil, fmt.Errorf("attribute %q not declared in %s", name, t.Identity())
		}
		val, err := DecodeValue(v, attr)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		r[name] = val
	}
	return r, nil
}

// DecodeValue converts one scalar into the value type of the attribute's
// domain. Decimals and timestamps must arrive as strings: the literal
// decimal text is the canonical hash input and never passes through a
// float.
func DecodeValue(v any, attr schema.Attribute) (row.Value, error) {
	if v == nil {
		return row.Null{}, nil
	}
	switch attr.Type.Kind {
	case schema.KindVarchar:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return row.String(s), nil
	case schema.KindInt:
		switch n := v.(type) {
		case int:
			return row.Int(n), nil
		case int64:
			return row.Int(n), nil
		}
		return nil, fmt.Errorf("expected integer, got %T", v)
	case schema.KindFloat:
		switch n := v.(type) {
		case float64:
			return row.Float(n), nil
		case int:
			return row.Float(n), nil
		}
		return nil, fmt.Errorf("expected number, got %T", v)
	case schema.KindDecimal:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("decimal values must be quoted strings, got %T", v)
		}
		d, err := row.NewDecimal(s)
		if err != nil {
			return nil, err
		}
		return d, nil
	case schema.KindTimestamp:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected %q string, got %T", row.TimeLayout, v)
		}
		ts, err := time.Parse(row.TimeLayout, s)
		if err != nil {
			return nil, err
		}
		return row.Time(ts.UTC()), nil
	case schema.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", v)
		}
		return row.Bool(b), nil
	default:
		return nil, fmt.Errorf("unsupported attribute domain %v", attr.Type.Kind)
	}
}
