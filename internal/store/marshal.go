package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/schema"
)

// bindValue converts a row value into a driver argument for the given
// declared attribute.
func bindValue(v row.Value, attr schema.Attribute) (any, error) {
	if _, ok := v.(row.Null); ok {
		return nil, nil
	}
	switch attr.Type.Kind {
	case schema.KindVarchar:
		s, ok := v.(row.String)
		if !ok {
			return nil, bindMismatch(v, attr)
		}
		if len(string(s)) > attr.Type.Length {
			return nil, fmt.Errorf("attribute %q: value exceeds varchar(%d)", attr.Name, attr.Type.Length)
		}
		return string(s), nil
	case schema.KindInt:
		i, ok := v.(row.Int)
		if !ok {
			return nil, bindMismatch(v, attr)
		}
		return int64(i), nil
	case schema.KindFloat:
		switch fv := v.(type) {
		case row.Float:
			return float64(fv), nil
		case row.Int:
			return float64(fv), nil
		}
		return nil, bindMismatch(v, attr)
	case schema.KindDecimal:
		switch dv := v.(type) {
		case row.Decimal:
			return scaleDecimal(string(dv), attr)
		case row.Int:
			return scaleDecimal(row.Format(dv), attr)
		}
		return nil, bindMismatch(v, attr)
	case schema.KindTimestamp:
		ts, ok := v.(row.Time)
		if !ok {
			return nil, bindMismatch(v, attr)
		}
		return time.Time(ts).UTC().Format(row.TimeLayout), nil
	case schema.KindBool:
		b, ok := v.(row.Bool)
		if !ok {
			return nil, bindMismatch(v, attr)
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, fmt.Errorf("attribute %q: unsupported domain %s", attr.Name, attr.Type)
	}
}

func bindMismatch(v row.Value, attr schema.Attribute) error {
	return fmt.Errorf("attribute %q: value %T does not fit domain %s", attr.Name, v, attr.Type)
}

// scaleDecimal normalizes a decimal literal to the declared scale, the
// canonical text the store reports back. "1.1" in a decimal(6,2) column
// stores as "1.10" - which is why a digest computed on the pre-storage
// text "1.1" is not re-derivable from the fetched value.
func scaleDecimal(text string, attr schema.Attribute) (string, error) {
	scale := attr.Type.Scale
	neg := strings.HasPrefix(text, "-")
	body := strings.TrimPrefix(text, "-")

	intPart, fracPart, _ := strings.Cut(body, ".")
	if intPart == "" {
		return "", fmt.Errorf("attribute %q: invalid decimal %q", attr.Name, text)
	}
	if len(fracPart) > scale {
		return "", fmt.Errorf("attribute %q: %q exceeds declared scale %d", attr.Name, text, scale)
	}
	intDigits := len(strings.TrimLeft(intPart, "0"))
	if intDigits == 0 {
		intDigits = 1
	}
	if intDigits+scale > attr.Type.Precision {
		return "", fmt.Errorf("attribute %q: %q exceeds declared precision %d", attr.Name, text, attr.Type.Precision)
	}
	for len(fracPart) < scale {
		fracPart += "0"
	}
	out := intPart
	if scale > 0 {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out, nil
}

// scanDest returns a scan target for the declared attribute.
func scanDest(attr schema.Attribute) any {
	switch attr.Type.Kind {
	case schema.KindInt, schema.KindBool:
		return &sql.NullInt64{}
	case schema.KindFloat:
		return &sql.NullFloat64{}
	default:
		return &sql.NullString{}
	}
}

// destValue converts a scanned holder back into a row value.
func destValue(dest any, attr schema.Attribute) (row.Value, error) {
	switch attr.Type.Kind {
	case schema.KindVarchar:
		h := dest.(*sql.NullString)
		if !h.Valid {
			return row.Null{}, nil
		}
		return row.String(h.String), nil
	case schema.KindInt:
		h := dest.(*sql.NullInt64)
		if !h.Valid {
			return row.Null{}, nil
		}
		return row.Int(h.Int64), nil
	case schema.KindFloat:
		h := dest.(*sql.NullFloat64)
		if !h.Valid {
			return row.Null{}, nil
		}
		return row.Float(h.Float64), nil
	case schema.KindDecimal:
		h := dest.(*sql.NullString)
		if !h.Valid {
			return row.Null{}, nil
		}
		return row.Decimal(h.String), nil
	case schema.KindTimestamp:
		h := dest.(*sql.NullString)
		if !h.Valid {
			return row.Null{}, nil
		}
		ts, err := time.ParseInLocation(row.TimeLayout, h.String, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: stored timestamp %q: %w", attr.Name, h.String, err)
		}
		return row.Time(ts), nil
	case schema.KindBool:
		h := dest.(*sql.NullInt64)
		if !h.Valid {
			return row.Null{}, nil
		}
		return row.Bool(h.Int64 != 0), nil
	default:
		return nil, fmt.Errorf("attribute %q: unsupported domain %s", attr.Name, attr.Type)
	}
}
