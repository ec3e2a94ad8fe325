package postgres

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// decodeValue converts a wire value into something encoding/json renders
// sensibly. Unknown types fall back to their text form.
func decodeValue(m *pgtype.Map, oid uint32, format int16, src []byte) any {
	if src == nil {
		return nil
	}
	buf := make([]byte, len(src))
	copy(buf, src)

	if t, ok := m.TypeForOID(oid); ok {
		if v, err := t.Codec.DecodeValue(m, oid, format, buf); err == nil {
			return normalize(v)
		}
	}
	return string(buf)
}

func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case [16]byte:
		return uuid.UUID(t).String()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	default:
		return v
	}
}
