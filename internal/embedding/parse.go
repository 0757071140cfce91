package embedding

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/placement-assistant/internal/match"
)

// Parse decodes an embedding as it may come back from the database or an
// API payload: a float slice, a slice of numbers or numeric strings, or the
// JSON / pgvector text form "[0.1,0.2]".
func Parse(raw any) (match.Embedding, error) {
	switch val := raw.(type) {
	case nil:
		return nil, fmt.Errorf("%w: embedding is missing", match.ErrInvalidVector)
	case match.Embedding:
		return match.NewEmbedding(val)
	case []float64:
		return match.NewEmbedding(val)
	case []float32:
		values := make([]float64, len(val))
		for i, v := range val {
			values[i] = float64(v)
		}
		return match.NewEmbedding(values)
	case []any:
		values := make([]float64, len(val))
		for i, item := range val {
			f, err := toFloat(item)
			if err != nil {
				return nil, fmt.Errorf("%w: element %d: %v", match.ErrInvalidVector, i, err)
			}
			values[i] = f
		}
		return match.NewEmbedding(values)
	case []byte:
		return parseText(string(val))
	case string:
		return parseText(val)
	default:
		return nil, fmt.Errorf("%w: unknown embedding format %T", match.ErrInvalidVector, raw)
	}
}

func parseText(s string) (match.Embedding, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: embedding text is empty", match.ErrInvalidVector)
	}

	var items []any
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("%w: parse embedding text: %v", match.ErrInvalidVector, err)
	}

	return Parse(items)
}

func toFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, fmt.Errorf("unsupported element type %T", v)
	}
}

// Format renders e in the pgvector text form, which is also valid JSON.
func Format(e match.Embedding) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range e {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
