package repository

import (
	"fmt"
	"strconv"
	"strings"
)

// pgvector exchanges vectors as bracketed float lists, e.g. "[0.1,0.2]".
// Values are passed as text and cast with ::vector in the queries.

func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func parseVector(s string) ([]float32, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, fmt.Errorf("malformed vector literal: %q", s)
	}
	trimmed = strings.Trim(trimmed, "[]")
	if trimmed == "" {
		return []float32{}, nil
	}

	parts := strings.Split(trimmed, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("malformed vector component %d: %w", i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}
