package es

import (
	"fmt"
	"strings"

	"tubearchivist/internal/errs"
)

// TagFilterQuery builds a term or wildcard query for a user-supplied
// tag pattern. Only a single trailing "*" with a nonempty prefix is
// allowed as wildcard syntax; "?" is rejected entirely.
func TagFilterQuery(field, pattern string) (map[string]any, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty tag filter", errs.ErrValidation)
	}
	if strings.Contains(pattern, "?") {
		return nil, fmt.Errorf("%w: %q: ? is not supported", errs.ErrValidation, pattern)
	}

	stars := strings.Count(pattern, "*")
	switch {
	case stars == 0:
		return map[string]any{"term": map[string]any{field: pattern}}, nil
	case stars > 1:
		return nil, fmt.Errorf("%w: %q: only one * allowed", errs.ErrValidation, pattern)
	case !strings.HasSuffix(pattern, "*"):
		return nil, fmt.Errorf("%w: %q: * only allowed at the end", errs.ErrValidation, pattern)
	case len(pattern) == 1:
		return nil, fmt.Errorf("%w: bare * matches everything", errs.ErrValidation)
	}

	return map[string]any{"wildcard": map[string]any{field: pattern}}, nil
}
