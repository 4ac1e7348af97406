package extractor

import (
	"sort"
	"strings"

	"tubearchivist/internal/utils/logging"
)

// ExtractorArgs is the parsed per-extractor argument map:
// extractor name -> key -> values.
type ExtractorArgs map[string]map[string][]string

// ParseExtractorArgs parses the user supplied extractor argument string.
// Tokens are space-separated groups of the form
// "extractor:k=v[,v...];k2=v2". Key names are lowercased with dashes
// replaced by underscores. Commas split values unless escaped with a
// backslash. Malformed tokens are logged and skipped.
func ParseExtractorArgs(raw string) ExtractorArgs {
	out := ExtractorArgs{}

	for _, token := range strings.Fields(raw) {
		name, rest, ok := strings.Cut(token, ":")
		if !ok || name == "" {
			logging.W("extractor args: token %q has no extractor prefix, skipping", token)
			continue
		}

		args := out[name]
		if args == nil {
			args = map[string][]string{}
			out[name] = args
		}

		for _, pair := range strings.Split(rest, ";") {
			if pair == "" {
				continue
			}
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				logging.W("extractor args: %q has no value, skipping", pair)
				continue
			}
			key = normalizeArgKey(key)
			if key == "" {
				logging.W("extractor args: empty key in token %q, skipping", token)
				continue
			}
			args[key] = splitEscapedCommas(value)
		}
	}

	return out
}

func normalizeArgKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}

// splitEscapedCommas splits on commas, except commas preceded by a
// backslash which are kept literally.
func splitEscapedCommas(value string) []string {
	var (
		parts []string
		cur   strings.Builder
	)
	escaped := false
	for _, r := range value {
		switch {
		case escaped && r == ',':
			cur.WriteRune(',')
			escaped = false
		case escaped:
			cur.WriteRune('\\')
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		cur.WriteRune('\\')
	}
	parts = append(parts, cur.String())
	return parts
}

// CommandLine renders the parsed map back into yt-dlp --extractor-args
// values, one per extractor, in stable order.
func (a ExtractorArgs) CommandLine() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)

	var flags []string
	for _, name := range names {
		keys := make([]string, 0, len(a[name]))
		for k := range a[name] {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var pairs []string
		for _, k := range keys {
			pairs = append(pairs, k+"="+strings.Join(a[name][k], ","))
		}
		flags = append(flags, "--extractor-args", name+":"+strings.Join(pairs, ";"))
	}
	return flags
}

// Set adds or replaces a single key for an extractor.
func (a ExtractorArgs) Set(extractor, key string, values ...string) {
	if a[extractor] == nil {
		a[extractor] = map[string][]string{}
	}
	a[extractor][normalizeArgKey(key)] = values
}
