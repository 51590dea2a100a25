package seano

import (
	"fmt"
	"sort"
	"strings"
)

// RichTextSuffix is the key suffix that marks a field as localized
// rich text (spec §4.1 rule 4). Renderers downstream (Sphinx/markdown/wiki)
// consume the flattened string form regardless of which hierarchical shape
// the note author wrote.
const RichTextSuffix = "-rst"

type richItem struct {
	depth int
	text  string
}

// NormalizeRichText flattens a localized rich-text field: a mapping from
// language code to a hierarchical list/mapping/string value becomes a
// mapping from language code to a single flattened string. Non-mapping
// values (and already-flattened strings) pass through unchanged, which
// keeps the transform idempotent.
func NormalizeRichText(key string, v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return v, nil
	}
	out := make(map[string]any, len(m))
	for lang, inner := range m {
		if inner == nil {
			continue
		}
		if s, ok := inner.(string); ok {
			out[lang] = s
			continue
		}
		var items []richItem
		if err := walkRichText(key+"."+lang, inner, 0, &items); err != nil {
			return nil, err
		}
		out[lang] = renderRichText(items)
	}
	return out, nil
}

func walkRichText(path string, v any, depth int, out *[]richItem) error {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil
		}
		*out = append(*out, richItem{depth: depth, text: val})
		return nil
	case []any:
		// A list's elements are flattened at the list's own depth, never
		// one deeper — only a mapping key introduces a new depth.
		for _, item := range val {
			if err := walkRichText(path, item, depth, out); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			iv := val[k]
			if iv == nil {
				continue
			}
			*out = append(*out, richItem{depth: depth, text: k})
			if err := walkRichText(path, iv, depth+1, out); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("seano.NormalizeRichText: unsupported value in %s: %v (%T)", path, v, v)
	}
}

// renderRichText joins items into a blank-line-separated, indented-bullet
// string: a blank line precedes any item at depth 0, or whose depth differs
// from the previous item's (not only a transition to/from depth 0), and a
// depth>=1 item renders as a bullet indented two spaces per depth beyond 1.
func renderRichText(items []richItem) string {
	lines := make([]string, 0, len(items))
	previousDepth := -1
	for i, it := range items {
		if i > 0 && (it.depth == 0 || it.depth != previousDepth) {
			lines = append(lines, "")
		}
		previousDepth = it.depth
		if it.depth == 0 {
			lines = append(lines, it.text)
			continue
		}
		indent := strings.Repeat("  ", it.depth-1)
		lines = append(lines, indent+"- "+it.text)
	}
	return strings.Join(lines, "\n")
}
