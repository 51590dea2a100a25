package seano

import (
	"regexp"
	"strings"

	"github.com/relicta-tech/seano/internal/errors"
)

// RefParserSpec is one entry of the config's `ref_parsers` list: a regular
// expression with named captures, and a release template describing how to
// build a release attribute map from those captures (spec §4.5 item 1,
// §6).
type RefParserSpec struct {
	Description string
	Regex       *regexp.Regexp
	// Release maps a release attribute name to a template string whose
	// "${capture}" placeholders are substituted with the regex's named
	// capture groups.
	Release map[string]string
}

// NormalizeRefParsers coerces the config's `ref_parsers` field into a list
// of RefParserSpec.
func NormalizeRefParsers(v any) ([]RefParserSpec, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, errors.Newf(errors.KindConfig, "%s: ref_parsers must be a list, got %T", opNormalize, v)
	}
	out := make([]RefParserSpec, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, errors.Newf(errors.KindConfig, "%s: ref_parsers entry must be a mapping, got %T", opNormalize, item)
		}
		pattern, _ := m["regex"].(string)
		if pattern == "" {
			return nil, errors.Newf(errors.KindConfig, "%s: ref_parsers entry missing a non-empty regex: %v", opNormalize, m)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, errors.KindConfig, opNormalize, "ref_parsers entry has an invalid regex %q", pattern)
		}
		releaseTmpl := map[string]string{}
		if rel, ok := m["release"].(map[string]any); ok {
			for k, v2 := range rel {
				s, ok := v2.(string)
				if !ok {
					return nil, errors.Newf(errors.KindConfig, "%s: ref_parsers release template %q must be a string, got %T", opNormalize, k, v2)
				}
				releaseTmpl[k] = s
			}
		}
		desc, _ := m["description"].(string)
		out = append(out, RefParserSpec{Description: desc, Regex: re, Release: releaseTmpl})
	}
	return out, nil
}

// DefaultRefParser matches tags shaped v<numeric-dotted-sequence>[<letters><digits>],
// e.g. v1.2.3 or v1.2.3rc1, and yields a release named after the numeric
// body (plus any trailing pre-release suffix).
var DefaultRefParser = RefParserSpec{
	Description: "default semantic version tag parser",
	Regex:       regexp.MustCompile(`^v(?P<version>[0-9]+(?:\.[0-9]+)*(?:[a-zA-Z]+[0-9]+)?)$`),
	Release:     map[string]string{"name": "${version}"},
}

var captureRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// MatchRef tries the given parsers in order against refName, falling back
// to DefaultRefParser, and returns the release attribute map yielded by the
// first match plus whether any parser matched at all.
func MatchRef(parsers []RefParserSpec, refName string) (map[string]any, bool) {
	all := append(append([]RefParserSpec{}, parsers...), DefaultRefParser)
	for _, p := range all {
		m := p.Regex.FindStringSubmatch(refName)
		if m == nil {
			continue
		}
		captures := map[string]string{}
		for i, name := range p.Regex.SubexpNames() {
			if i != 0 && name != "" {
				captures[name] = m[i]
			}
		}
		attrs := map[string]any{}
		for key, tmpl := range p.Release {
			attrs[key] = substituteCaptures(tmpl, captures)
		}
		return attrs, true
	}
	return nil, false
}

func substituteCaptures(tmpl string, captures map[string]string) string {
	return captureRefPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(m, "${"), "}")
		return captures[name]
	})
}
