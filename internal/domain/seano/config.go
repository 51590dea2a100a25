package seano

import (
	"dario.cat/mergo"

	"github.com/relicta-tech/seano/internal/errors"
)

// RawDoc is a single YAML document decoded by a ConfigLoader/NoteLoader,
// prior to any seano-specific normalization.
type RawDoc = map[string]any

// NormalizedConfig is the result of merging and normalizing every document
// in the config stream (annex first, then the main config, per spec §6).
type NormalizedConfig struct {
	CurrentVersion  string
	ParentVersions  AncestryList
	Releases        []ReleaseSeed
	RefParsers      []RefParserSpec
	DeletedReleases map[string]bool
	// Extra carries every other top-level config field through to the
	// final Document unchanged.
	Extra map[string]any
}

// MergeConfigDocs deep-merges a sequence of raw documents in order, with
// later documents overriding earlier ones key-for-key. Passing the annex's
// documents before the main config's documents is what makes the main
// config win on shared keys (spec §8 invariant).
func MergeConfigDocs(docs ...RawDoc) (RawDoc, error) {
	out := RawDoc{}
	for _, d := range docs {
		if len(d) == 0 {
			continue
		}
		if err := mergo.Merge(&out, RawDoc(d), mergo.WithOverride); err != nil {
			return nil, errors.Wrap(err, errors.KindConfig, "seano.MergeConfigDocs", "failed to merge configuration documents")
		}
	}
	return out, nil
}

// NormalizeConfig normalizes a single merged raw config document into a
// NormalizedConfig, applying C1 to each recognized field.
func NormalizeConfig(raw RawDoc) (*NormalizedConfig, error) {
	nc := &NormalizedConfig{Extra: map[string]any{}}
	for k, v := range raw {
		var err error
		switch k {
		case "current_version":
			s, ok := v.(string)
			if !ok {
				return nil, errors.Newf(errors.KindConfig, "%s: current_version must be a string, got %T", opNormalize, v)
			}
			nc.CurrentVersion = s
		case "parent_versions":
			nc.ParentVersions, err = NormalizeAncestryContainer(k, v)
		case "releases":
			nc.Releases, nc.DeletedReleases, err = NormalizeReleaseList(v)
		case "ref_parsers":
			nc.RefParsers, err = NormalizeRefParsers(v)
		default:
			nc.Extra[k] = v
		}
		if err != nil {
			return nil, err
		}
	}
	if nc.CurrentVersion == "" {
		nc.CurrentVersion = "HEAD"
	}
	if nc.DeletedReleases == nil {
		nc.DeletedReleases = map[string]bool{}
	}
	return nc, nil
}
