package plugins

import (
	"strings"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

// Keys left out of the fingerprint because they change without the page
// content changing.
var fingerprintExcluded = map[string]bool{
	mdfp.FingerprintField: true,
	"lastmod":             true,
	"commit":              true,
	"uid":                 true,
	"aliases":             true,
}

// Fingerprint computes the mdfp content fingerprint of a page from its
// front matter fields and body. Fields are serialized as YAML with sorted
// keys and LF newlines.
func Fingerprint(fields *content.Bindings, body []byte) (string, error) {
	forHash := make(map[string]any, fields.Len())
	for _, k := range fields.Keys() {
		if fingerprintExcluded[k] {
			continue
		}
		v, _ := fields.Get(k)
		forHash[k] = v.ToAny()
	}

	fm := ""
	if len(forHash) > 0 {
		serialized, err := yaml.Marshal(forHash)
		if err != nil {
			return "", err
		}
		fm = strings.TrimSuffix(string(serialized), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(fm, string(body)), nil
}
