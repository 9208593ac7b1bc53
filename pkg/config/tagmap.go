package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// tagMapFile is the on-disk format of a template tag table:
//
//	templates:
//	  qfyohqaysnfk4ybccqhyzk: Action Sports Waiver
type tagMapFile struct {
	Templates map[string]string `yaml:"templates"`
}

// DefaultTemplateTags returns the built-in mapping from waiver template
// identifiers to category tags.
func DefaultTemplateTags() map[string]string {
	return map[string]string{
		"qfyohqaysnfk4ybccqhyzk": "Action Sports Waiver",
		"rwaatviecns3lrzbavotxg": "Spectator Waiver",
		"61xznzj5qj3dkb2rj68kbn": "Power Sports Waiver",
	}
}

// LoadTemplateTags reads a template tag table from a YAML file. Entries in the
// file are merged over the defaults, so new templates can be added without a
// code change and known ones can be renamed.
func LoadTemplateTags(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tag map %s: %w", path, err)
	}

	var f tagMapFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing tag map: %w", err)
	}

	tags := DefaultTemplateTags()
	for id, tag := range f.Templates {
		if id == "" || tag == "" {
			return nil, fmt.Errorf("tag map entry %q: template id and tag must be non-empty", id)
		}
		tags[id] = tag
	}

	return tags, nil
}
