package knowledge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// topicFile is the on-disk layout of a topic catalog. Topics are a YAML
// sequence so declaration order survives decoding.
type topicFile struct {
	Topics []TopicEntry `yaml:"topics"`
}

// LoadFile reads a YAML topic catalog and builds a Store from it.
func LoadFile(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: reading %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse builds a Store from YAML catalog bytes.
func Parse(raw []byte) (*Store, error) {
	var f topicFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: parsing topics: %v", ErrConfig, err)
	}
	return NewStore(f.Topics)
}

// Marshal renders entries in the catalog file format accepted by Parse.
func Marshal(entries []TopicEntry) ([]byte, error) {
	return yaml.Marshal(topicFile{Topics: entries})
}
