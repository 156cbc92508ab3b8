package feed

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// SourcesConfig is the YAML feed list:
//
//	topics:
//	  technology:
//	    TheHindu: https://www.thehindu.com/sci-tech/technology/feeder/default.rss
type SourcesConfig struct {
	Topics map[string]map[string]string `yaml:"topics"`
}

// LoadSources reads the topic -> source -> URL mapping from a YAML file.
func LoadSources(path string) (*SourcesConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg SourcesConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode feeds config: %w", err)
	}
	if len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("feeds config %s has no topics", path)
	}
	return &cfg, nil
}

// TopicNames returns topics in a fixed order so a refresh cycle processes
// them deterministically.
func (c *SourcesConfig) TopicNames() []string {
	names := make([]string, 0, len(c.Topics))
	for name := range c.Topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
