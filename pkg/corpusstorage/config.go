package corpusstorage

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// TokenizationStrategy names the virtual-tokenisation strategy a corpus
// declares in its corpus-config, per spec.md section 6.
type TokenizationStrategy string

const (
	Explicit               TokenizationStrategy = "Explicit"
	ImplicitFromNamespace  TokenizationStrategy = "ImplicitFromNamespace"
	ImplicitFromMapping    TokenizationStrategy = "ImplicitFromMapping"
)

// VisualizerRule is one entry of a corpus's visualiser configuration,
// the same shape relannis.ResolverEntry carries in from resolver_vis_map.tab.
type VisualizerRule struct {
	Namespace   string            `toml:"namespace"`
	Element     string            `toml:"element"`
	VisType     string            `toml:"vis_type"`
	DisplayName string            `toml:"display_name"`
	Visibility  string            `toml:"visibility"`
	Order       int               `toml:"order"`
	Mappings    map[string]string `toml:"mappings,omitempty"`
}

// ExampleQuery is one entry of a corpus's saved example queries.
type ExampleQuery struct {
	Query       string `toml:"query"`
	Description string `toml:"description"`
}

// Config is the declarative per-corpus document of spec.md section 6:
// visualiser rules, context defaults, hidden annotations and the
// tokenisation strategy, persisted as corpus-config.toml via go-toml/v2
// the way the teacher persists its own config documents.
type Config struct {
	Visualizers []VisualizerRule `toml:"visualizers,omitempty"`

	DefaultContext int `toml:"default_context"`
	MaxContext     int `toml:"max_context"`
	PageSize       int `toml:"page_size"`

	DefaultSegmentation string   `toml:"default_segmentation,omitempty"`
	HiddenAnnotations   []string `toml:"hidden_annotations,omitempty"`

	ExampleQueries []ExampleQuery `toml:"example_queries,omitempty"`

	Tokenization    TokenizationStrategy `toml:"tokenization"`
	TokenizationMap map[string]string    `toml:"tokenization_map,omitempty"`
}

// DefaultConfig mirrors the original loader's defaults for a freshly
// imported corpus that carries no resolver_vis_map entries of its own.
func DefaultConfig() Config {
	return Config{
		DefaultContext: 5,
		MaxContext:     25,
		PageSize:       25,
		Tokenization:   Explicit,
	}
}

func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func saveConfig(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
