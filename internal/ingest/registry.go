package ingest

import (
	"embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

const (
	DefaultGrantsGovURL   = "https://api.grants.gov/v1/api/search2"
	defaultPageSize       = 100
	// maxPageSize keeps one page's upsert well under Postgres's 65535 bind parameters.
	maxPageSize           = 1000
	defaultMaxRecords     = 10000
	defaultTimeoutSeconds = 60
)

// Registry holds the configuration for all data sources.
type Registry struct {
	Sources []SourceConfig `yaml:"sources"`
}

// FetchConfig defines HTTP fetching configuration for a source.
type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"` // Default: 60
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`  // 0 disables pacing
}

// SourceConfig defines a single listing source for sync.
type SourceConfig struct {
	ID                string            `yaml:"id"`
	Name              string            `yaml:"name"`
	Strategy          string            `yaml:"strategy"`
	BaseURL           string            `yaml:"base_url,omitempty"`
	DetailURLTemplate string            `yaml:"detail_url_template"`
	OppStatuses       string            `yaml:"opp_statuses,omitempty"`
	PageSize          int               `yaml:"page_size,omitempty"`
	MaxRecords        int               `yaml:"max_records,omitempty"`
	Description       string            `yaml:"description,omitempty"`
	Fetch             FetchConfig       `yaml:"fetch,omitempty"`
	CategoryMap       map[string]string `yaml:"category_map,omitempty"`
}

// DetailURL renders the public listing link for a source id.
func (c SourceConfig) DetailURL(sourceID string) string {
	return strings.ReplaceAll(c.DetailURLTemplate, "{id}", sourceID)
}

func (c *SourceConfig) applyDefaults() {
	if c.BaseURL == "" && c.Strategy == StrategyGrantsGov {
		c.BaseURL = DefaultGrantsGovURL
	}
	if c.OppStatuses == "" {
		c.OppStatuses = "posted"
	}
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	c.PageSize = min(c.PageSize, maxPageSize)
	if c.MaxRecords <= 0 {
		c.MaxRecords = defaultMaxRecords
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultTimeoutSeconds
	}
}

// LoadRegistry parses the embedded sources.yaml, or the file at path when
// path is set. ${VAR} references are expanded from the environment.
func LoadRegistry(path string) (*Registry, error) {
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = sourcesYAML.ReadFile("config/sources.yaml")
	}
	if err != nil {
		return nil, eris.Wrap(err, "registry: read sources")
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes registry YAML and fills per-source defaults.
func ParseRegistry(data []byte) (*Registry, error) {
	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, eris.Wrap(err, "registry: parse sources")
	}

	seen := make(map[string]struct{}, len(reg.Sources))
	for i := range reg.Sources {
		src := &reg.Sources[i]
		if src.ID == "" {
			return nil, eris.Errorf("registry: source %d has no id", i)
		}
		if _, dup := seen[src.ID]; dup {
			return nil, eris.Errorf("registry: duplicate source id %q", src.ID)
		}
		seen[src.ID] = struct{}{}
		if !strings.Contains(src.DetailURLTemplate, "{id}") {
			return nil, eris.Errorf("registry: source %q detail_url_template must contain {id}", src.ID)
		}
		src.applyDefaults()
	}
	return &reg, nil
}

// Source returns the configuration for id.
func (r *Registry) Source(id string) (SourceConfig, error) {
	for _, s := range r.Sources {
		if s.ID == id {
			return s, nil
		}
	}
	return SourceConfig{}, eris.Errorf("registry: unknown source %q", id)
}
