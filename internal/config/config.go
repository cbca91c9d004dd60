package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/consolidate/internal/synthesis"
)

// Weights mirrors synthesis.ScoreWeights for YAML.
type Weights struct {
	Completeness float64 `yaml:"completeness,omitempty"`
	CodeQuality  float64 `yaml:"codeQuality,omitempty"`
	Clarity      float64 `yaml:"clarity,omitempty"`
	Consensus    float64 `yaml:"consensus,omitempty"`
}

// Agent is a contributor reachable over A2A.
type Agent struct {
	ID       string `yaml:"id"`
	Role     string `yaml:"role"`
	Endpoint string `yaml:"endpoint"`
}

// ProjectConfig holds project-level settings loaded from consolidate.yml.
type ProjectConfig struct {
	Title string `yaml:"title,omitempty"`

	QualityThreshold float64            `yaml:"qualityThreshold,omitempty"`
	RetryBudget      *int               `yaml:"retryBudget,omitempty"`
	MinCodeBlocks    int                `yaml:"minCodeBlocks,omitempty"`
	TimelineBuffer   float64            `yaml:"timelineBuffer,omitempty"`
	TimelineWeights  map[string]float64 `yaml:"timelineWeights,omitempty"`
	PriorityWeights  map[string]float64 `yaml:"priorityWeights,omitempty"`
	ScoreWeights     Weights            `yaml:"scoreWeights,omitempty"`
	ExpectedRoles    []string           `yaml:"expectedRoles,omitempty"`
	RolePriority     []string           `yaml:"rolePriority,omitempty"`
	ParseWorkers     int                `yaml:"parseWorkers,omitempty"`

	Agents         []Agent `yaml:"agents,omitempty"`
	CollectTimeout string  `yaml:"collectTimeout,omitempty"`

	RedisAddr      string `yaml:"redisAddr,omitempty"`
	RedisNamespace string `yaml:"redisNamespace,omitempty"`
	ProvenanceDB   string `yaml:"provenanceDB,omitempty"`

	LogLevel string `yaml:"logLevel,omitempty"`
	LogJSON  bool   `yaml:"logJSON,omitempty"`
}

// Load attempts to read consolidate.yml or consolidate.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"consolidate.yml", "consolidate.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", name, err)
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

// Apply overlays the non-zero fields of p on base.
func (p *ProjectConfig) Apply(base synthesis.Config) synthesis.Config {
	out := base
	if p.QualityThreshold > 0 {
		out.QualityThreshold = p.QualityThreshold
	}
	// Zero is a real setting here: it turns enhancement off.
	if p.RetryBudget != nil && *p.RetryBudget >= 0 {
		out.RetryBudget = *p.RetryBudget
	}
	if p.MinCodeBlocks > 0 {
		out.MinCodeBlocks = p.MinCodeBlocks
	}
	if p.TimelineBuffer > 0 {
		out.TimelineBuffer = p.TimelineBuffer
	}
	if p.ParseWorkers > 0 {
		out.ParseWorkers = p.ParseWorkers
	}
	if len(p.TimelineWeights) > 0 {
		out.TimelineWeights = overlay(base.TimelineWeights, p.TimelineWeights)
	}
	if len(p.PriorityWeights) > 0 {
		out.PriorityWeights = overlay(base.PriorityWeights, p.PriorityWeights)
	}
	w := p.ScoreWeights
	if w.Completeness+w.CodeQuality+w.Clarity+w.Consensus > 0 {
		out.ScoreWeights = synthesis.ScoreWeights{
			Completeness: w.Completeness,
			CodeQuality:  w.CodeQuality,
			Clarity:      w.Clarity,
			Consensus:    w.Consensus,
		}
	}
	if len(p.ExpectedRoles) > 0 {
		out.ExpectedRoles = roles(p.ExpectedRoles)
	}
	if len(p.RolePriority) > 0 {
		out.RolePriority = roles(p.RolePriority)
	}
	return out
}

// Timeout parses CollectTimeout, falling back to def when unset or invalid.
func (p *ProjectConfig) Timeout(def time.Duration) time.Duration {
	if p.CollectTimeout == "" {
		return def
	}
	d, err := time.ParseDuration(p.CollectTimeout)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func overlay(base map[synthesis.Role]float64, over map[string]float64) map[synthesis.Role]float64 {
	out := make(map[synthesis.Role]float64, len(base)+len(over))
	for r, w := range base {
		out[r] = w
	}
	for r, w := range over {
		out[synthesis.Role(r)] = w
	}
	return out
}

func roles(names []string) []synthesis.Role {
	out := make([]synthesis.Role, len(names))
	for i, n := range names {
		out[i] = synthesis.Role(n)
	}
	return out
}
