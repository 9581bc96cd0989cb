// Package config loads and validates funclens configuration profiles.
// Validation failures are fatal at setup time: a misconfigured profile is
// surfaced immediately instead of silently degrading at runtime.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Style controls how lens text is presented.
type Style struct {
	Placement   string `toml:"placement" validate:"oneof=above inline"`
	Separator   string `toml:"separator"`
	Prefix      string `toml:"prefix"`
	Highlight   string `toml:"highlight"`
	UseNerdfont bool   `toml:"use_nerdfont"`
}

// Limits bounds what gets rendered. Exceeding any limit suppresses
// rendering for the buffer entirely for that cycle (policy skip).
type Limits struct {
	MaxLines          int      `toml:"max_lines" validate:"gt=0"`
	MaxLenses         int      `toml:"max_lenses" validate:"gt=0"`
	ExcludePatterns   []string `toml:"exclude_patterns"`
	ExcludeGitignored bool     `toml:"exclude_gitignored"`
}

// Provider configures one data source. Order in the profile is the
// invocation and merge order. Options is the provider's opaque blob.
type Provider struct {
	Name    string         `toml:"name" validate:"required"`
	Enabled *bool          `toml:"enabled"`
	Options map[string]any `toml:"options"`
}

// On reports whether the provider is enabled (default true).
func (p *Provider) On() bool {
	return p.Enabled == nil || *p.Enabled
}

// Profile is one named, fully resolved configuration.
type Profile struct {
	Name              string     `toml:"name" validate:"required"`
	Style             Style      `toml:"style"`
	Limits            Limits     `toml:"limits"`
	DebounceMs        int        `toml:"debounce_ms" validate:"gte=0"`
	ProviderTimeoutMs int        `toml:"provider_timeout_ms" validate:"gt=0"`
	Providers         []Provider `toml:"providers" validate:"min=1,dive"`
}

// Config is the root configuration: an ordered, non-empty profile list.
// The first profile is active unless one is selected by name.
type Config struct {
	Profiles []Profile `toml:"profiles" validate:"min=1,dive"`
}

// DefaultProfile returns the built-in "default" profile.
func DefaultProfile() Profile {
	return Profile{
		Name: "default",
		Style: Style{
			Placement: "above",
			Separator: " • ",
			Prefix:    "",
			Highlight: "comment",
		},
		Limits: Limits{
			MaxLines:  1000,
			MaxLenses: 70,
		},
		DebounceMs:        500,
		ProviderTimeoutMs: 5000,
		Providers: []Provider{
			{Name: "references"},
			{Name: "last_author"},
		},
	}
}

// Default returns a Config holding only the default profile.
func Default() *Config {
	return &Config{Profiles: []Profile{DefaultProfile()}}
}

// Load reads a TOML config from path, fills defaults, and validates.
// A missing file yields the default config; a malformed or invalid file
// is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	for i := range cfg.Profiles {
		applyDefaults(&cfg.Profiles[i])
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults overlays the built-in defaults under user-set values.
func applyDefaults(p *Profile) {
	def := DefaultProfile()
	if p.Style.Placement == "" {
		p.Style.Placement = def.Style.Placement
	}
	if p.Style.Separator == "" {
		p.Style.Separator = def.Style.Separator
	}
	if p.Style.Highlight == "" {
		p.Style.Highlight = def.Style.Highlight
	}
	if p.Limits.MaxLines == 0 {
		p.Limits.MaxLines = def.Limits.MaxLines
	}
	if p.Limits.MaxLenses == 0 {
		p.Limits.MaxLenses = def.Limits.MaxLenses
	}
	if p.DebounceMs == 0 {
		p.DebounceMs = def.DebounceMs
	}
	if p.ProviderTimeoutMs == 0 {
		p.ProviderTimeoutMs = def.ProviderTimeoutMs
	}
	if len(p.Providers) == 0 {
		p.Providers = def.Providers
	}
}

// Validate checks structural constraints plus uniqueness rules the
// struct tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Profiles))
	for i := range c.Profiles {
		p := &c.Profiles[i]
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("invalid config: duplicate profile %q", p.Name)
		}
		seen[p.Name] = struct{}{}

		provSeen := make(map[string]struct{}, len(p.Providers))
		for j := range p.Providers {
			name := p.Providers[j].Name
			if _, dup := provSeen[name]; dup {
				return fmt.Errorf("invalid config: profile %q: duplicate provider %q", p.Name, name)
			}
			provSeen[name] = struct{}{}
		}
	}
	return nil
}

// Profile returns the profile with the given name; "" selects the first.
func (c *Config) Profile(name string) (*Profile, error) {
	if name == "" {
		return &c.Profiles[0], nil
	}
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("unknown profile %q", name)
}
