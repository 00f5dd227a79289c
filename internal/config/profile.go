package config

import (
	"fmt"
	"maps"
	"time"
)

// Profile holds settings for one keyword in the configuration file.
// Zero values mean "not set" and fall through to the next layer.
type Profile struct {
	// Cookie is sent with requests for this keyword.
	// Format: "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Delay is the pause between pages in seconds.
	Delay float64 `yaml:"delay,omitempty"`

	// MaxPages overrides the page limit.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Subject overrides the name records must mention.
	Subject string `yaml:"subject,omitempty"`

	// TopicHints replaces the topic words used by the match filter.
	TopicHints []string `yaml:"topicHints,omitempty"`

	// MatchFilter turns the topic filter on or off. Unset keeps the
	// command-line value.
	MatchFilter *bool `yaml:"matchFilter,omitempty"`
}

// DelayDuration converts Delay to a time.Duration.
func (p Profile) DelayDuration() time.Duration {
	return time.Duration(p.Delay * float64(time.Second))
}

// validate checks the numeric fields of p.
func (p Profile) validate(name string) error {
	if p.Delay < 0 {
		return fmt.Errorf("%w: %s: delay must be non-negative", ErrInvalidProfile, name)
	}
	if p.MaxPages < 0 {
		return fmt.Errorf("%w: %s: maxPages must be non-negative", ErrInvalidProfile, name)
	}
	return nil
}

// File represents the structure of the .bilicrawl configuration file.
type File struct {
	// Defaults apply to every keyword unless overridden by its profile.
	Defaults Profile `yaml:"defaults,omitempty"`

	// Keywords maps a search phrase to its profile. Keys must match the
	// --keyword value exactly.
	Keywords map[string]Profile `yaml:"keywords,omitempty"`
}

// NewFile returns an empty configuration file.
func NewFile() *File {
	return &File{Keywords: make(map[string]Profile)}
}

// Validate checks every profile in the file.
func (cf *File) Validate() error {
	if err := cf.Defaults.validate("defaults"); err != nil {
		return err
	}
	for name, p := range cf.Keywords {
		if err := p.validate(name); err != nil {
			return err
		}
	}
	return nil
}

// GetProfile returns the profile for keyword merged over the defaults.
// The returned headers map is a fresh copy.
func (cf *File) GetProfile(keyword string) Profile {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	override, ok := cf.Keywords[keyword]
	if !ok {
		return result
	}

	if override.Cookie != "" {
		result.Cookie = override.Cookie
	}
	if len(override.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(override.Headers))
		}
		maps.Copy(result.Headers, override.Headers)
	}
	if override.Delay > 0 {
		result.Delay = override.Delay
	}
	if override.MaxPages > 0 {
		result.MaxPages = override.MaxPages
	}
	if override.Subject != "" {
		result.Subject = override.Subject
	}
	if len(override.TopicHints) > 0 {
		result.TopicHints = override.TopicHints
	}
	if override.MatchFilter != nil {
		result.MatchFilter = override.MatchFilter
	}

	return result
}
