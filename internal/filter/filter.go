package filter

import (
	"slices"
	"strings"

	"github.com/nao1215/bilicrawl/internal/model"
)

// DefaultSubject is the name a record has to mention.
const DefaultSubject = "石宇奇"

// DefaultTopicHints are words that mark a video as match footage.
var DefaultTopicHints = []string{
	"比赛", "录像", "集锦", "全场", "决赛", "半决赛", "世锦赛", "奥运", "汤姆斯杯", "苏迪曼杯",
}

// Filter holds the predicates applied to every parsed page.
// The zero value is not usable; create one with New.
type Filter struct {
	subject      string
	topicHints   []string
	requireTopic bool
}

// Option configures a Filter.
type Option func(*Filter)

// WithSubject replaces the subject. An empty subject is ignored.
func WithSubject(subject string) Option {
	return func(f *Filter) {
		if subject != "" {
			f.subject = subject
		}
	}
}

// WithTopicHints replaces the topic hints. Blank hints are dropped; an
// empty list leaves the defaults in place.
func WithTopicHints(hints []string) Option {
	return func(f *Filter) {
		cleaned := make([]string, 0, len(hints))
		for _, h := range hints {
			if h = strings.TrimSpace(h); h != "" {
				cleaned = append(cleaned, h)
			}
		}
		if len(cleaned) > 0 {
			f.topicHints = cleaned
		}
	}
}

// WithRequireTopic toggles the topic predicate. It is on by default.
func WithRequireTopic(require bool) Option {
	return func(f *Filter) {
		f.requireTopic = require
	}
}

// New creates a Filter with the default subject and hints.
func New(opts ...Option) *Filter {
	f := &Filter{
		subject:      DefaultSubject,
		topicHints:   slices.Clone(DefaultTopicHints),
		requireTopic: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Subject returns the subject string.
func (f *Filter) Subject() string {
	return f.subject
}

// TopicHints returns a copy of the topic hints.
func (f *Filter) TopicHints() []string {
	return slices.Clone(f.topicHints)
}

// RequireTopic reports whether the topic predicate is applied.
func (f *Filter) RequireTopic() bool {
	return f.requireTopic
}

// MatchesSubject reports whether the subject occurs in the title, the
// space-joined tags, the author or the description.
func (f *Filter) MatchesSubject(r model.SearchRecord) bool {
	haystack := strings.Join([]string{
		r.Title,
		strings.Join(r.Tags, " "),
		r.Author,
		r.Description,
	}, " ")
	return strings.Contains(haystack, f.subject)
}

// MatchesTopic reports whether any hint occurs in the title or in the
// tags concatenated without a separator.
func (f *Filter) MatchesTopic(r model.SearchRecord) bool {
	tags := strings.Join(r.Tags, "")
	for _, hint := range f.topicHints {
		if strings.Contains(r.Title, hint) || strings.Contains(tags, hint) {
			return true
		}
	}
	return false
}

// Keep reports whether r passes every enabled predicate.
func (f *Filter) Keep(r model.SearchRecord) bool {
	if !f.MatchesSubject(r) {
		return false
	}
	if f.requireTopic && !f.MatchesTopic(r) {
		return false
	}
	return true
}

// Apply returns the records that pass Keep, in input order.
func (f *Filter) Apply(records []model.SearchRecord) []model.SearchRecord {
	kept := make([]model.SearchRecord, 0, len(records))
	for _, r := range records {
		if f.Keep(r) {
			kept = append(kept, r)
		}
	}
	return kept
}
