// Package filter decides which parsed search records are kept.
//
// A record is kept when it mentions the subject anywhere in its title,
// tags, author or description and, unless the topic requirement is turned
// off, when its title or tags contain one of the topic hints. Matching is
// plain case-sensitive substring search.
package filter
