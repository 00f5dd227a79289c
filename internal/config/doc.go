// Package config provides configuration structures and utilities for
// bilicrawl: crawl defaults, validation, the .bilicrawl YAML file with
// per-keyword profiles, and XDG directories.
package config
