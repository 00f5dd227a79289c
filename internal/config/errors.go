package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can match them
// with errors.Is and still print a readable message.
var (
	// ErrNoKeyword is returned when the keyword list is empty.
	ErrNoKeyword = errors.New("no keyword specified: use --keyword")

	// ErrEmptyKeyword is returned when one of the keywords is blank.
	ErrEmptyKeyword = errors.New("invalid keyword: must not be empty")

	// ErrInvalidMaxPages is returned when the page limit is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidDelay is returned when the delay between pages is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidPageSize is returned when the page size is not positive.
	ErrInvalidPageSize = errors.New("invalid page size: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingOutputFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingOutputFormats = errors.New("conflicting output formats: --json and --markdown cannot be used together")

	// ErrNoOutputFile is returned when the output path is empty.
	ErrNoOutputFile = errors.New("no output file specified")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidProfile is returned when a profile in the configuration
	// file has an out-of-range value.
	ErrInvalidProfile = errors.New("invalid profile in configuration file")
)
