package importer

import "fmt"

// ParseError reports an input file that could not be read: an unsupported
// kind or malformed content.
type ParseError struct {
	Filename string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("cannot parse import file: %v", e.Err)
	}
	return fmt.Sprintf("cannot parse %s: %v", e.Filename, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports an import request that parsed but cannot be
// applied, such as a missing target table or no usable rows.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}
