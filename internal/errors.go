package internal

import "fmt"

// StorageError represents errors accessing the state database
type StorageError struct {
	Key string
	Op  string // "open", "get", "put", "migrate"
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents errors decoding a persisted record or a config file
type ParseError struct {
	Source string // "state", "config", "favicon-index"
	Key    string // storage key or file path
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NavigationError is reported when the engine fails to load an address
type NavigationError struct {
	SessionID SessionID
	Address   string
	Err       error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation error [tab %d] %s: %v", e.SessionID, e.Address, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// FaviconError represents errors fetching or validating a site icon
type FaviconError struct {
	URL string
	Err error
}

func (e *FaviconError) Error() string {
	return fmt.Sprintf("favicon error %s: %v", e.URL, e.Err)
}

func (e *FaviconError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
