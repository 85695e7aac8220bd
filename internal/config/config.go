// Package config holds the immutable parameters shared by every component
// of the viewer, following the teacher's flat-struct-with-defaults
// convention (internal/indexer.IndexerConfig, internal/query.QueryConfig).
package config

import (
	"fmt"
	"sync/atomic"
)

// Config is created once at startup and shared by value or pointer across
// every worker; nothing mutates it except StreamActive, which is an atomic
// flag so a stdin-spooler goroutine outside the core can clear it safely.
type Config struct {
	Path       string
	Delimiter  byte
	HasHeaders bool
	IgnoreCase bool
	EchoColumn string
	Debug      bool
	FreezeCols int
	Prompt     string

	// streamActive is true while an external spooler is still appending to
	// Path. RowProvider reads it to decide whether totals may be treated as
	// exact (§4.1, §5 of SPEC_FULL.md).
	streamActive *atomic.Bool
}

// New validates and constructs a Config. Delimiter must be a single ASCII
// byte; a zero or non-ASCII byte is rejected here, at the boundary
// (multi-character candidates are rejected by ValidateDelimiterByte), so
// every downstream component can assume a valid delimiter (DelimiterInvalid is a fatal, before-any-UI error per SPEC_FULL.md §7).
func New(path string, delimiter byte, hasHeaders bool) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: path must not be empty")
	}
	if delimiter == 0 {
		return nil, fmt.Errorf("config: delimiter must not be empty")
	}
	if delimiter > 0x7f {
		return nil, fmt.Errorf("config: delimiter must be ASCII, got %q", delimiter)
	}
	active := &atomic.Bool{}
	return &Config{
		Path:         path,
		Delimiter:    delimiter,
		HasHeaders:   hasHeaders,
		streamActive: active,
	}, nil
}

// StreamActive reports whether the backing file is still being appended to
// by an external streaming spooler.
func (c *Config) StreamActive() bool {
	if c.streamActive == nil {
		return false
	}
	return c.streamActive.Load()
}

// SetStreamActive flips the streaming flag. Called by the stdin-spooler
// collaborator (outside the core, see SPEC_FULL.md §6) when it starts, and
// cleared when it reaches EOF.
func (c *Config) SetStreamActive(active bool) {
	if c.streamActive == nil {
		c.streamActive = &atomic.Bool{}
	}
	c.streamActive.Store(active)
}

// ValidateDelimiterByte is exposed standalone so the CLI boundary (§6) can
// validate a user-supplied delimiter candidate (e.g. from -delimiter or a
// resolved Auto/Tab value) before calling New, and report DelimiterInvalid
// with a specific message rather than a generic config error.
func ValidateDelimiterByte(raw string) (byte, error) {
	switch {
	case len(raw) == 0:
		return 0, fmt.Errorf("delimiter must not be empty")
	case len(raw) > 1:
		return 0, fmt.Errorf("delimiter must be a single character, got %q", raw)
	case raw[0] > 0x7f:
		return 0, fmt.Errorf("delimiter must be ASCII, got %q", raw)
	}
	return raw[0], nil
}
