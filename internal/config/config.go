// Package config loads the engine's TOML configuration and reloads it when
// the file changes on disk.
//
// A missing configuration file is not an error; Load returns Default in that
// case. Every section is optional and unset keys keep their default value.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/fanout/internal/aggregate"
)

// Config is the complete configuration.
type Config struct {
	LSP     LSP     `toml:"lsp"`
	Symbols Symbols `toml:"symbols"`
	Log     Log     `toml:"log"`
}

// LSP configures language-server features.
type LSP struct {
	// DisplayInlayHints enables inlay hint fetching for every view.
	DisplayInlayHints bool `toml:"display_inlay_hints"`

	// GotoReferenceIncludeDeclaration is sent as the references context.
	GotoReferenceIncludeDeclaration bool `toml:"goto_reference_include_declaration"`

	// Aggregation is the fan-out failure policy: "fail-fast" or "partial".
	Aggregation string `toml:"aggregation"`

	// MaxConcurrentRequests bounds in-flight requests per fan-out. Zero
	// means unbounded.
	MaxConcurrentRequests int `toml:"max_concurrent_requests"`
}

// Symbols configures symbol pickers.
type Symbols struct {
	// LabelWidth is the display width used for depth-labelled symbols.
	// Zero detects the terminal width.
	LabelWidth int `toml:"label_width"`
}

// Log configures the logger.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LSP: LSP{
			DisplayInlayHints:               true,
			GotoReferenceIncludeDeclaration: true,
			Aggregation:                     aggregate.FailFast.String(),
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Policy returns the parsed aggregation policy. Validate has already
// rejected unknown names for a loaded configuration.
func (c Config) Policy() aggregate.Policy {
	p, _ := aggregate.ParsePolicy(c.LSP.Aggregation)
	return p
}

// AggregatorOptions returns the aggregator options the configuration implies.
func (c Config) AggregatorOptions() []aggregate.Option {
	return []aggregate.Option{
		aggregate.WithPolicy(c.Policy()),
		aggregate.WithConcurrencyLimit(c.LSP.MaxConcurrentRequests),
	}
}

// Validate checks values that TOML typing cannot.
func (c Config) Validate() error {
	var errs []error
	reject := func(key, format string, args ...any) {
		errs = append(errs, &FieldError{Key: key, Reason: fmt.Sprintf(format, args...)})
	}
	if _, err := aggregate.ParsePolicy(c.LSP.Aggregation); err != nil {
		reject("lsp.aggregation", "%v", err)
	}
	if c.LSP.MaxConcurrentRequests < 0 {
		reject("lsp.max_concurrent_requests", "must not be negative, got %d", c.LSP.MaxConcurrentRequests)
	}
	if c.Symbols.LabelWidth < 0 {
		reject("symbols.label_width", "must not be negative, got %d", c.Symbols.LabelWidth)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		reject("log.level", "unknown level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		reject("log.format", "unknown format %q", c.Log.Format)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrValidationFailed, errors.Join(errs...))
	}
	return nil
}

// Load reads the configuration at path. A missing file yields Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse decodes TOML data on top of Default. source names the data in
// errors.
func Parse(source string, data []byte) (Config, error) {
	cfg := Default()

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, newParseError(source, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", source, err)
	}
	return cfg, nil
}

func newParseError(source string, err error) *ParseError {
	pe := &ParseError{Path: source, Message: err.Error(), Err: err}

	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		pe.Line, pe.Column = derr.Position()
		pe.Message = derr.Error()
	}
	var serr *toml.StrictMissingError
	if errors.As(err, &serr) && len(serr.Errors) > 0 {
		pe.Line, pe.Column = serr.Errors[0].Position()
		pe.Message = "unknown key " + strings.Join(serr.Errors[0].Key(), ".")
	}
	return pe
}
