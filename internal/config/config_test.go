package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fanout/internal/aggregate"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, aggregate.FailFast, cfg.Policy())
}

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
[lsp]
display_inlay_hints = false
aggregation = "partial"
max_concurrent_requests = 4

[symbols]
label_width = 120
`)
	cfg, err := Parse("test.toml", data)
	require.NoError(t, err)

	assert.False(t, cfg.LSP.DisplayInlayHints)
	assert.True(t, cfg.LSP.GotoReferenceIncludeDeclaration, "unset keys keep defaults")
	assert.Equal(t, aggregate.Partial, cfg.Policy())
	assert.Equal(t, 4, cfg.LSP.MaxConcurrentRequests)
	assert.Equal(t, 120, cfg.Symbols.LabelWidth)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Len(t, cfg.AggregatorOptions(), 2)
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse("bad.toml", []byte("[lsp\naggregation = 1"))
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad.toml", pe.Path)
	assert.Positive(t, pe.Line)
}

func TestParseUnknownKey(t *testing.T) {
	_, err := Parse("extra.toml", []byte("[lsp]\ninlay = true\n"))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "lsp.inlay")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		toml string
		key  string
	}{
		{"policy", "[lsp]\naggregation = \"sometimes\"\n", "lsp.aggregation"},
		{"concurrency", "[lsp]\nmax_concurrent_requests = -1\n", "lsp.max_concurrent_requests"},
		{"label width", "[symbols]\nlabel_width = -3\n", "symbols.label_width"},
		{"level", "[log]\nlevel = \"loud\"\n", "log.level"},
		{"format", "[log]\nformat = \"xml\"\n", "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("v.toml", []byte(tt.toml))
			assert.ErrorIs(t, err, ErrValidationFailed)

			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.key, fe.Key)
		})
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fanout.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\nformat = \"json\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Log{Level: "debug", Format: "json"}, cfg.Log)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fanout.toml")
	require.NoError(t, os.WriteFile(path, []byte("[lsp]\ndisplay_inlay_hints = true\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type reload struct {
		cfg Config
		err error
	}
	reloads := make(chan reload, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, func(cfg Config, err error) {
			reloads <- reload{cfg, err}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("[lsp]\ndisplay_inlay_hints = false\n"), 0o644))
	}

	select {
	case r := <-reloads:
		require.NoError(t, r.err)
		assert.False(t, r.cfg.LSP.DisplayInlayHints)
	case <-time.After(2 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
