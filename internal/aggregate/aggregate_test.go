package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fanout/internal/lsp"
	"github.com/dshills/fanout/internal/lsptest"
)

const method = "workspace/symbol"

func symbolServer(name string, delay time.Duration, symbol string) *lsptest.Server {
	s := lsptest.NewServer(name, lsp.EncodingUTF16, lsp.NewCapabilities(lsp.CapabilityWorkspaceSymbols))
	payload := lsptest.Array(lsptest.FlatSymbol(symbol, lsp.SymbolKindFunction, "file:///x.go", lsptest.Rng(0, 0, 1)))
	s.Transport.On(method, lsptest.Response{Result: json.RawMessage(payload), Delay: delay})
	return s
}

func workspaceJobs(servers ...lsp.Client) []Job[[]lsp.SymbolInformation] {
	return Jobs(servers,
		func(c lsp.Client) lsp.Call { return c.WorkspaceSymbols("") },
		lsp.DecodeWorkspaceSymbols)
}

func names(batches []Batch[[]lsp.SymbolInformation]) []string {
	var out []string
	for _, b := range batches {
		for _, s := range b.Items {
			out = append(out, s.Name)
		}
	}
	return out
}

func TestCollect_SubmissionOrderNotCompletionOrder(t *testing.T) {
	// Latency decreases with submission index, so completion order is reversed.
	a := symbolServer("a", 60*time.Millisecond, "first")
	b := symbolServer("b", 30*time.Millisecond, "second")
	c := symbolServer("c", 0, "third")

	for _, policy := range []Policy{FailFast, Partial} {
		batches, err := Collect(context.Background(), New(WithPolicy(policy)),
			lsp.CapabilityWorkspaceSymbols, workspaceJobs(a, b, c))
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second", "third"}, names(batches), policy.String())
		assert.Equal(t, lsp.ServerID("a"), batches[0].Origin.Server)
	}
}

func TestCollect_ConcurrencyLimitKeepsOrder(t *testing.T) {
	a := symbolServer("a", 20*time.Millisecond, "1")
	b := symbolServer("b", 10*time.Millisecond, "2")
	c := symbolServer("c", 0, "3")

	batches, err := Collect(context.Background(), New(WithConcurrencyLimit(1)),
		lsp.CapabilityWorkspaceSymbols, workspaceJobs(a, b, c))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, names(batches))
}

func TestCollect_DeduplicatesServers(t *testing.T) {
	a := symbolServer("a", 0, "only")

	batches, err := Collect(context.Background(), New(),
		lsp.CapabilityWorkspaceSymbols, workspaceJobs(a, a, a))
	require.NoError(t, err)
	assert.Len(t, batches, 1)
	assert.Equal(t, 1, a.Transport.Calls(method))
}

func TestCollect_EmptyPayloadContributesNothing(t *testing.T) {
	a := symbolServer("a", 0, "x")
	empty := lsptest.NewServer("empty", lsp.EncodingUTF16, lsp.NewCapabilities(lsp.CapabilityWorkspaceSymbols))

	batches, err := Collect(context.Background(), New(),
		lsp.CapabilityWorkspaceSymbols, workspaceJobs(empty, a))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, names(batches))
}

func TestCollect_FailFastDiscardsLaterBatches(t *testing.T) {
	a := symbolServer("a", 0, "kept?")
	bad := lsptest.NewServer("bad", lsp.EncodingUTF16, lsp.NewCapabilities(lsp.CapabilityWorkspaceSymbols))
	bad.Transport.On(method, lsptest.Response{Err: errors.New("crashed"), Delay: 20 * time.Millisecond})
	c := symbolServer("c", 0, "lost")

	batches, err := Collect(context.Background(), New(),
		lsp.CapabilityWorkspaceSymbols, workspaceJobs(a, bad, c))
	require.Error(t, err)
	assert.Nil(t, batches)

	var serr *lsp.ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "bad", serr.Server)
}

func TestCollect_FailFastReportsFirstInSubmissionOrder(t *testing.T) {
	slow := lsptest.NewServer("slow", lsp.EncodingUTF16, lsp.NewCapabilities(lsp.CapabilityWorkspaceSymbols))
	slow.Transport.On(method, lsptest.Response{Err: errors.New("slow failure"), Delay: 30 * time.Millisecond})
	fast := lsptest.NewServer("fast", lsp.EncodingUTF16, lsp.NewCapabilities(lsp.CapabilityWorkspaceSymbols))
	fast.Transport.On(method, lsptest.Response{Err: errors.New("fast failure")})

	_, err := Collect(context.Background(), New(),
		lsp.CapabilityWorkspaceSymbols, workspaceJobs(slow, fast))
	assert.ErrorContains(t, err, "slow failure")
}

func TestCollect_PartialKeepsSuccesses(t *testing.T) {
	a := symbolServer("a", 10*time.Millisecond, "one")
	bad := lsptest.NewServer("bad", lsp.EncodingUTF16, lsp.NewCapabilities(lsp.CapabilityWorkspaceSymbols))
	bad.Transport.Reply(method, `{"not":"symbols"}`)
	c := symbolServer("c", 0, "two")

	batches, err := Collect(context.Background(), New(WithPolicy(Partial)),
		lsp.CapabilityWorkspaceSymbols, workspaceJobs(a, bad, c))
	assert.Equal(t, []string{"one", "two"}, names(batches))

	failures, ok := AsFailures(err)
	require.True(t, ok)
	require.Len(t, failures, 1)
	assert.Equal(t, lsp.ServerID("bad"), failures[0].Server)
	assert.ErrorIs(t, err, lsp.ErrInvalidResponse)
}

func TestCollect_ContextCancelled(t *testing.T) {
	a := lsptest.NewServer("a", lsp.EncodingUTF16, lsp.NewCapabilities(lsp.CapabilityWorkspaceSymbols))
	a.Transport.On(method, lsptest.Response{Result: json.RawMessage("[]"), Delay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Collect(ctx, New(), lsp.CapabilityWorkspaceSymbols, workspaceJobs(a))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestJobs_SkipsMissingSubCapability(t *testing.T) {
	full := lsptest.NewServer("full", lsp.EncodingUTF16, lsptest.AllCapabilities())
	partial := lsptest.NewServer("partial", lsp.EncodingUTF16, lsp.NewCapabilities(lsp.CapabilityRenameSymbol))

	jobs := Jobs([]lsp.Client{full, partial},
		func(c lsp.Client) lsp.Call { return c.PrepareRename(lsp.TextDocumentIdentifier{}, lsp.Position{}) },
		lsp.DecodePrepareRename)
	require.Len(t, jobs, 1)
	assert.Equal(t, lsp.ServerID("full"), jobs[0].Server.ID())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("partial")
	require.NoError(t, err)
	assert.Equal(t, Partial, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, FailFast, p)

	_, err = ParsePolicy("eventually")
	assert.Error(t, err)
}

func TestOne(t *testing.T) {
	a := symbolServer("a", 0, "solo")
	batch, err := One(context.Background(), New(WithPolicy(Partial)), lsp.CapabilityWorkspaceSymbols, a,
		func(c lsp.Client) lsp.Call { return c.WorkspaceSymbols("") },
		lsp.DecodeWorkspaceSymbols)
	require.NoError(t, err)
	assert.Equal(t, "solo", batch.Items[0].Name)
	assert.Equal(t, "a", batch.Name)

	bad := lsptest.NewServer("bad", lsp.EncodingUTF16, lsp.NewCapabilities(lsp.CapabilityWorkspaceSymbols))
	bad.Transport.On(method, lsptest.Response{Err: errors.New("gone")})
	_, err = One(context.Background(), New(WithPolicy(Partial)), lsp.CapabilityWorkspaceSymbols, bad,
		func(c lsp.Client) lsp.Call { return c.WorkspaceSymbols("") },
		lsp.DecodeWorkspaceSymbols)
	assert.ErrorContains(t, err, "gone")
	_, isFailures := AsFailures(err)
	assert.False(t, isFailures)

	_, err = One(context.Background(), New(), lsp.CapabilityWorkspaceSymbols, a,
		func(c lsp.Client) lsp.Call { return nil },
		lsp.DecodeWorkspaceSymbols)
	assert.ErrorIs(t, err, lsp.ErrNotSupported)
}
