package symbols

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/dshills/fanout/internal/aggregate"
	"github.com/dshills/fanout/internal/lsp"
)

// Service fans symbol requests out to every capable server.
type Service struct {
	agg    *aggregate.Aggregator
	logger *slog.Logger
}

// NewService creates a symbol service.
func NewService(agg *aggregate.Aggregator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{agg: agg, logger: logger}
}

type documentResult struct {
	nested []lsp.DocumentSymbol
	flat   []lsp.SymbolInformation
}

// Document returns the flattened document symbols of every server, in
// server submission order. Nested results are flattened in pre-order; flat
// results pass through unchanged.
func (s *Service) Document(ctx context.Context, servers []lsp.Client, doc lsp.TextDocumentIdentifier) ([]Symbol, error) {
	jobs := aggregate.Jobs(servers,
		func(c lsp.Client) lsp.Call { return c.DocumentSymbols(doc) },
		func(raw json.RawMessage) (documentResult, error) {
			nested, flat, err := lsp.DecodeDocumentSymbols(raw)
			return documentResult{nested: nested, flat: flat}, err
		})

	batches, err := aggregate.Collect(ctx, s.agg, lsp.CapabilityDocumentSymbols, jobs)
	if _, partial := aggregate.AsFailures(err); err != nil && !partial {
		return nil, err
	}

	var out []Symbol
	for _, b := range batches {
		if b.Items.flat != nil {
			out = append(out, FromInformation(b.Items.flat, b.Origin)...)
			continue
		}
		out = append(out, Flatten(doc.URI, b.Items.nested, b.Origin)...)
	}
	return out, err
}

// Workspace returns the workspace symbols matching query from every server.
// Symbols whose URI does not parse are dropped.
func (s *Service) Workspace(ctx context.Context, servers []lsp.Client, query string) ([]Symbol, error) {
	jobs := aggregate.Jobs(servers,
		func(c lsp.Client) lsp.Call { return c.WorkspaceSymbols(query) },
		lsp.DecodeWorkspaceSymbols)

	batches, err := aggregate.Collect(ctx, s.agg, lsp.CapabilityWorkspaceSymbols, jobs)
	if _, partial := aggregate.AsFailures(err); err != nil && !partial {
		return nil, err
	}

	var out []Symbol
	for _, b := range batches {
		valid := b.Items[:0:0]
		for _, info := range b.Items {
			if !lsp.ValidURI(info.Location.URI) {
				s.logger.Warn("dropping workspace symbol with invalid uri",
					"server", b.Name, "symbol", info.Name, "uri", info.Location.URI)
				continue
			}
			valid = append(valid, info)
		}
		out = append(out, FromInformation(valid, b.Origin)...)
	}
	return out, err
}
