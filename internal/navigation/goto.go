// Package navigation implements the single-server features: goto,
// references, document highlight and rename. Each asks only the first
// attached server advertising the capability.
package navigation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dshills/fanout/internal/aggregate"
	"github.com/dshills/fanout/internal/lsp"
)

// Target is a goto destination.
type Target int

const (
	Definition Target = iota
	Declaration
	TypeDefinition
	Implementation
	References
)

var targetNames = map[Target]string{
	Definition:     "definition",
	Declaration:    "declaration",
	TypeDefinition: "type-definition",
	Implementation: "implementation",
	References:     "references",
}

// String returns the command-line name of the target.
func (t Target) String() string {
	if s, ok := targetNames[t]; ok {
		return s
	}
	return "unknown"
}

// ParseTarget parses a command-line name.
func ParseTarget(s string) (Target, error) {
	for t, name := range targetNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown goto target %q", s)
}

// Capability returns the capability the target needs.
func (t Target) Capability() lsp.Capability {
	switch t {
	case Declaration:
		return lsp.CapabilityGotoDeclaration
	case TypeDefinition:
		return lsp.CapabilityGotoTypeDefinition
	case Implementation:
		return lsp.CapabilityGotoImplementation
	case References:
		return lsp.CapabilityGotoReference
	default:
		return lsp.CapabilityGotoDefinition
	}
}

// EmptyMessage is the status text when the server found nothing.
func (t Target) EmptyMessage() string {
	if t == References {
		return "No references found."
	}
	return "No definition found."
}

// Locations is a goto result. Ranges are in Origin.Encoding.
type Locations struct {
	Origin lsp.Origin
	Items  []lsp.Location
}

// Service issues navigation requests.
type Service struct {
	agg    *aggregate.Aggregator
	logger *slog.Logger

	// IncludeDeclaration is sent with reference requests.
	IncludeDeclaration bool
}

// NewService creates a navigation service.
func NewService(agg *aggregate.Aggregator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{agg: agg, logger: logger}
}

// Goto asks server for the locations of target at the cursor, a rune offset
// into pc.
func (s *Service) Goto(ctx context.Context, server lsp.Client, target Target, doc lsp.TextDocumentIdentifier, pc *lsp.PositionConverter, cursor int) (Locations, error) {
	pos := pc.ToServerPosition(cursor, server.OffsetEncoding())
	include := s.IncludeDeclaration

	request := func(c lsp.Client) lsp.Call {
		switch target {
		case Declaration:
			return c.GotoDeclaration(doc, pos)
		case TypeDefinition:
			return c.GotoTypeDefinition(doc, pos)
		case Implementation:
			return c.GotoImplementation(doc, pos)
		case References:
			return c.References(doc, pos, include)
		default:
			return c.GotoDefinition(doc, pos)
		}
	}

	batch, err := aggregate.One(ctx, s.agg, target.Capability(), server, request, lsp.DecodeLocations)
	if err != nil {
		return Locations{}, err
	}
	return Locations{Origin: batch.Origin, Items: batch.Items}, nil
}

// FormatLocation renders a location as uri:line:column, one-based, for
// printing sinks.
func FormatLocation(loc lsp.Location) string {
	return fmt.Sprintf("%s:%d:%d", loc.URI, loc.Range.Start.Line+1, loc.Range.Start.Character+1)
}
