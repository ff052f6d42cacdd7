package lsp

// Capability identifies an analysis feature a server may advertise.
type Capability int

const (
	CapabilityDocumentSymbols Capability = iota
	CapabilityWorkspaceSymbols
	CapabilityCodeAction
	CapabilityGotoDeclaration
	CapabilityGotoDefinition
	CapabilityGotoTypeDefinition
	CapabilityGotoImplementation
	CapabilityGotoReference
	CapabilityRenameSymbol
	CapabilityDocumentHighlight
	CapabilityInlayHints
)

// String returns the display name used in status messages.
func (c Capability) String() string {
	switch c {
	case CapabilityDocumentSymbols:
		return "document-symbols"
	case CapabilityWorkspaceSymbols:
		return "workspace-symbols"
	case CapabilityCodeAction:
		return "code-action"
	case CapabilityGotoDeclaration:
		return "goto-declaration"
	case CapabilityGotoDefinition:
		return "goto-definition"
	case CapabilityGotoTypeDefinition:
		return "goto-type-definition"
	case CapabilityGotoImplementation:
		return "goto-implementation"
	case CapabilityGotoReference:
		return "goto-reference"
	case CapabilityRenameSymbol:
		return "rename-symbol"
	case CapabilityDocumentHighlight:
		return "document-highlight"
	case CapabilityInlayHints:
		return "inlay-hints"
	default:
		return "unknown"
	}
}

// ParseCapability maps a display name back to its Capability.
func ParseCapability(name string) (Capability, bool) {
	for c := CapabilityDocumentSymbols; c <= CapabilityInlayHints; c++ {
		if c.String() == name {
			return c, true
		}
	}
	return 0, false
}

// Capabilities is the set of features a server advertises, plus the
// sub-capabilities that gate optional requests.
type Capabilities struct {
	features map[Capability]bool

	// PrepareRename reports textDocument/prepareRename support.
	PrepareRename bool

	// ResolveCodeAction reports codeAction/resolve support.
	ResolveCodeAction bool

	// ExecuteCommand reports workspace/executeCommand support.
	ExecuteCommand bool
}

// NewCapabilities returns a capability set advertising the given features.
func NewCapabilities(features ...Capability) Capabilities {
	c := Capabilities{features: make(map[Capability]bool, len(features))}
	for _, f := range features {
		c.features[f] = true
	}
	return c
}

// Has reports whether the feature is advertised.
func (c Capabilities) Has(f Capability) bool {
	return c.features[f]
}

// List returns the advertised features in declaration order.
func (c Capabilities) List() []Capability {
	var out []Capability
	for f := CapabilityDocumentSymbols; f <= CapabilityInlayHints; f++ {
		if c.features[f] {
			out = append(out, f)
		}
	}
	return out
}
