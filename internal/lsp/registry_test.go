package lsp

import (
	"testing"
)

func newTestClient(id string, caps ...Capability) *RPCClient {
	return NewRPCClient(id, NewCapabilities(caps...), nil, WithServerID(ServerID(id)))
}

func TestSelect_DedupAndOrder(t *testing.T) {
	a := newTestClient("a", CapabilityCodeAction)
	b := newTestClient("b", CapabilityCodeAction, CapabilityInlayHints)
	c := newTestClient("c", CapabilityInlayHints)

	got := Select([]Client{b, a, c, b, a}, CapabilityCodeAction)
	if len(got) != 2 {
		t.Fatalf("Expected 2 servers, got %d", len(got))
	}
	if got[0].ID() != "b" || got[1].ID() != "a" {
		t.Errorf("Expected attachment order [b a], got [%s %s]", got[0].ID(), got[1].ID())
	}
}

func TestSelect_NoDuplicatesForAnyCapability(t *testing.T) {
	all := []Capability{CapabilityDocumentSymbols, CapabilityWorkspaceSymbols, CapabilityCodeAction,
		CapabilityGotoDefinition, CapabilityRenameSymbol, CapabilityInlayHints}
	x := newTestClient("x", all...)
	y := newTestClient("y", all[:3]...)
	servers := []Client{x, y, x, y, x}

	for c := CapabilityDocumentSymbols; c <= CapabilityInlayHints; c++ {
		seen := map[ServerID]bool{}
		for _, s := range Select(servers, c) {
			if seen[s.ID()] {
				t.Errorf("%s: duplicate server %s", c, s.ID())
			}
			seen[s.ID()] = true
		}
	}
}

func TestSelect_Empty(t *testing.T) {
	a := newTestClient("a", CapabilityDocumentSymbols)
	if got := Select([]Client{a}, CapabilityInlayHints); len(got) != 0 {
		t.Errorf("Expected no servers, got %d", len(got))
	}
	if got := Select(nil, CapabilityInlayHints); len(got) != 0 {
		t.Errorf("Expected no servers for nil input, got %d", len(got))
	}
}

func TestFirst(t *testing.T) {
	a := newTestClient("a", CapabilityDocumentSymbols)
	b := newTestClient("b", CapabilityGotoDefinition)
	c := newTestClient("c", CapabilityGotoDefinition)

	got, ok := First([]Client{a, b, c}, CapabilityGotoDefinition)
	if !ok || got.ID() != "b" {
		t.Errorf("Expected b, got %v %v", got, ok)
	}
	if _, ok := First([]Client{a}, CapabilityGotoDefinition); ok {
		t.Error("Expected no server")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := newTestClient("a")
	b := newTestClient("b")

	if err := r.Register(a); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(b); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(a); err == nil {
		t.Error("Expected duplicate registration to fail")
	}

	if r.Len() != 2 {
		t.Errorf("Expected 2 servers, got %d", r.Len())
	}
	list := r.List()
	if list[0].ID() != "a" || list[1].ID() != "b" {
		t.Errorf("Expected registration order")
	}

	r.Unregister("a")
	if _, ok := r.Get("a"); ok {
		t.Error("Expected a to be gone")
	}
	resolved := r.Resolve([]ServerID{"a", "b", "zz"})
	if len(resolved) != 1 || resolved[0].ID() != "b" {
		t.Errorf("Resolve should skip missing servers, got %d", len(resolved))
	}
	r.Unregister("nope")
}

func TestNoServerMessage(t *testing.T) {
	want := "No configured language server supports code-action"
	if got := NoServerMessage(CapabilityCodeAction); got != want {
		t.Errorf("NoServerMessage = %q, want %q", got, want)
	}
}

func TestParseCapability(t *testing.T) {
	for c := CapabilityDocumentSymbols; c <= CapabilityInlayHints; c++ {
		got, ok := ParseCapability(c.String())
		if !ok || got != c {
			t.Errorf("ParseCapability(%q) = %v, %v", c.String(), got, ok)
		}
	}
	if _, ok := ParseCapability("hover"); ok {
		t.Error("Expected unknown capability to fail")
	}
}
