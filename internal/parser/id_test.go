package parser_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/0x6d61/agentscan/internal/parser"
)

func TestFindingID_Deterministic(t *testing.T) {
	a := parser.FindingID("nmap", "port|10.0.0.5|tcp|22")
	b := parser.FindingID("nmap", "port|10.0.0.5|tcp|22")
	if a != b {
		t.Errorf("same input produced different IDs: %s != %s", a, b)
	}

	id, err := uuid.Parse(a)
	if err != nil {
		t.Fatalf("FindingID is not a UUID: %v", err)
	}
	if id.Version() != 5 {
		t.Errorf("UUID version = %d, want 5", id.Version())
	}
}

func TestFindingID_ToolScoped(t *testing.T) {
	if parser.FindingID("nmap", "k") == parser.FindingID("ffuf", "k") {
		t.Error("same key on different tools should yield different IDs")
	}
	// 区切り文字で連結の曖昧さが生じないこと
	if parser.FindingID("ab", "c") == parser.FindingID("a", "bc") {
		t.Error("tool/key boundary should be unambiguous")
	}
}
