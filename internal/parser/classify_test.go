package parser_test

import (
	"testing"

	"github.com/0x6d61/agentscan/internal/parser"
	"github.com/0x6d61/agentscan/pkg/schema"
)

func TestLexicon_TierOrderWins(t *testing.T) {
	// 宣言順が low → critical でも critical が先に評価される
	lex := parser.NewLexicon(
		parser.Rule{Severity: schema.SeverityLow, Match: parser.Words("open")},
		parser.Rule{Severity: schema.SeverityMedium, Match: parser.Words("ssh")},
		parser.Rule{Severity: schema.SeverityCritical, Match: parser.Words("vulnerable")},
	)

	got := lex.Classify("open ssh port, host is vulnerable")
	if got != schema.SeverityCritical {
		t.Errorf("Classify = %q, want critical", got)
	}
	if got := lex.Classify("open ssh port"); got != schema.SeverityMedium {
		t.Errorf("Classify = %q, want medium", got)
	}
	if got := lex.Classify("open port"); got != schema.SeverityLow {
		t.Errorf("Classify = %q, want low", got)
	}
}

func TestLexicon_NoMatchIsInfo(t *testing.T) {
	lex := parser.NewLexicon(
		parser.Rule{Severity: schema.SeverityHigh, Match: parser.Words("telnet")},
	)
	if got := lex.Classify("nothing interesting"); got != schema.SeverityInfo {
		t.Errorf("Classify = %q, want info", got)
	}
	if got := lex.Classify(""); got != schema.SeverityInfo {
		t.Errorf("Classify(empty) = %q, want info", got)
	}
}

func TestLexicon_ZeroValueIsInfo(t *testing.T) {
	var lex parser.Lexicon
	if got := lex.Classify("CVE-2021-41773"); got != schema.SeverityInfo {
		t.Errorf("zero Lexicon Classify = %q, want info", got)
	}
}

func TestLexicon_DropsInfoAndNilRules(t *testing.T) {
	lex := parser.NewLexicon(
		parser.Rule{Severity: schema.SeverityInfo, Match: parser.Words("anything")},
		parser.Rule{Severity: schema.SeverityHigh, Match: nil},
		parser.Rule{Severity: schema.SeverityLow, Match: parser.Words("anything")},
	)
	if got := lex.Classify("anything"); got != schema.SeverityLow {
		t.Errorf("Classify = %q, want low", got)
	}
}

func TestLexicon_SameTierKeepsDeclarationOrder(t *testing.T) {
	var calls []string
	track := func(name string, result bool) parser.Predicate {
		return func(string) bool {
			calls = append(calls, name)
			return result
		}
	}
	lex := parser.NewLexicon(
		parser.Rule{Severity: schema.SeverityHigh, Match: track("first", false)},
		parser.Rule{Severity: schema.SeverityHigh, Match: track("second", true)},
		parser.Rule{Severity: schema.SeverityHigh, Match: track("third", true)},
	)
	if got := lex.Classify("x"); got != schema.SeverityHigh {
		t.Fatalf("Classify = %q, want high", got)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("evaluation order = %v, want [first second]", calls)
	}
}

func TestWords_WholeWordCaseInsensitive(t *testing.T) {
	match := parser.Words("http", "ms-sql-s")

	if !match("Service: HTTP") {
		t.Error("HTTP should match case-insensitively")
	}
	if !match("service ms-sql-s detected") {
		t.Error("hyphenated word should match")
	}
	// https / httpd は http の単語一致ではない
	if match("Service: https") {
		t.Error("https should not match http")
	}
	if match("Apache httpd") {
		t.Error("httpd should not match http")
	}
}

func TestSubstrings_CaseInsensitive(t *testing.T) {
	match := parser.Substrings("Remote Code Execution")
	if !match("possible remote code execution via header") {
		t.Error("substring should match case-insensitively")
	}
	if match("remote code") {
		t.Error("partial phrase should not match")
	}
}

func TestPattern_CaseInsensitive(t *testing.T) {
	match := parser.Pattern(`\bcve-\d{4}-\d{4,}\b`)
	if !match("ref CVE-2021-41773") {
		t.Error("pattern should match case-insensitively")
	}
	if match("CVE-21-1") {
		t.Error("malformed CVE should not match")
	}
}
