package report

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/0x6d61/agentscan/pkg/schema"
)

// SortFindings は重い順、同じ重大度内では target、title の順に並べた複製を返す。
func SortFindings(findings []schema.Finding) []schema.Finding {
	out := slices.Clone(findings)
	slices.SortStableFunc(out, func(a, b schema.Finding) int {
		if c := cmp.Compare(b.Severity.Rank(), a.Severity.Rank()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Target, b.Target); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
	return out
}

// Markdown は ParseResult の要約を Markdown で返す。
//
//	## nmap scan results
//	| Severity | Count |
//	...
//	### [HIGH] Open Port 23/tcp
func Markdown(tool string, res schema.ParseResult) string {
	var sb strings.Builder
	counts := schema.CountBySeverity(res.Findings)

	fmt.Fprintf(&sb, "## %s scan results\n\n", tool)
	fmt.Fprintf(&sb, "The parser reported %d findings.", len(res.Findings))
	if degraded(res.Statistics) {
		sb.WriteString(" The primary output format could not be parsed; results come from the text fallback.")
	}
	sb.WriteString("\n\n| Severity | Count |\n|---|---|\n")
	for _, s := range schema.Severities {
		fmt.Fprintf(&sb, "| %s | %d |\n", s, counts[string(s)])
	}

	for _, f := range SortFindings(res.Findings) {
		fmt.Fprintf(&sb, "\n### [%s] %s\n\n", strings.ToUpper(string(f.Severity)), escapeInline(f.Title))
		fmt.Fprintf(&sb, "- **Target:** `%s`\n", f.Target)
		fmt.Fprintf(&sb, "- **ID:** `%s`\n", f.ID)
		if f.Description != "" {
			fmt.Fprintf(&sb, "\n%s\n", escapeInline(f.Description))
		}
	}
	return sb.String()
}

func degraded(stats schema.Statistics) bool {
	switch v := stats["degraded"].(type) {
	case int:
		return v != 0
	case float64:
		return v != 0
	}
	return false
}

// inlineEscaper はツール出力由来の文字列が Markdown の構造を壊さないようにする。
var inlineEscaper = strings.NewReplacer(
	"\n", " ",
	"|", `\|`,
	"*", `\*`,
	"_", `\_`,
	"`", "'",
	"#", `\#`,
	"<", "&lt;",
	">", "&gt;",
)

func escapeInline(s string) string { return inlineEscaper.Replace(s) }
