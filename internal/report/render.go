package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"github.com/0x6d61/agentscan/pkg/schema"
)

// Pretty は Markdown レポートを glamour でターミナル向けにレンダリングし、
// 先頭に重大度サマリー行を付ける。
// レンダリングに失敗したら Markdown をそのまま返す。
func Pretty(tool string, res schema.ParseResult, width int) string {
	md := Markdown(tool, res)
	rendered, err := renderMarkdown(md, width)
	if err != nil {
		rendered = md
	}
	return SeveritySummary(schema.CountBySeverity(res.Findings)) + "\n" + rendered
}

// renderMarkdown は glamour を使って Markdown をターミナル用にレンダリングする。
// glamour の dark スタイルは左右マージンを追加するため、width を縮小して渡す。
func renderMarkdown(text string, width int) (string, error) {
	wrapWidth := width - 4
	if wrapWidth < 20 {
		wrapWidth = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return "", err
	}
	return r.Render(text)
}

// SeveritySummary は "CRITICAL 1  HIGH 2  ..." 形式の色付きバッジ列を返す。
func SeveritySummary(counts map[string]int) string {
	badges := make([]string, 0, len(schema.Severities))
	for _, s := range schema.Severities {
		badges = append(badges, severityStyle(s).Render(fmt.Sprintf("%s %d", strings.ToUpper(string(s)), counts[string(s)])))
	}
	return strings.Join(badges, "  ")
}

// ToolTable はツール一覧を桁揃えしたテキスト表にする。
// 説明は width に収まるよう表示幅で切り詰める。
func ToolTable(tools []schema.ToolSummary, width int) string {
	nameW, variantW := len("TOOL"), len("VARIANT")
	for _, t := range tools {
		nameW = max(nameW, runewidth.StringWidth(t.Name))
		for _, v := range t.Variants {
			variantW = max(variantW, runewidth.StringWidth(v.ID))
		}
	}
	descW := width - nameW - variantW - 4
	if descW < 10 {
		descW = 10
	}

	var sb strings.Builder
	row := func(name, variant, desc string) {
		line := runewidth.FillRight(name, nameW) + "  " +
			runewidth.FillRight(variant, variantW) + "  " +
			runewidth.Truncate(desc, descW, "…")
		sb.WriteString(strings.TrimRight(line, " "))
		sb.WriteString("\n")
	}

	row("TOOL", "VARIANT", "DESCRIPTION")
	for _, t := range tools {
		for i, v := range t.Variants {
			name := ""
			if i == 0 {
				name = t.Name
			}
			row(name, v.ID, v.Description)
		}
	}
	return sb.String()
}
