package parser

import (
	"fmt"
	"strings"
)

// Excerpt は raw の先頭 head 行と末尾 tail 行を残し、中間を省略した文字列を返す。
// デグレード時のログに生出力の様子を残すために使う。
func Excerpt(raw string, head, tail int) string {
	return truncateHeadTail(splitLines(raw), head, tail)
}

// truncateHeadTail は先頭 head 行 + 末尾 tail 行を残す。
// 合計行数が head+tail 以下なら全行を返す。
func truncateHeadTail(lines []string, head, tail int) string {
	total := len(lines)
	if total == 0 {
		return ""
	}
	if head < 0 {
		head = 0
	}
	if tail < 0 {
		tail = 0
	}
	if head+tail >= total {
		return strings.Join(lines, "\n")
	}

	omitted := total - head - tail
	var sb strings.Builder
	for _, l := range lines[:head] {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	sb.WriteString(fmt.Sprintf("--- %d lines omitted ---\n", omitted))
	for i, l := range lines[total-tail:] {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(l)
	}
	return sb.String()
}

// splitLines は CRLF を正規化して行に分割する。末尾の空行は捨てる。
func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.TrimRight(raw, "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}
