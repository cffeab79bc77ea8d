package parser

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/0x6d61/agentscan/pkg/schema"
)

// ffufLexicon は HTTP ステータスとパス語彙による分類ルール。
var ffufLexicon = NewLexicon(
	Rule{schema.SeverityCritical, Substrings(
		"/.git", ".git/", "/.svn", ".env", ".htpasswd", "id_rsa", "wp-config", ".sql",
		"backup", ".bak", "dump", ".ds_store",
	)},

	Rule{schema.SeverityHigh, Words(
		"admin", "administrator", "phpmyadmin", "console", "debug", "actuator", "swagger",
		"graphql", "manager", "config", "phpinfo",
	)},

	Rule{schema.SeverityMedium, Pattern(`\bstatus: (?:5\d\d|401|403)\b`)},
	Rule{schema.SeverityMedium, Words("login", "upload", "uploads", "api", "internal", "private")},

	Rule{schema.SeverityLow, Pattern(`\bstatus: [23]\d\d\b`)},
)

// --- ffuf JSON パーサー ---

// ffufOutput は ffuf -of json の出力構造
type ffufOutput struct {
	Config  ffufConfig   `json:"config"`
	Results []ffufResult `json:"results"`
}

type ffufConfig struct {
	URL string `json:"url"`
}

type ffufResult struct {
	Input            map[string]string `json:"input"`
	Status           int               `json:"status"`
	Length           int               `json:"length"`
	Words            int               `json:"words"`
	Lines            int               `json:"lines"`
	URL              string            `json:"url"`
	RedirectLocation string            `json:"redirectlocation"`
}

// NewFfuf は ffuf 用のパーサーを返す。一次フォーマットは JSON。
func NewFfuf(opts ...Option) *Engine {
	return NewEngine(Format{
		Tool:     "ffuf",
		Lexicon:  ffufLexicon,
		Decode:   decodeFfufJSON,
		Fallback: parseFfufText,
		Zero: func() schema.Statistics {
			return schema.Statistics{
				"total_requests":  0,
				"status_codes":    map[string]int{},
				"content_lengths": map[string]int{},
			}
		},
		Aggregate: func(stats schema.Statistics, items []Item) {
			stats["status_codes"] = countAttr(items, "status")
			stats["content_lengths"] = countAttr(items, "length")
		},
	}, opts...)
}

// decodeFfufJSON は ffuf JSON 出力をパースする。
func decodeFfufJSON(raw, _ string) (*Scan, error) {
	// JSON 部分を抽出（-s 指定時は前にヒットした語が並ぶ）
	start := strings.Index(raw, "{")
	if start < 0 {
		return nil, errors.New("ffuf JSON: no object found")
	}

	var output ffufOutput
	// 1 値だけデコードし、後続のゴミは無視する
	if err := json.NewDecoder(strings.NewReader(raw[start:])).Decode(&output); err != nil {
		return nil, fmt.Errorf("ffuf JSON parse: %w", err)
	}

	scan := &Scan{Stats: schema.Statistics{"total_requests": len(output.Results)}}
	for _, r := range output.Results {
		target := r.URL
		if target == "" {
			target = expandFuzzURL(output.Config.URL, r.Input)
		}
		if target == "" {
			continue
		}
		scan.Items = append(scan.Items, ffufItem(target, r.Status, r.Length, r.Words, r.Lines, r.RedirectLocation))
	}
	return scan, nil
}

// expandFuzzURL は config.url のキーワード（FUZZ 等）を input の値で置き換える。
// ffuf は input の値を base64 で書き出すので、デコードできればデコード後の値を使う。
func expandFuzzURL(tmpl string, input map[string]string) string {
	if tmpl == "" || len(input) == 0 {
		return ""
	}
	out := tmpl
	for kw, v := range input {
		if kw == "FFUFHASH" {
			continue
		}
		if b, err := base64.StdEncoding.DecodeString(v); err == nil && utf8.Valid(b) && !strings.ContainsFunc(string(b), unicode.IsControl) {
			v = string(b)
		}
		// 値が空だとどの語のヒットか区別できない
		if v == "" {
			return ""
		}
		out = strings.ReplaceAll(out, kw, v)
	}
	if out == tmpl {
		return ""
	}
	return out
}

// ffufItem は 1 件のヒットを Item に変換する。
func ffufItem(rawURL string, status, length, words, lines int, redirect string) Item {
	parts := []string{fmt.Sprintf("Status: %d", status)}
	if length > 0 {
		parts = append(parts, fmt.Sprintf("Length: %d", length))
	}
	if words > 0 {
		parts = append(parts, fmt.Sprintf("Words: %d", words))
	}
	if lines > 0 {
		parts = append(parts, fmt.Sprintf("Lines: %d", lines))
	}
	// ホスト名で分類が揺れないよう、説明にはパスだけを載せる
	parts = append(parts, "Path: "+urlPath(rawURL))
	if redirect != "" {
		parts = append(parts, "Redirect: "+redirect)
	}

	attrs := map[string]string{"status": strconv.Itoa(status)}
	if length > 0 {
		attrs["length"] = strconv.Itoa(length)
	}
	return Item{
		Key:         fmt.Sprintf("url|%d|%s", status, rawURL),
		Title:       fmt.Sprintf("%s - %d", responseKind(status), status),
		Description: strings.Join(parts, " - "),
		Target:      rawURL,
		Attrs:       attrs,
	}
}

// responseKind はステータスコードの分類名を返す。
func responseKind(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "Successful Response"
	case status >= 300 && status < 400:
		return "Redirect Response"
	case status >= 400 && status < 500:
		return "Client Error"
	case status >= 500 && status < 600:
		return "Server Error"
	default:
		return "Unknown Response"
	}
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

// --- ffuf テキストパーサー ---

var (
	// "admin  [Status: 301, Size: 0, Words: 1, Lines: 1, Duration: 3ms]"
	ffufHitLineRe = regexp.MustCompile(`^(\S+)\s+\[Status: (\d+), Size: (\d+), Words: (\d+), Lines: (\d+)`)
	// "200     1234   /admin"
	ffufColumnLineRe = regexp.MustCompile(`^(\d{3})\s+(\d+)\s+(\S+)$`)
	ansiEscapeRe     = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
)

// parseFfufText は ffuf の端末出力からヒット行を抽出する。
// JSON パーサーのフォールバックとして使用。
func parseFfufText(raw, commandUsed string) *Scan {
	scan := &Scan{Stats: schema.Statistics{}}
	base := extractURLFromFlag(commandUsed, "-u")

	for _, line := range splitLines(ansiEscapeRe.ReplaceAllString(raw, "")) {
		trimmed := strings.TrimSpace(strings.TrimPrefix(line, "\r"))
		if trimmed == "" {
			continue
		}
		if m := ffufHitLineRe.FindStringSubmatch(trimmed); m != nil {
			status, _ := strconv.Atoi(m[2])
			size, _ := strconv.Atoi(m[3])
			words, _ := strconv.Atoi(m[4])
			lines, _ := strconv.Atoi(m[5])
			target := m[1]
			if base != "" && strings.Contains(base, "FUZZ") {
				target = strings.ReplaceAll(base, "FUZZ", m[1])
			}
			scan.Items = append(scan.Items, ffufItem(target, status, size, words, lines, ""))
			continue
		}
		if m := ffufColumnLineRe.FindStringSubmatch(trimmed); m != nil {
			status, _ := strconv.Atoi(m[1])
			size, _ := strconv.Atoi(m[2])
			scan.Items = append(scan.Items, ffufItem(m[3], status, size, 0, 0, ""))
		}
	}
	scan.Stats["total_requests"] = len(scan.Items)
	return scan
}

// extractURLFromFlag はコマンド文字列から flag の直後の値を返す。
func extractURLFromFlag(command string, flag string) string {
	parts := strings.Fields(command)
	for i, p := range parts {
		if p == flag && i+1 < len(parts) {
			val := parts[i+1]
			return strings.Trim(val, `"'`)
		}
	}
	return ""
}
