package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/0x6d61/agentscan/pkg/schema"
)

// niktoLexicon は Web 脆弱性メッセージの語彙による分類ルール。
var niktoLexicon = NewLexicon(
	Rule{schema.SeverityCritical, Pattern(cvePattern)},
	Rule{schema.SeverityCritical, Substrings(
		"remote code execution", "command injection", "sql injection", "shellshock", "backdoor",
		"arbitrary code", "remote file inclusion",
	)},

	Rule{schema.SeverityHigh, Substrings(
		"cross-site scripting", "directory traversal", "path traversal", "default credentials",
		"default password", "default account", "phpmyadmin", "/admin", "file upload",
		"local file inclusion",
	)},
	Rule{schema.SeverityHigh, Words("xss")},

	Rule{schema.SeverityMedium, Substrings(
		"outdated", "directory indexing", "x-frame-options", "content-security-policy",
		"strict-transport-security", "httponly", "secure flag", "trace method", "put method",
		"delete method", "webdav",
	)},

	Rule{schema.SeverityLow, Substrings(
		"x-content-type-options", "x-xss-protection", "server:", "x-powered-by", "banner",
		"uncommon header", "etag", "header",
	)},
)

// --- nikto JSON パーサー ---

// niktoHost は nikto -Format json のホスト 1 件
type niktoHost struct {
	Host            string      `json:"host"`
	IP              string      `json:"ip"`
	Port            flexString  `json:"port"`
	Banner          string      `json:"banner"`
	Vulnerabilities []niktoVuln `json:"vulnerabilities"`
}

type niktoVuln struct {
	ID         flexString `json:"id"`
	OSVDB      flexString `json:"osvdb"`
	References string     `json:"references"`
	Method     string     `json:"method"`
	URL        string     `json:"url"`
	Msg        string     `json:"msg"`
}

// flexString は文字列でも数値でも受け付ける JSON 値。
// nikto のバージョンによって port や id の型が異なる。
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// NewNikto は nikto 用のパーサーを返す。一次フォーマットは JSON。
func NewNikto(opts ...Option) *Engine {
	return NewEngine(Format{
		Tool:     "nikto",
		Lexicon:  niktoLexicon,
		Decode:   decodeNiktoJSON,
		Fallback: parseNiktoText,
		Zero: func() schema.Statistics {
			return schema.Statistics{"hosts": 0, "items": 0}
		},
	}, opts...)
}

// decodeNiktoJSON は nikto JSON 出力をパースする。
// 単一ホストのオブジェクトとホスト配列の両方を受け付ける。
func decodeNiktoJSON(raw, _ string) (*Scan, error) {
	start := strings.IndexAny(raw, "[{")
	if start < 0 {
		return nil, errors.New("nikto JSON: no document found")
	}

	dec := json.NewDecoder(strings.NewReader(raw[start:]))
	var hosts []niktoHost
	if raw[start] == '[' {
		if err := dec.Decode(&hosts); err != nil {
			return nil, fmt.Errorf("nikto JSON parse: %w", err)
		}
	} else {
		var h niktoHost
		if err := dec.Decode(&h); err != nil {
			return nil, fmt.Errorf("nikto JSON parse: %w", err)
		}
		hosts = []niktoHost{h}
	}

	scan := &Scan{Stats: schema.Statistics{}}
	total := 0
	for _, h := range hosts {
		host := orDefault(h.Host, h.IP)
		base := host
		if h.Port != "" {
			base = host + ":" + string(h.Port)
		}
		for _, v := range h.Vulnerabilities {
			total++
			msg := compactSpace(v.Msg)
			if msg == "" {
				continue
			}
			desc := msg
			if v.URL != "" {
				desc = strings.TrimSpace(v.Method+" "+v.URL) + ": " + msg
			}
			if v.References != "" {
				desc += " - References: " + v.References
			}
			scan.Items = append(scan.Items, Item{
				Key:         fmt.Sprintf("vuln|%s|%s|%s|%s", base, v.ID, v.URL, msg),
				Title:       niktoTitle(msg),
				Description: desc,
				Target:      base + v.URL,
			})
		}
	}
	scan.Stats["hosts"] = len(hosts)
	scan.Stats["items"] = total
	return scan, nil
}

// niktoTitle はメッセージの最初の文を見出しとして切り出す。
func niktoTitle(msg string) string {
	const maxTitle = 80
	title := msg
	if i := strings.Index(title, ": "); i > 0 && strings.HasPrefix(title, "/") {
		// "/admin/: Admin login page found." のようなパス前置きは落とす
		title = title[i+2:]
	}
	if i := strings.Index(title, ". "); i > 0 {
		title = title[:i]
	}
	title = strings.TrimRight(title, ". ")
	if r := []rune(title); len(r) > maxTitle {
		title = string(r[:maxTitle]) + "..."
	}
	return strings.TrimSpace(title)
}

// --- nikto テキストパーサー ---

// niktoHeaderPrefixes はスキャン情報で、発見物ではない "+ " 行。
var niktoHeaderPrefixes = []string{
	"Target IP:", "Target Hostname:", "Target Port:", "Start Time:", "End Time:", "SSL Info:",
}

// parseNiktoText は nikto の標準出力から "+ " 行を抽出する。
// JSON パーサーのフォールバックとして使用。
func parseNiktoText(raw, commandUsed string) *Scan {
	scan := &Scan{Stats: schema.Statistics{}}
	target := extractURLFromFlag(commandUsed, "-h")
	if port := extractURLFromFlag(commandUsed, "-p"); target != "" && port != "" {
		target += ":" + port
	}
	hosts := 0

	for _, line := range splitLines(raw) {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "+ ") {
			continue
		}
		msg := strings.TrimSpace(strings.TrimPrefix(trimmed, "+ "))
		if strings.HasPrefix(msg, "Target IP:") {
			hosts++
		}
		if isNiktoHeader(msg) {
			continue
		}

		desc := msg
		if cves := entityValues(ExtractEntities([]string{msg}), EntityCVE); len(cves) > 0 {
			desc += " - References: " + strings.Join(cves, ", ")
		}
		scan.Items = append(scan.Items, Item{
			Key:         "line|" + msg,
			Title:       niktoTitle(msg),
			Description: desc,
			Target:      orDefault(target, "unknown"),
		})
	}
	scan.Stats["hosts"] = hosts
	scan.Stats["items"] = len(scan.Items)
	return scan
}

func isNiktoHeader(msg string) bool {
	for _, p := range niktoHeaderPrefixes {
		if strings.HasPrefix(msg, p) {
			return true
		}
	}
	return strings.Contains(msg, "host(s) tested")
}
