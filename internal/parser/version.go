package parser

import "regexp"

// versionPatterns は `<binary> <version_arg>` 出力からバージョンを拾うパターン。
var versionPatterns = map[string]*regexp.Regexp{
	"ffuf":   regexp.MustCompile(`(?i)ffuf version:?\s*v?(\d+\.\d+(?:\.\d+)?)`),
	"tshark": regexp.MustCompile(`TShark \(Wireshark\) (\d+\.\d+(?:\.\d+)?)`),
	"nikto":  regexp.MustCompile(`(?i)nikto(?: version)?\s+v?(\d+\.\d+(?:\.\d+)?)`),
}

var anyVersionRe = regexp.MustCompile(`\bv?(\d+\.\d+(?:\.\d+)?)\b`)

// ParseVersion は tool のバージョン出力からバージョン文字列を返す。
// 専用パターンがなければ最初の x.y(.z) を使い、見つからなければ "unknown"。
func ParseVersion(tool, raw string) string {
	if tool == "nmap" {
		return ParseNmapVersion(raw)
	}
	if re, ok := versionPatterns[tool]; ok {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
	}
	if m := anyVersionRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return "unknown"
}
