package parser

import (
	"regexp"
	"slices"
	"strings"

	"github.com/0x6d61/agentscan/pkg/schema"
)

// Predicate は分類対象テキストに対する判定。
type Predicate func(text string) bool

// Rule は (ティア, 判定) の組。
type Rule struct {
	Severity schema.Severity
	Match    Predicate
}

// Lexicon はツール固有の重大度分類ルール。
// critical → high → medium → low の順に評価し、最初に一致したティアを返す。
// どれにも一致しなければ info。
type Lexicon struct {
	rules []Rule
}

// NewLexicon はルールをティア順（同一ティア内は宣言順）に並べた Lexicon を返す。
// info や未知のティアのルールは評価しても意味がないため捨てる。
func NewLexicon(rules ...Rule) Lexicon {
	kept := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Match == nil || r.Severity.Rank() <= 0 {
			continue
		}
		kept = append(kept, r)
	}
	slices.SortStableFunc(kept, func(a, b Rule) int {
		return b.Severity.Rank() - a.Severity.Rank()
	})
	return Lexicon{rules: kept}
}

// Classify は text の重大度を返す。
func (l Lexicon) Classify(text string) schema.Severity {
	for _, r := range l.rules {
		if r.Match(text) {
			return r.Severity
		}
	}
	return schema.SeverityInfo
}

// Words は大文字小文字を区別せず、いずれかの語が単語境界で現れれば一致する。
func Words(words ...string) Predicate {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	re := regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	return re.MatchString
}

// Substrings は大文字小文字を区別せず、いずれかの部分文字列を含めば一致する。
func Substrings(subs ...string) Predicate {
	lowered := make([]string, len(subs))
	for i, s := range subs {
		lowered[i] = strings.ToLower(s)
	}
	return func(text string) bool {
		t := strings.ToLower(text)
		for _, s := range lowered {
			if strings.Contains(t, s) {
				return true
			}
		}
		return false
	}
}

// Pattern は大文字小文字を区別しない正規表現で判定する。
func Pattern(expr string) Predicate {
	return regexp.MustCompile(`(?i)` + expr).MatchString
}

// cvePattern は CVE 識別子。複数ツールのレキシコンで共有する。
const cvePattern = `\bCVE-\d{4}-\d{4,}\b`
