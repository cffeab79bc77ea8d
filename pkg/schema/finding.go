package schema

import (
	"encoding/json"
	"time"
)

// Severity は Finding の重大度。critical > high > medium > low > info の順に厳密に順序付く。
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities は全ティアを重い順に並べたもの。
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// Rank は重大度の順位を返す（critical=4 ... info=0）。未知の値は -1。
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0
	}
	return -1
}

// Valid は s が 5 ティアのいずれかであるかを返す。
func (s Severity) Valid() bool { return s.Rank() >= 0 }

// Finding はツール出力から抽出された正規化済みの単一の発見物。
// パース呼び出しごとに新しく生成され、呼び出し元が所有する。
type Finding struct {
	ID          string    `json:"id"`
	Severity    Severity  `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Target      string    `json:"target"`
	AgentID     *string   `json:"agent_id"` // 所有しない逆参照。なければ null
	Timestamp   time.Time `json:"timestamp"`
}

// Statistics はパース結果に付随するツール固有の集計値。
// 値は非負の数値か、入れ子の map。
type Statistics map[string]any

// ParseResult はパース結果の正規形。findings と statistics は常に両方存在する。
type ParseResult struct {
	Findings   []Finding  `json:"findings"`
	Statistics Statistics `json:"statistics"`
}

// MarshalJSON は findings が nil でも [] を、statistics が nil でも {} を出力する。
func (r ParseResult) MarshalJSON() ([]byte, error) {
	type plain ParseResult
	p := plain(r)
	if p.Findings == nil {
		p.Findings = []Finding{}
	}
	if p.Statistics == nil {
		p.Statistics = Statistics{}
	}
	return json.Marshal(p)
}

// CountBySeverity は findings を重大度ごとに数える。5 ティア全てのキーを持つ。
func CountBySeverity(findings []Finding) map[string]int {
	counts := make(map[string]int, len(Severities))
	for _, s := range Severities {
		counts[string(s)] = 0
	}
	for _, f := range findings {
		if f.Severity.Valid() {
			counts[string(f.Severity)]++
		} else {
			counts[string(SeverityInfo)]++
		}
	}
	return counts
}
