package parser

import (
	"fmt"

	"github.com/0x6d61/agentscan/pkg/schema"
)

// genericLexicon はツール固有の語彙を持たないテキストツール向けの分類ルール。
var genericLexicon = NewLexicon(
	Rule{schema.SeverityCritical, Pattern(cvePattern)},
	Rule{schema.SeverityCritical, Words("vulnerable", "exploitable")},
	Rule{schema.SeverityLow, Words("open")},
)

// NewGeneric はテキスト出力のみのツール用パーサーを返す。
// 一次フォーマットを持たないため、汎用エンティティ抽出だけで Item を作る。
func NewGeneric(tool string, opts ...Option) *Engine {
	return NewEngine(Format{
		Tool:     tool,
		Lexicon:  genericLexicon,
		Fallback: parseGenericText,
		Zero: func() schema.Statistics {
			return schema.Statistics{"lines": 0, "entities": map[string]int{}}
		},
		Aggregate: func(stats schema.Statistics, items []Item) {
			stats["entities"] = countAttr(items, "entity")
		},
	}, opts...)
}

// parseGenericText はポート・CVE・URL を 1 件ずつ Item にする。
// IP は文脈なしでは発見物にならないので Target の補完にだけ使う。
func parseGenericText(raw, _ string) *Scan {
	lines := splitLines(raw)
	ents := ExtractEntities(lines)

	target := "unknown"
	if ips := entityValues(ents, EntityIP); len(ips) > 0 {
		target = ips[0]
	}

	scan := &Scan{Stats: schema.Statistics{"lines": len(lines)}}
	for _, e := range ents {
		var title string
		switch e.Type {
		case EntityPort:
			title = "Open Port " + e.Value
		case EntityCVE:
			title = "Reference " + e.Value
		case EntityURL:
			title = "Discovered URL"
		default:
			continue
		}
		t := target
		if e.Type == EntityURL {
			t = e.Value
		}
		scan.Items = append(scan.Items, Item{
			Key:         fmt.Sprintf("%s|%s", e.Type, e.Value),
			Title:       title,
			Description: e.Context,
			Target:      t,
			Attrs:       map[string]string{"entity": string(e.Type)},
		})
	}
	return scan
}
