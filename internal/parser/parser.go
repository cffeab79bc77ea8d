// Package parser はツールの生出力を正規化された Finding と Statistics に変換する。
//
// 各ツールは Format（一次フォーマットのデコーダ、行指向フォールバック、重大度レキシコン）を
// 宣言し、Engine がそれを共通の手順で駆動する:
//
//	Decode → (失敗時) Fallback → 重複除去 → 分類 → ID 付与 → 集計
//
// Parse はいかなる入力に対しても panic もエラーも返さない。
package parser

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/0x6d61/agentscan/pkg/schema"
)

// Parser は 1 ツール分の結果パーサー。
type Parser interface {
	// Parse は raw を正規形に変換する。findings と statistics は常に存在する。
	Parse(raw, commandUsed string, agentID *string) schema.ParseResult
}

// Item はデコーダが取り出した分類前の発見物。
type Item struct {
	Key         string // 重複除去と ID 導出に使う内容キー
	Title       string
	Description string
	Target      string
	Attrs       map[string]string // 集計用の属性（status, protocol, service 等）
}

// Scan はデコーダ 1 回分の出力。
type Scan struct {
	Items []Item
	Stats schema.Statistics // ドキュメント由来の集計値（ホスト数など）
}

// Format はツール固有のパース定義。
type Format struct {
	Tool    string
	Lexicon Lexicon

	// Decode は一次フォーマット（XML/JSON）をデコードする。nil ならテキストツール。
	Decode func(raw, commandUsed string) (*Scan, error)
	// Fallback は生テキストに対する行指向の抽出。
	Fallback func(raw, commandUsed string) *Scan
	// Zero はゼロ値の統計を返す。全キーを持つこと。
	Zero func() schema.Statistics
	// Aggregate は分類後の Item から追加の集計値を書き込む。
	Aggregate func(stats schema.Statistics, items []Item)
}

// errEmptyScan はデコーダがエラーも結果も返さなかったことを示す。
var errEmptyScan = errors.New("decoder returned no scan")

type options struct {
	logger hclog.Logger
	now    func() time.Time
}

// Option は Engine の設定。
type Option func(*options)

// WithLogger はデグレード記録用のロガーを設定する。
func WithLogger(l hclog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock は Finding の timestamp に使う時計を差し替える（テスト用）。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Engine は Format を駆動する汎用パーサー。状態を持たず並行利用できる。
type Engine struct {
	format Format
	logger hclog.Logger
	now    func() time.Time
}

// NewEngine は f を駆動する Engine を返す。
func NewEngine(f Format, opts ...Option) *Engine {
	o := options{logger: hclog.NewNullLogger(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		format: f,
		logger: o.logger.Named(f.Tool),
		now:    o.now,
	}
}

// Tool はパース対象のツール名を返す。
func (e *Engine) Tool() string { return e.format.Tool }

// Parse は Parser を実装する。
func (e *Engine) Parse(raw, commandUsed string, agentID *string) (res schema.ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("parser fault recovered", "panic", fmt.Sprint(r), "command", commandUsed)
			res = schema.ParseResult{Findings: []schema.Finding{}, Statistics: e.zero()}
			res.Statistics["total_findings"] = 0
			res.Statistics["severity"] = schema.CountBySeverity(nil)
			res.Statistics["degraded"] = 1
		}
	}()

	scan, degraded := e.decode(raw, commandUsed)
	return e.finish(scan, degraded, agentID)
}

// decode は一次フォーマットを試し、失敗したらフォールバックに切り替える。
func (e *Engine) decode(raw, commandUsed string) (*Scan, bool) {
	var err error
	if e.format.Decode != nil {
		var scan *Scan
		scan, err = e.format.Decode(raw, commandUsed)
		if err == nil && scan != nil {
			return scan, false
		}
		if err == nil {
			err = errEmptyScan
		}
		e.logger.Warn("primary format parse failed, using text fallback",
			"error", err,
			"bytes", len(raw),
			"excerpt", Excerpt(raw, 5, 3),
		)
	}

	if e.format.Fallback == nil {
		return &Scan{}, err != nil
	}
	scan := e.format.Fallback(raw, commandUsed)
	if scan == nil {
		scan = &Scan{}
	}
	return scan, e.format.Decode != nil
}

// finish は Item を重複除去・分類して ParseResult を組み立てる。
func (e *Engine) finish(scan *Scan, degraded bool, agentID *string) schema.ParseResult {
	stats := e.zero()
	for k, v := range scan.Stats {
		stats[k] = v
	}

	var agent *string
	if agentID != nil {
		id := *agentID
		agent = &id
	}
	ts := e.now().UTC()

	seen := make(map[string]bool, len(scan.Items))
	items := make([]Item, 0, len(scan.Items))
	findings := make([]schema.Finding, 0, len(scan.Items))
	for _, it := range scan.Items {
		key := it.Key
		if key == "" {
			key = it.Title + "\x00" + it.Target + "\x00" + it.Description
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, it)

		findings = append(findings, schema.Finding{
			ID:          FindingID(e.format.Tool, key),
			Severity:    e.format.Lexicon.Classify(it.Title + " " + it.Description),
			Title:       it.Title,
			Description: it.Description,
			Target:      it.Target,
			AgentID:     agent,
			Timestamp:   ts,
		})
	}

	if e.format.Aggregate != nil {
		e.format.Aggregate(stats, items)
	}
	stats["total_findings"] = len(findings)
	stats["severity"] = schema.CountBySeverity(findings)
	if degraded {
		stats["degraded"] = 1
	} else {
		stats["degraded"] = 0
	}

	return schema.ParseResult{Findings: findings, Statistics: stats}
}

func (e *Engine) zero() schema.Statistics {
	if e.format.Zero == nil {
		return schema.Statistics{}
	}
	s := e.format.Zero()
	if s == nil {
		return schema.Statistics{}
	}
	return s
}

// countAttr は items の属性 key の値ごとの件数を返す。空値は数えない。
func countAttr(items []Item, key string) map[string]int {
	counts := make(map[string]int)
	for _, it := range items {
		if v := it.Attrs[key]; v != "" {
			counts[v]++
		}
	}
	return counts
}
