package tools

import "regexp"

// DefaultDenyPatterns は設定がないときに使う拒否パターン。
// パターンは空白区切りのコマンド文字列全体に対して照合するため、
// コマンド名は引数 1 つ丸ごとの一致に限る（reboot.example.com は通す）。
// 空白を含むパターンは allow_spaces の値にしか現れない。
var DefaultDenyPatterns = []string{
	`(^|\s)rm\s+-rf\s+/`,
	`(^|\s)dd\s+if=`,
	`(^|\s)mkfs(\.\w+)?(\s|$)`,
	`(^|\s)(shutdown|reboot|halt|poweroff)(\s|$)`,
}

// Blacklist は組み立てたコマンドの拒否パターンを保持する。
type Blacklist struct {
	patterns []*regexp.Regexp
}

// NewBlacklist は patterns をコンパイルして Blacklist を返す。
// 不正な正規表現はパニックではなくスキップする。
func NewBlacklist(patterns []string) *Blacklist {
	bl := &Blacklist{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue // 不正なパターンは無視
		}
		bl.patterns = append(bl.patterns, re)
	}
	return bl
}

// Match は command がブラックリストのいずれかに一致するか検査する。
// nil の Blacklist は何も拒否しない。
func (b *Blacklist) Match(command string) bool {
	if b == nil {
		return false
	}
	for _, re := range b.patterns {
		if re.MatchString(command) {
			return true
		}
	}
	return false
}
