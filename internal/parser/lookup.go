package parser

import (
	"maps"
	"slices"
)

// builtins はパーサー名 → コンストラクタ。
var builtins = map[string]func(opts ...Option) *Engine{
	"nmap":   NewNmap,
	"ffuf":   NewFfuf,
	"tshark": NewTshark,
	"nikto":  NewNikto,
}

// Generic は汎用テキストパーサーの名前。
const Generic = "generic"

// Lookup は名前に対応する組み込みパーサーを返す。
// "generic" は tool をツール名とする汎用パーサーになる。
func Lookup(name, tool string, opts ...Option) (Parser, bool) {
	if name == Generic {
		return NewGeneric(tool, opts...), true
	}
	ctor, ok := builtins[name]
	if !ok {
		return nil, false
	}
	return ctor(opts...), true
}

// Names は利用可能なパーサー名を昇順で返す。
func Names() []string {
	names := slices.Collect(maps.Keys(builtins))
	names = append(names, Generic)
	slices.Sort(names)
	return names
}
