// Package logging はプロセス全体で使う hclog ロガーを組み立てる。
package logging

import (
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Options はロガーの出力設定。
type Options struct {
	Level  string // trace | debug | info | warn | error（未知の値は warn）
	JSON   bool
	Output io.Writer
}

// New は name を持つルートロガーを返す。
// 出力先は stdout ではなく Output（通常は stderr）にして、結果の JSON と混ざらないようにする。
func New(name string, opts Options) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:        name,
		Level:       ParseLevel(opts.Level),
		Output:      opts.Output,
		JSONFormat:  opts.JSON,
		DisableTime: !opts.JSON,
	})
}

// ParseLevel は設定値をログレベルに変換する。
func ParseLevel(s string) hclog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "INFO":
		return hclog.Info
	case "WARN", "WARNING":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	case "OFF":
		return hclog.Off
	default:
		return hclog.Warn
	}
}
