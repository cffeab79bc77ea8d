package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// tokenRe は "{key}" を検出する。
var tokenRe = regexp.MustCompile(`\{(\w+)\}`)

// token はスケルトンの 1 要素。Name が空ならリテラル（Prefix が値）。
// 埋め込みプレースホルダーは Prefix + 値 + Suffix で 1 つの引数になる。
type token struct {
	Prefix string
	Name   string
	Suffix string
}

func (t token) isLiteral() bool { return t.Name == "" }

// parseToken はスケルトンの 1 トークンを分解する。
// 1 トークンに置けるプレースホルダーは 1 つまで。
func parseToken(s string) (token, error) {
	locs := tokenRe.FindAllStringSubmatchIndex(s, -1)
	switch len(locs) {
	case 0:
		if strings.ContainsAny(s, "{}") {
			return token{}, fmt.Errorf("token %q has unbalanced braces", s)
		}
		if s == "" {
			return token{}, fmt.Errorf("empty token")
		}
		return token{Prefix: s}, nil
	case 1:
		loc := locs[0]
		t := token{Prefix: s[:loc[0]], Name: s[loc[2]:loc[3]], Suffix: s[loc[1]:]}
		if strings.ContainsAny(t.Prefix+t.Suffix, "{}") {
			return token{}, fmt.Errorf("token %q has unbalanced braces", s)
		}
		return t, nil
	default:
		return token{}, fmt.Errorf("token %q has more than one placeholder", s)
	}
}

// BuildArgs は named の値を検証してテンプレートのプレースホルダーを展開する。
//
// ルール:
//   - 定義にない名前が渡されたらエラー
//   - required の引数がなければエラー、optional なら default を使う
//   - 値は string / 整数値の number / bool のみ（配列やオブジェクトは不可）
//   - 1 つのプレースホルダーは必ず 1 つの引数になる（空白で分割しない）
//
// エラー時に部分的な引数列は返さない。
func BuildArgs(t *Template, named map[string]any) ([]string, error) {
	for name := range named {
		if _, ok := t.args[name]; !ok {
			return nil, validationErrorf(t.tool, t.def.ID, name, "unknown argument")
		}
	}

	values := make(map[string]string, len(t.def.Arguments))
	for _, def := range t.def.Arguments {
		spec := t.args[def.Name]
		raw, ok := named[def.Name]
		if !ok {
			if def.Required {
				return nil, validationErrorf(t.tool, t.def.ID, def.Name, "required argument missing")
			}
			values[def.Name] = def.Default
			continue
		}
		s, err := coerceValue(raw)
		if err != nil {
			return nil, validationErrorf(t.tool, t.def.ID, def.Name, "%v", err)
		}
		if err := spec.check(s); err != nil {
			return nil, validationErrorf(t.tool, t.def.ID, def.Name, "%v", err)
		}
		values[def.Name] = s
	}

	result := make([]string, 0, len(t.tokens))
	for _, tok := range t.tokens {
		if tok.isLiteral() {
			result = append(result, tok.Prefix)
			continue
		}
		result = append(result, tok.Prefix+values[tok.Name]+tok.Suffix)
	}
	return result, nil
}

// coerceValue は any 値をプレースホルダー 1 つ分の文字列に変換する。
// JSON 由来の数値（float64 / json.Number）も整数なら小数点なしで表す。
func coerceValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return formatFloat(float64(val), 32)
	case float64:
		return formatFloat(val, 64)
	case json.Number:
		return val.String(), nil
	case nil:
		return "", fmt.Errorf("value is null")
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

func formatFloat(f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("value is not a finite number")
	}
	return strconv.FormatFloat(f, 'f', -1, bits), nil
}
