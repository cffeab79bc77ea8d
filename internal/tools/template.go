package tools

import "strings"

// Template はコンパイル済みの VariantDef。生成後は変更されない。
type Template struct {
	tool   string
	def    VariantDef
	tokens []token
	args   map[string]*argSpec
}

// CompileTemplate は VariantDef を検査してコンパイルする。
// 定義の誤りは *ConfigurationError で返す。
func CompileTemplate(tool string, def VariantDef) (*Template, error) {
	if def.ID == "" {
		return nil, configErrorf(tool, "", "variant without id")
	}
	if len(def.Args) == 0 {
		return nil, configErrorf(tool, def.ID, "empty argument skeleton")
	}

	t := &Template{
		tool:   tool,
		def:    def,
		tokens: make([]token, 0, len(def.Args)),
		args:   make(map[string]*argSpec, len(def.Arguments)),
	}
	for _, a := range def.Arguments {
		if _, dup := t.args[a.Name]; dup {
			return nil, configErrorf(tool, def.ID, "duplicate argument %q", a.Name)
		}
		spec, err := compileArgument(a)
		if err != nil {
			return nil, configErrorf(tool, def.ID, "%v", err)
		}
		t.args[a.Name] = spec
	}

	used := make(map[string]bool, len(t.args))
	for _, s := range def.Args {
		tok, err := parseToken(s)
		if err != nil {
			return nil, configErrorf(tool, def.ID, "%v", err)
		}
		if !tok.isLiteral() {
			if _, ok := t.args[tok.Name]; !ok {
				return nil, configErrorf(tool, def.ID, "placeholder {%s} has no argument definition", tok.Name)
			}
			used[tok.Name] = true
		}
		t.tokens = append(t.tokens, tok)
	}
	for name := range t.args {
		if !used[name] {
			return nil, configErrorf(tool, def.ID, "argument %q is not used in args", name)
		}
	}
	return t, nil
}

// ID はバリアント ID を返す。
func (t *Template) ID() string { return t.def.ID }

// MatchVariant は args（base command と export 引数を除いたもの）が
// テンプレートの構造に一致するかを返す。
// リテラルは完全一致、プレースホルダー位置はその引数の検証を通ること。
func MatchVariant(t *Template, args []string) bool {
	if len(args) != len(t.tokens) {
		return false
	}
	for i, tok := range t.tokens {
		arg := args[i]
		if tok.isLiteral() {
			if arg != tok.Prefix {
				return false
			}
			continue
		}
		if len(arg) < len(tok.Prefix)+len(tok.Suffix) ||
			!strings.HasPrefix(arg, tok.Prefix) || !strings.HasSuffix(arg, tok.Suffix) {
			return false
		}
		inner := arg[len(tok.Prefix) : len(arg)-len(tok.Suffix)]
		if err := t.args[tok.Name].check(inner); err != nil {
			return false
		}
	}
	return true
}
