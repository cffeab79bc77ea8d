package tools

import (
	"slices"
	"strings"
	"unicode"

	"github.com/0x6d61/agentscan/internal/parser"
	"github.com/0x6d61/agentscan/pkg/schema"
)

// Tool は 1 ツール分の検証・組み立て・パースの窓口。
// Registry はツール名 → Tool のフラットな表で振り分ける。
type Tool interface {
	Name() string
	// Describe はディスカバリ用のビューを返す。
	Describe() schema.ToolSummary
	// Validate は base command と export 引数を任意で含む args が
	// 登録済みテンプレートのいずれかに構造的に一致するかを返す。
	Validate(args []string) bool
	// Build は export 引数を含まない引数列を組み立てる。
	Build(variantID string, named map[string]any) ([]string, error)
	// Parse は生出力を正規形に変換する。panic もエラーも返さない。
	Parse(raw, commandUsed string, agentID *string) schema.ParseResult
}

// TemplateTool は ToolDef のテンプレート群で動く Tool 実装。
type TemplateTool struct {
	def       ToolDef
	templates []*Template
	byID      map[string]*Template
	parser    parser.Parser
	blacklist *Blacklist
}

// NewTemplateTool は def を検査して TemplateTool を作る。
// bl は nil でもよい（拒否パターンなし）。
func NewTemplateTool(def ToolDef, p parser.Parser, bl *Blacklist) (*TemplateTool, error) {
	if def.Name == "" {
		return nil, configErrorf("", "", "tool definition missing 'name' field")
	}
	if strings.ContainsFunc(def.Name, unicode.IsSpace) {
		return nil, configErrorf(def.Name, "", "name must not contain whitespace")
	}
	if def.Binary == "" {
		return nil, configErrorf(def.Name, "", "tool definition missing 'binary' field")
	}
	switch def.ExportFormat {
	case FormatXML, FormatJSON, FormatText:
	default:
		return nil, configErrorf(def.Name, "", "unknown export_format %q", def.ExportFormat)
	}
	for _, a := range def.ExportArgs {
		if strings.ContainsAny(a, "{}") {
			return nil, configErrorf(def.Name, "", "export_args must be literal, got %q", a)
		}
	}
	if len(def.Variants) == 0 {
		return nil, configErrorf(def.Name, "", "no variants")
	}
	if p == nil {
		return nil, configErrorf(def.Name, "", "no result parser")
	}

	t := &TemplateTool{
		def:       def,
		byID:      make(map[string]*Template, len(def.Variants)),
		parser:    p,
		blacklist: bl,
	}
	for _, v := range def.Variants {
		if _, dup := t.byID[v.ID]; dup {
			return nil, configErrorf(def.Name, v.ID, "duplicate variant id")
		}
		tmpl, err := CompileTemplate(def.Name, v)
		if err != nil {
			return nil, err
		}
		t.templates = append(t.templates, tmpl)
		t.byID[v.ID] = tmpl
	}
	return t, nil
}

func (t *TemplateTool) Name() string { return t.def.Name }

func (t *TemplateTool) Describe() schema.ToolSummary { return t.def.Summary() }

func (t *TemplateTool) Validate(args []string) bool {
	if len(args) == 0 {
		return false
	}
	if args[0] == t.def.Binary {
		args = args[1:]
	}

	candidates := [][]string{args}
	if n := len(t.def.ExportArgs); n > 0 && len(args) >= n && slices.Equal(args[len(args)-n:], t.def.ExportArgs) {
		candidates = append(candidates, args[:len(args)-n])
	}
	for _, c := range candidates {
		for _, tmpl := range t.templates {
			if MatchVariant(tmpl, c) && !t.denied(c) {
				return true
			}
		}
	}
	return false
}

func (t *TemplateTool) Build(variantID string, named map[string]any) ([]string, error) {
	tmpl, ok := t.byID[variantID]
	if !ok {
		return nil, validationErrorf(t.def.Name, variantID, "", "unknown variant")
	}
	args, err := BuildArgs(tmpl, named)
	if err != nil {
		return nil, err
	}
	if t.denied(args) {
		return nil, validationErrorf(t.def.Name, variantID, "", "command matches deny list")
	}
	return args, nil
}

func (t *TemplateTool) Parse(raw, commandUsed string, agentID *string) schema.ParseResult {
	return t.parser.Parse(raw, commandUsed, agentID)
}

// ExportArgs は出力を構造化形式に固定する末尾引数を返す。
func (t *TemplateTool) ExportArgs() []string {
	return slices.Clone(t.def.ExportArgs)
}

// denied は base command 付きのコマンド文字列を拒否パターンと照合する。
func (t *TemplateTool) denied(args []string) bool {
	return t.blacklist.Match(t.def.Binary + " " + strings.Join(args, " "))
}
