package tools

import "github.com/0x6d61/agentscan/pkg/schema"

// 一次出力フォーマット。
const (
	FormatXML  = "xml"
	FormatJSON = "json"
	FormatText = "text"
)

// ToolDef はYAMLから読み込むツール定義。
// Goコードを書かずに tools/*.yaml を追加するだけで新ツールが使える。
type ToolDef struct {
	Name         string       `yaml:"name"`
	Binary       string       `yaml:"binary"`
	Description  string       `yaml:"description"`
	VersionArg   string       `yaml:"version_arg"`
	ExportFormat string       `yaml:"export_format"`
	ExportArgs   []string     `yaml:"export_args"`
	Parser       string       `yaml:"parser"` // 結果パーサー名（省略時は name）
	Variants     []VariantDef `yaml:"variants"`
}

// VariantDef は 1 つのコマンドテンプレート。
//
// args はトークン列で、各トークンは以下のいずれか:
//   - リテラル          : "-sT"
//   - プレースホルダー  : "{target}"
//   - 埋め込み          : "duration:{duration}"
type VariantDef struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Args        []string      `yaml:"args"`
	Arguments   []ArgumentDef `yaml:"arguments"`
}

// ArgumentDef はプレースホルダー 1 つ分の定義と検証ルール。
type ArgumentDef struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"` // string | number | boolean
	Required    bool     `yaml:"required"`
	Description string   `yaml:"description"`
	Placeholder string   `yaml:"placeholder"`
	Default     string   `yaml:"default"`
	Validator   string   `yaml:"validator"` // 名前付きバリデータ（validator.go）
	Pattern     string   `yaml:"pattern"`
	Min         *float64 `yaml:"min"`
	Max         *float64 `yaml:"max"`
	Enum        []string `yaml:"enum"`
	AllowSpaces bool     `yaml:"allow_spaces"`
}

// ParserName は結果パーサー名を返す。
func (d *ToolDef) ParserName() string {
	if d.Parser != "" {
		return d.Parser
	}
	return d.Name
}

// Summary はディスカバリ用のビューに変換する。スライスは複製する。
func (d *ToolDef) Summary() schema.ToolSummary {
	s := schema.ToolSummary{
		Name:         d.Name,
		Description:  d.Description,
		BaseCommand:  d.Binary,
		VersionArg:   d.VersionArg,
		ExportFormat: d.ExportFormat,
		ExportArgs:   append([]string{}, d.ExportArgs...),
		Variants:     make([]schema.VariantSummary, 0, len(d.Variants)),
	}
	for _, v := range d.Variants {
		vs := schema.VariantSummary{
			ID:          v.ID,
			Name:        v.Name,
			Description: v.Description,
			Args:        append([]string{}, v.Args...),
			Arguments:   make([]schema.ArgumentSummary, 0, len(v.Arguments)),
		}
		for _, a := range v.Arguments {
			vs.Arguments = append(vs.Arguments, schema.ArgumentSummary{
				Name:        a.Name,
				Type:        a.typeName(),
				Required:    a.Required,
				Description: a.Description,
				Placeholder: a.Placeholder,
				Default:     a.Default,
				Enum:        append([]string(nil), a.Enum...),
			})
		}
		s.Variants = append(s.Variants, vs)
	}
	return s
}

func (a ArgumentDef) typeName() string {
	if a.Type == "" {
		return "string"
	}
	return a.Type
}
