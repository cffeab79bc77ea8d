package schema

// ArgumentSummary はクライアント側のフォーム生成用の引数定義。
type ArgumentSummary struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Description string   `json:"description"`
	Placeholder string   `json:"placeholder"`
	Default     string   `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// VariantSummary は 1 つのコマンドテンプレートの公開ビュー。
type VariantSummary struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Args        []string          `json:"args"`
	Arguments   []ArgumentSummary `json:"arguments"`
}

// ToolSummary はツール一覧（ディスカバリ／UI 生成）用のビュー。
type ToolSummary struct {
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	BaseCommand  string           `json:"cmd"`
	VersionArg   string           `json:"version_arg,omitempty"`
	ExportFormat string           `json:"export_format"`
	ExportArgs   []string         `json:"export_arguments"`
	Variants     []VariantSummary `json:"variants"`
}

// Variant は id に一致するバリアントを返す。
func (t ToolSummary) Variant(id string) (VariantSummary, bool) {
	for _, v := range t.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return VariantSummary{}, false
}
