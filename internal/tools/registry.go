package tools

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"github.com/0x6d61/agentscan/internal/parser"
	"github.com/0x6d61/agentscan/pkg/schema"
)

// Registry はツール名 → Tool の表。
// 起動時に Register / Load* で組み立て、Seal 後は読み取り専用になる。
// Seal 後の全メソッドはロックなしで並行に呼び出せる。
type Registry struct {
	tools     map[string]Tool
	sealed    bool
	logger    hclog.Logger
	blacklist *Blacklist
}

// Option は Registry の設定。
type Option func(*Registry)

// WithLogger はロード処理とパーサーのデグレード記録に使うロガーを設定する。
func WithLogger(l hclog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithBlacklist は YAML から作る TemplateTool に適用する拒否パターンを設定する。
func WithBlacklist(bl *Blacklist) Option {
	return func(r *Registry) { r.blacklist = bl }
}

// NewRegistry は空の Registry を返す。
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:  make(map[string]Tool),
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDefault は組み込みカタログ（nmap, ffuf, tshark, nikto）を登録して Seal した Registry を返す。
func NewDefault(opts ...Option) (*Registry, error) {
	r := NewRegistry(opts...)
	if err := r.LoadBuiltin(); err != nil {
		return nil, err
	}
	r.Seal()
	return r, nil
}

// Register は tool を登録する。名前の重複と Seal 後の登録は ConfigurationError。
func (r *Registry) Register(t Tool) error {
	if r.sealed {
		return configErrorf(t.Name(), "", "registry is sealed")
	}
	if _, dup := r.tools[t.Name()]; dup {
		return configErrorf(t.Name(), "", "duplicate tool registration")
	}
	r.tools[t.Name()] = t
	r.logger.Debug("tool registered", "tool", t.Name())
	return nil
}

// Seal 以降 Register は失敗する。
func (r *Registry) Seal() { r.sealed = true }

// LoadBuiltin は組み込みカタログをロードする。
func (r *Registry) LoadBuiltin() error {
	return r.LoadFS(catalogFS, catalogDir)
}

// LoadDir は dir 以下の *.yaml ファイルをロードして登録する。
// ディレクトリが存在しなければ何もしない。
func (r *Registry) LoadDir(dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		r.logger.Debug("tools dir not found, skipping", "dir", dir)
		return nil
	}
	return r.LoadFS(os.DirFS(dir), ".")
}

// LoadFS は fsys の dir 以下の *.yaml を名前順にロードして登録する。
func (r *Registry) LoadFS(fsys fs.FS, dir string) error {
	return fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".yaml") {
			return nil
		}
		if loadErr := r.loadFile(fsys, p); loadErr != nil {
			return fmt.Errorf("load %s: %w", p, loadErr)
		}
		return nil
	})
}

func (r *Registry) loadFile(fsys fs.FS, p string) error {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return err
	}
	var def ToolDef
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return configErrorf(strings.TrimSuffix(path.Base(p), ".yaml"), "", "parse yaml: %v", err)
	}
	return r.RegisterDef(def)
}

// RegisterDef は ToolDef からパーサーを解決して TemplateTool を登録する。
func (r *Registry) RegisterDef(def ToolDef) error {
	p, ok := parser.Lookup(def.ParserName(), def.Name, parser.WithLogger(r.logger))
	if !ok {
		return configErrorf(def.Name, "", "unknown parser %q (available: %s)",
			def.ParserName(), strings.Join(parser.Names(), ", "))
	}
	t, err := NewTemplateTool(def, p, r.blacklist)
	if err != nil {
		return err
	}
	return r.Register(t)
}

// Get はツールを返す。
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names は登録済みツール名を昇順で返す。
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// List はツール一覧を名前順に遅延生成する。
func (r *Registry) List() iter.Seq[schema.ToolSummary] {
	return func(yield func(schema.ToolSummary) bool) {
		for _, name := range r.Names() {
			if !yield(r.tools[name].Describe()) {
				return
			}
		}
	}
}

// ValidateCommand は args が name のテンプレートのいずれかに一致するかを返す。
// 未登録のツールは ErrNotFound。
func (r *Registry) ValidateCommand(name string, args []string) (bool, error) {
	t, ok := r.tools[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return t.Validate(args), nil
}

// BuildCommand は引数列を組み立て、構造化出力を強制する export 引数を末尾に付ける。
// 未登録のツール・バリアントは ValidationError。
func (r *Registry) BuildCommand(name, variantID string, named map[string]any) ([]string, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, validationErrorf(name, variantID, "", "unknown tool")
	}
	args, err := t.Build(variantID, named)
	if err != nil {
		return nil, err
	}
	return append(args, t.Describe().ExportArgs...), nil
}

// BuildAction は BuildCommand の結果を Action にまとめる。
func (r *Registry) BuildAction(name, variantID string, named map[string]any) (schema.Action, error) {
	args, err := r.BuildCommand(name, variantID, named)
	if err != nil {
		return schema.Action{}, err
	}
	return schema.Action{ToolName: name, VariantID: variantID, Args: args}, nil
}

// Parse は name の結果パーサーに振り分ける。未登録のツールは ErrNotFound。
// パーサー内部の障害は呼び出し元に伝播させず、空の結果に変換する。
func (r *Registry) Parse(name, raw, commandUsed string, agentID *string) (res schema.ParseResult, err error) {
	t, ok := r.tools[name]
	if !ok {
		return schema.ParseResult{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("parser fault recovered", "tool", name, "panic", fmt.Sprint(p))
			res = schema.ParseResult{
				Findings: []schema.Finding{},
				Statistics: schema.Statistics{
					"total_findings": 0,
					"severity":       schema.CountBySeverity(nil),
					"degraded":       1,
				},
			}
		}
	}()
	res = t.Parse(raw, commandUsed, agentID)
	if res.Findings == nil {
		res.Findings = []schema.Finding{}
	}
	if res.Statistics == nil {
		res.Statistics = schema.Statistics{}
	}
	return res, nil
}
