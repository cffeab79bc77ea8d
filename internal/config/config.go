package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// EnvPrefix は設定を上書きする環境変数の接頭辞。
const EnvPrefix = "AGENTSCAN_"

// LogConfig はログ出力の設定
type LogConfig struct {
	Level string `yaml:"level"` // trace | debug | info | warn | error
	JSON  bool   `yaml:"json"`
}

// AppConfig は config/config.yaml の統合設定構造
type AppConfig struct {
	// ToolsDir は組み込みカタログに追加するツール定義 YAML のディレクトリ
	ToolsDir  string    `yaml:"tools_dir"`
	Blacklist []string  `yaml:"blacklist"`
	Log       LogConfig `yaml:"log"`
}

// applyDefaults はゼロ値のフィールドにデフォルト値を適用する
func (c *AppConfig) applyDefaults() {
	if c.ToolsDir == "" {
		c.ToolsDir = "tools"
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
}

// Load は config/config.yaml を読み込む。
// カレントディレクトリに .env があれば先に読み込み、${VAR} 環境変数を展開する。
// ファイルが存在しない場合はデフォルトの AppConfig を返す。
// blacklist キーがなければ呼び出し側のデフォルトパターンを使う（nil のまま返す）。
func Load(path string) (*AppConfig, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &AppConfig{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	// 環境変数を展開（tools_dir の ${VAR}）
	cfg.ToolsDir = expandEnvString(cfg.ToolsDir)

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// デフォルト値の適用
	cfg.applyDefaults()

	return cfg, nil
}

// loadDotEnv は .env を読み込む。既存の環境変数は上書きしない。
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	return nil
}

// applyEnv は AGENTSCAN_* 環境変数でファイルの値を上書きする。
func (c *AppConfig) applyEnv() error {
	if v, ok := os.LookupEnv(EnvPrefix + "TOOLS_DIR"); ok {
		c.ToolsDir = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_JSON"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %sLOG_JSON: %w", EnvPrefix, err)
		}
		c.Log.JSON = b
	}
	return nil
}

// expandEnvString は文字列内の ${VAR} をホスト環境変数で展開する
func expandEnvString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}
