package tools

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// ValueValidator はプレースホルダー値 1 つを検査する。nil を返せば合格。
type ValueValidator func(value string) error

var (
	targetRe    = regexp.MustCompile(`^[\w.\-/:]+$`)
	interfaceRe = regexp.MustCompile(`^[\w\-.]+$`)
	tuningRe    = regexp.MustCompile(`^[0-9abcx]+$`)
)

// namedValidators は YAML の validator: で参照できるツール固有の検証器。
var namedValidators = map[string]ValueValidator{
	"target":       validateTarget,
	"ports":        validatePorts,
	"fuzz_url":     validateFuzzURL,
	"status_codes": validateStatusCodes,
	"positive_int": validatePositiveInt,
	"interface":    validateInterface,
	"path":         validatePath,
	"nikto_tuning": validateTuning,
	"host_url":     validateHostURL,
}

// LookupValidator は名前付きバリデータを返す。
func LookupValidator(name string) (ValueValidator, bool) {
	v, ok := namedValidators[name]
	return v, ok
}

// validateTarget はホスト名・IP・CIDR の形をしているかを見る。
func validateTarget(v string) error {
	if !targetRe.MatchString(v) {
		return errors.New("must be a hostname, IP address or CIDR range")
	}
	return nil
}

// validatePorts は "80", "1000-2000", "80,443,1000-2000" 形式を受け付ける。
func validatePorts(v string) error {
	for _, part := range strings.Split(v, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := parsePort(lo)
		if err != nil {
			return err
		}
		if !isRange {
			continue
		}
		end, err := parsePort(hi)
		if err != nil {
			return err
		}
		if start > end {
			return fmt.Errorf("port range %q is descending", part)
		}
	}
	return nil
}

func parsePort(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("%q is not a port number (1-65535)", s)
	}
	return n, nil
}

// validateFuzzURL は FUZZ キーワードを含む http(s) URL を受け付ける。
func validateFuzzURL(v string) error {
	if !strings.Contains(v, "FUZZ") {
		return errors.New("must contain the FUZZ keyword")
	}
	// ホスト部分の FUZZ（vhost 探索）もパースできるよう置換して検査
	u, err := url.Parse(strings.ReplaceAll(v, "FUZZ", "fuzz"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

// validateStatusCodes は "200,301,302" 形式の HTTP ステータス列を受け付ける。
func validateStatusCodes(v string) error {
	for _, c := range strings.Split(v, ",") {
		n, err := strconv.Atoi(c)
		if err != nil || n < 100 || n > 599 {
			return fmt.Errorf("%q is not an HTTP status code", c)
		}
	}
	return nil
}

func validatePositiveInt(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return errors.New("must be a positive integer")
	}
	return nil
}

func validateInterface(v string) error {
	if !interfaceRe.MatchString(v) {
		return errors.New("must be a network interface name")
	}
	return nil
}

// validatePath はパストラバーサルを含まないファイルパスを受け付ける。
func validatePath(v string) error {
	for _, seg := range strings.Split(v, "/") {
		if seg == ".." {
			return errors.New("must not contain '..' segments")
		}
	}
	return nil
}

// validateTuning は nikto の -Tuning コード（0-9, a, b, c, x）を受け付ける。
func validateTuning(v string) error {
	if !tuningRe.MatchString(v) {
		return errors.New("must be nikto tuning codes (0-9, a, b, c, x)")
	}
	return nil
}

// validateHostURL はホスト名・IP または http(s) URL を受け付ける。
func validateHostURL(v string) error {
	if strings.Contains(v, "://") {
		u, err := url.Parse(v)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("must be an http(s) URL")
		}
		return nil
	}
	return validateTarget(v)
}

// argSpec はコンパイル済みの ArgumentDef。
type argSpec struct {
	def     ArgumentDef
	pattern *regexp.Regexp
	named   ValueValidator
}

// compileArgument は ArgumentDef の整合性を確かめて argSpec を作る。
// ここでのエラーは定義側の誤り（ConfigurationError の原因）。
func compileArgument(def ArgumentDef) (*argSpec, error) {
	if def.Name == "" {
		return nil, errors.New("argument without name")
	}
	switch def.Type {
	case "", "string", "number", "boolean":
	default:
		return nil, fmt.Errorf("argument %q: unknown type %q", def.Name, def.Type)
	}

	spec := &argSpec{def: def}
	if def.Validator != "" {
		v, ok := LookupValidator(def.Validator)
		if !ok {
			return nil, fmt.Errorf("argument %q: unknown validator %q", def.Name, def.Validator)
		}
		spec.named = v
	}
	if def.Pattern != "" {
		re, err := regexp.Compile(`^(?:` + def.Pattern + `)$`)
		if err != nil {
			return nil, fmt.Errorf("argument %q: invalid pattern: %w", def.Name, err)
		}
		spec.pattern = re
	}
	if def.Min != nil && def.Max != nil && *def.Min > *def.Max {
		return nil, fmt.Errorf("argument %q: min > max", def.Name)
	}

	if !def.Required {
		if def.Default == "" {
			return nil, fmt.Errorf("argument %q: optional argument needs a default", def.Name)
		}
		if err := spec.check(def.Default); err != nil {
			return nil, fmt.Errorf("argument %q: default %q is invalid: %w", def.Name, def.Default, err)
		}
	}
	return spec, nil
}

// check は値 1 つに全ルールを適用する。
func (a *argSpec) check(value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("must not be empty")
	}
	if strings.ContainsFunc(value, unicode.IsControl) {
		return errors.New("must not contain control characters")
	}
	// 値がオプションとして解釈されるのを防ぐ
	if strings.HasPrefix(value, "-") {
		return errors.New("must not start with '-'")
	}
	if !a.def.AllowSpaces && strings.ContainsFunc(value, unicode.IsSpace) {
		return errors.New("must not contain whitespace")
	}

	switch a.def.Type {
	case "number":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return errors.New("must be a number")
		}
	case "boolean":
		if value != "true" && value != "false" {
			return errors.New("must be true or false")
		}
	}
	if a.def.Min != nil || a.def.Max != nil {
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return errors.New("must be a number")
		}
		if a.def.Min != nil && n < *a.def.Min {
			return fmt.Errorf("must be >= %v", *a.def.Min)
		}
		if a.def.Max != nil && n > *a.def.Max {
			return fmt.Errorf("must be <= %v", *a.def.Max)
		}
	}
	if len(a.def.Enum) > 0 && !slices.Contains(a.def.Enum, value) {
		return fmt.Errorf("must be one of %s", strings.Join(a.def.Enum, ", "))
	}
	if a.pattern != nil && !a.pattern.MatchString(value) {
		return fmt.Errorf("must match %s", a.def.Pattern)
	}
	if a.named != nil {
		return a.named(value)
	}
	return nil
}
