package tools

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration は起動時のツール定義の誤り（重複登録・不正なテンプレート）。
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation は呼び出し元の入力がテンプレートに合致しないこと。
	ErrValidation = errors.New("validation error")
	// ErrNotFound は未登録のツール名。
	ErrNotFound = errors.New("tool not found")
)

// ConfigurationError はツール定義の誤り。起動時に致命的として扱う。
type ConfigurationError struct {
	Tool    string
	Variant string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrConfiguration, e.scope()+e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func (e *ConfigurationError) scope() string {
	switch {
	case e.Tool != "" && e.Variant != "":
		return fmt.Sprintf("tool %q variant %q: ", e.Tool, e.Variant)
	case e.Tool != "":
		return fmt.Sprintf("tool %q: ", e.Tool)
	}
	return ""
}

// ValidationError は Build / Validate で入力が拒否されたことを表す。
// Action は組み立てられない。
type ValidationError struct {
	Tool     string
	Variant  string
	Argument string
	Reason   string
}

func (e *ValidationError) Error() string {
	msg := ErrValidation.Error() + ": "
	if e.Tool != "" {
		msg += e.Tool
		if e.Variant != "" {
			msg += "/" + e.Variant
		}
		msg += ": "
	}
	if e.Argument != "" {
		msg += fmt.Sprintf("argument %q: ", e.Argument)
	}
	return msg + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func configErrorf(tool, variant, format string, args ...any) error {
	return &ConfigurationError{Tool: tool, Variant: variant, Reason: fmt.Sprintf(format, args...)}
}

func validationErrorf(tool, variant, arg, format string, args ...any) error {
	return &ValidationError{Tool: tool, Variant: variant, Argument: arg, Reason: fmt.Sprintf(format, args...)}
}
