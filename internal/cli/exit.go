package cli

import "fmt"

// 終了コード
const (
	exitSuccess    = 0
	exitValidation = 1 // 入力がテンプレートに一致しない
	exitConfig     = 2 // 設定・ツール定義の誤り
	exitNotFound   = 3 // 未登録のツール・ファイルなし
	exitInputParse = 4 // 引数の形式エラー
)

// ExitError はプロセスの終了コードを運ぶエラー。
// RunE がこれを返すと main が Code で終了する。
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// exitError は書式付きメッセージの ExitError を作る。
func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
