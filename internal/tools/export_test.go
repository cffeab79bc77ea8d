package tools

// CoerceValueForTest は coerceValue をテストから呼べるようにエクスポートする。
func CoerceValueForTest(v any) (string, error) {
	return coerceValue(v)
}

// CheckArgumentForTest は ArgumentDef をコンパイルして value を検査する。
// 定義自体が不正ならそのエラーを返す。
func CheckArgumentForTest(def ArgumentDef, value string) error {
	spec, err := compileArgument(def)
	if err != nil {
		return err
	}
	return spec.check(value)
}
