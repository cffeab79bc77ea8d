// Package schema defines the JSON types exchanged between the core and its collaborators
// (job submission, agent execution, reporting and discovery).
package schema

// Action は検証済みのコマンド引数列を 1 つのツール・バリアントに束縛したもの。
// ジョブストアにそのまま永続化され、エージェントは Args を base command に続けて
// 逐語的に実行する（シェルを経由しない）。
//
//	{
//	  "tool_name":  "nmap",
//	  "variant_id": "tcp_connect_scan",
//	  "args":       ["-sT", "-p", "80,443", "192.168.1.171", "-oX", "-"]
//	}
type Action struct {
	ToolName  string   `json:"tool_name"`
	VariantID string   `json:"variant_id"`
	Args      []string `json:"args"`
}

// Argv は base command を先頭に付けた実行用の引数列を返す。
// 返すスライスは Action と領域を共有しない。
func (a Action) Argv(baseCommand string) []string {
	argv := make([]string, 0, len(a.Args)+1)
	argv = append(argv, baseCommand)
	return append(argv, a.Args...)
}

// Equal は 2 つの Action がバイト単位で同一かを返す。
// 永続化済み Action の再導出・監査に使う。
func (a Action) Equal(b Action) bool {
	if a.ToolName != b.ToolName || a.VariantID != b.VariantID || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if a.Args[i] != b.Args[i] {
			return false
		}
	}
	return true
}
