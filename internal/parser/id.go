package parser

import "github.com/google/uuid"

// findingNamespace は Finding ID 導出用の UUIDv5 名前空間。
var findingNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/0x6d61/agentscan/finding"))

// FindingID はツール名と内容キーから決定的な ID を導出する。
// 同じソースを何度パースしても同じ発見物には同じ ID が付く。
func FindingID(tool, key string) string {
	return uuid.NewSHA1(findingNamespace, []byte(tool+"\x00"+key)).String()
}
