package tools

import (
	"embed"
	"io/fs"
)

const catalogDir = "catalog"

//go:embed catalog/*.yaml
var catalogFS embed.FS

// CatalogFS は組み込みツール定義を返す。catalog/ の接頭辞は取り除く。
func CatalogFS() (fs.FS, error) {
	return fs.Sub(catalogFS, catalogDir)
}
