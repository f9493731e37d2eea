// assets/embed.go
//
// Embedded data shipped with the server binary:
//   - catalog.json: the default food catalog.
//   - sql/*.sql:    SQLite migrations applied at startup.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed catalog.json sql/*.sql
var FS embed.FS

// Catalog returns the raw bytes of the embedded default catalog.
func Catalog() ([]byte, error) {
	return FS.ReadFile("catalog.json")
}

// Migrations exposes the embedded sql directory rooted at "sql".
func Migrations() (fs.FS, error) {
	return fs.Sub(FS, "sql")
}
