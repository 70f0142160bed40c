package cmd

import (
	"strings"

	"github.com/arbiterhq/arbiter/pkg/persistence"
	"github.com/arbiterhq/arbiter/pkg/persistence/file"
)

// NewPersistence creates the storage backend for a database URL. Only the
// file provider exists today; the URL scheme keeps the flag forward
// compatible.
func NewPersistence(databaseURL string) persistence.Persistence {
	root := strings.TrimPrefix(databaseURL, "file://")

	return file.NewPersistence(root)
}
