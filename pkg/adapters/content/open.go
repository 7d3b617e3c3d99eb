// Package content selects the payload store backend.
package content

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/content/badgerstore"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/adapters/content/filestore"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/ports"
)

const (
	BackendFS     = "fs"
	BackendBadger = "badger"
)

// Open returns the content store named by backend, rooted at dir.
// The badger backend lives in dir/badger so both can share a data directory.
func Open(backend, dir string, logger *slog.Logger) (ports.ContentStore, error) {
	switch backend {
	case "", BackendFS:
		return filestore.New(dir)
	case BackendBadger:
		return badgerstore.Open(badgerstore.Options{
			Dir:        filepath.Join(dir, "badger"),
			SyncWrites: true,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown content backend %q", backend)
	}
}
