package importer

import (
	"fmt"
	"io"
	"os"
)

// Accessor grants scoped read access to a statement file. The caller must
// Close the returned handle, which also releases the access grant.
type Accessor interface {
	Acquire(path string) (io.ReadCloser, error)
}

// LocalAccessor opens files from the local filesystem.
type LocalAccessor struct{}

// Acquire opens path for reading.
func (LocalAccessor) Acquire(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}
