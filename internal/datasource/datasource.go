// Package datasource defines the retrieval boundary of the pipeline: a
// Source yields the raw bytes of one source file. The core never performs
// network or filesystem access itself; it is handed an Opener that resolves a
// source file name to a Source.
package datasource

import (
	"context"
	"io"
)

// Source supplies the raw bytes of one source file.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Opener resolves a source file name (as listed in the schema map) to a
// Source. Implementations typically join the name onto a base URL or a local
// directory.
type Opener interface {
	Source(file string) Source
}
