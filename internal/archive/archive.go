// Package archive stores simulation artifacts (event logs and result
// tables) outside the process. All writes happen at pipeline boundaries.
package archive

import "context"

// Storage is the backend interface for artifact storage.
type Storage interface {
	// Write stores data at the given path, replacing any prior object.
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path.
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths under the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the object at the given path.
	Delete(ctx context.Context, path string) error

	// Exists checks whether an object exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)
}
