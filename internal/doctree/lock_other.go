//go:build !unix

package doctree

// lockFile is a no-op where flock is unavailable; the in-process mutex of
// Manager still serializes writers of a single server.
func lockFile(string) (func() error, error) {
	return func() error { return nil }, nil
}
