// Package iox provides small I/O helpers shared by the CLI and adapters.
package iox

import (
	"fmt"
	"io"
	"os"
)

// Stdin is the path that selects the fallback reader in ReadInput.
const Stdin = "-"

// DiscardClose closes c and discards the error. Use in defer statements
// where close errors are unactionable:
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c, for t.Cleanup:
//
//	t.Cleanup(iox.CloseFunc(adapter))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// ReadInput reads the whole file at path. An empty path or "-" reads
// fallback instead.
func ReadInput(path string, fallback io.Reader) ([]byte, error) {
	if path == "" || path == Stdin {
		data, err := io.ReadAll(fallback)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer DiscardClose(f)

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
