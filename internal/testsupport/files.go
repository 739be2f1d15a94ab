package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTree creates the slash-separated relative paths under root with the
// given contents and returns root.
func WriteTree(t testing.TB, root string, files map[string]string) string {
	t.Helper()

	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return root
}

// WriteSized fills path with size bytes of a non-repeating-per-chunk pattern
// so copies that drop or reorder chunks change the checksum. A size <= 0
// writes a single byte.
func WriteSized(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	var written int64
	for written < size {
		n := min(int64(chunkSize), size-written)
		for i := range buf[:n] {
			buf[i] = byte((written + int64(i)) % 251)
		}
		if _, err := f.Write(buf[:n]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		written += n
	}
}
