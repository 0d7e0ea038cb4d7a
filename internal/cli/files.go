package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// compressedExt marks request and response files stored as zstd streams.
const compressedExt = ".zst"

func isCompressed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), compressedExt)
}

// readInput reads a document from path, or from stdin when path is empty
// or "-". Paths ending in .zst are decompressed.
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !isCompressed(path) {
		return io.ReadAll(f)
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(bufio.NewReaderSize(dec, 256*1024))
	if err != nil {
		return nil, fmt.Errorf("zstd decode %s: %w", path, err)
	}
	return data, nil
}

// writeOutput writes data to path, creating parent directories. Paths
// ending in .zst are compressed. The file is replaced atomically.
func writeOutput(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := writeTo(f, path, data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeTo(w io.Writer, path string, data []byte) error {
	if !isCompressed(path) {
		_, err := w.Write(data)
		return err
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
