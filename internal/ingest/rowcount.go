package ingest

import (
	"bytes"
	"errors"
	"io"
	"os"
)

const countBufferSize = 64 * 1024

// CountRows returns the number of data rows in the file at path: the line
// count minus the header, floored at zero. The file is streamed, never loaded whole.
func CountRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	lines, err := countLines(f)
	if err != nil {
		return 0, &IOError{Op: "read", Path: path, Err: err}
	}

	return max(0, lines-1), nil
}

// countLines counts lines the way a line reader does: a final line without a
// trailing newline still counts.
func countLines(r io.Reader) (int, error) {
	buf := make([]byte, countBufferSize)

	lines := 0
	var last byte
	seen := false

	for {
		n, err := r.Read(buf)
		if n > 0 {
			lines += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
			seen = true
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
	}

	if seen && last != '\n' {
		lines++
	}
	return lines, nil
}
