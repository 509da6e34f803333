// Package chunker splits a byte stream into fixed-size MTU payload chunks.
package chunker

import (
	"fmt"
	"io"
)

// Size is the fixed chunk size in bytes. Only the final chunk may be
// shorter, and it is never empty.
const Size = 2048

// Split reads r to completion and returns its content as an ordered sequence
// of chunks of at most Size bytes. An empty input yields an empty, non-nil
// slice.
func Split(r io.Reader) ([][]byte, error) {
	chunks := make([][]byte, 0)

	for {
		buf := make([]byte, Size)
		n, err := io.ReadFull(r, buf)

		if n > 0 {
			chunks = append(chunks, buf[:n])
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return chunks, nil
		}
		if err != nil {
			return nil, fmt.Errorf("chunker: read failed: %w", err)
		}
	}
}
