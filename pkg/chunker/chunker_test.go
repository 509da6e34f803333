package chunker

import (
	"bytes"
	"testing"
)

func TestSplitExactMultiple(t *testing.T) {
	input := bytes.Repeat([]byte{0xAB}, Size*2)

	chunks, err := Split(bytes.NewReader(input))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) != Size {
			t.Errorf("chunk %d: len = %d, want %d", i, len(c), Size)
		}
	}
}

func TestSplitShortTail(t *testing.T) {
	input := make([]byte, 5000)
	for i := range input {
		input[i] = byte(i)
	}

	chunks, err := Split(bytes.NewReader(input))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 2048 || len(chunks[1]) != 2048 || len(chunks[2]) != 904 {
		t.Fatalf("unexpected chunk sizes: %d, %d, %d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}

	var reassembled []byte
	for _, c := range chunks {
		reassembled = append(reassembled, c...)
	}
	if !bytes.Equal(reassembled, input) {
		t.Error("reassembled chunks do not match input")
	}
}

func TestSplitEmpty(t *testing.T) {
	chunks, err := Split(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected 0 chunks, got %d", len(chunks))
	}
}
