package bridge

import (
	"bytes"
	"testing"
)

func TestRing_Empty(t *testing.T) {
	r := NewRing(8)
	if r.Len() != 0 {
		t.Errorf("Expected empty ring, got len %d", r.Len())
	}
	if len(r.Bytes()) != 0 {
		t.Errorf("Expected no bytes, got %q", r.Bytes())
	}
}

func TestRing_WriteBelowCapacity(t *testing.T) {
	r := NewRing(8)
	if _, err := r.Write([]byte("abc")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := r.Bytes(); !bytes.Equal(got, []byte("abc")) {
		t.Errorf("Expected abc, got %q", got)
	}
	if r.Len() != 3 {
		t.Errorf("Expected len 3, got %d", r.Len())
	}
}

func TestRing_OverwritesOldestWhenFull(t *testing.T) {
	r := NewRing(4)
	r.Write([]byte("abcd"))
	r.Write([]byte("ef"))

	if got := r.Bytes(); !bytes.Equal(got, []byte("cdef")) {
		t.Errorf("Expected cdef, got %q", got)
	}
	if r.Len() != 4 {
		t.Errorf("Expected len 4, got %d", r.Len())
	}
}

func TestRing_ExactCapacity(t *testing.T) {
	r := NewRing(4)
	r.Write([]byte("abcd"))

	if got := r.Bytes(); !bytes.Equal(got, []byte("abcd")) {
		t.Errorf("Expected abcd, got %q", got)
	}
}

func TestRing_LargeWriteKeepsTail(t *testing.T) {
	r := NewRing(4)
	r.Write([]byte("abcdefghij"))

	if got := r.Bytes(); !bytes.Equal(got, []byte("ghij")) {
		t.Errorf("Expected ghij, got %q", got)
	}
}

func TestRing_DefaultSize(t *testing.T) {
	r := NewRing(0)
	if cap(r.buf) != 64*1024 {
		t.Errorf("Expected 64KB default, got %d", cap(r.buf))
	}
}
