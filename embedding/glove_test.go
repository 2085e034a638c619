package embedding

import (
	"strings"
	"testing"
)

func TestLoadGloVe(t *testing.T) {
	in := strings.NewReader("the 0.1 0.2 0.3\n\nstocks -1.5 0 2.25\n")
	s, err := LoadGloVe(in)
	if err != nil {
		t.Fatalf("LoadGloVe: %v", err)
	}
	if s.Dimensions() != 3 {
		t.Fatalf("Dimensions = %d, want 3", s.Dimensions())
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	v, ok := s.Lookup("stocks")
	if !ok {
		t.Fatalf("expected hit for stocks")
	}
	if v[0] != -1.5 || v[1] != 0 || v[2] != 2.25 {
		t.Fatalf("got %v", v)
	}
}

func TestLoadGloVe_Word2VecHeader(t *testing.T) {
	in := strings.NewReader("2 3\na 1 2 3\nb 4 5 6\n")
	s, err := LoadGloVe(in)
	if err != nil {
		t.Fatalf("LoadGloVe: %v", err)
	}
	if s.Len() != 2 || s.Dimensions() != 3 {
		t.Fatalf("Len=%d Dimensions=%d", s.Len(), s.Dimensions())
	}
}

func TestLoadGloVe_DimensionMismatch(t *testing.T) {
	in := strings.NewReader("a 1 2 3\nb 4 5\n")
	if _, err := LoadGloVe(in); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestLoadGloVe_BadComponent(t *testing.T) {
	in := strings.NewReader("a 1 two 3\n")
	if _, err := LoadGloVe(in); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadGloVe_Empty(t *testing.T) {
	if _, err := LoadGloVe(strings.NewReader("")); err == nil {
		t.Fatalf("expected error for empty table")
	}
	if _, err := LoadGloVe(strings.NewReader("\n\n")); err == nil {
		t.Fatalf("expected error for blank table")
	}
}

func TestLoadGloVe_DuplicateKeepsLast(t *testing.T) {
	in := strings.NewReader("a 1 1\na 2 2\n")
	s, err := LoadGloVe(in)
	if err != nil {
		t.Fatalf("LoadGloVe: %v", err)
	}
	v, _ := s.Lookup("a")
	if v[0] != 2 {
		t.Fatalf("got %v, want last vector", v)
	}
}
