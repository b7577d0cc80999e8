package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_SchemeVectors(t *testing.T) {
	idx, err := NewIndex("schemes-idx").
		Prefix("sf:vec:").
		Tag("status").
		VectorHNSW("vector", 1536, DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.StorageType != StorageHash {
		t.Errorf("storage = %q, want HASH", idx.StorageType)
	}
	if len(idx.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(idx.Fields))
	}
	f := idx.Fields[1]
	if f.VectorAlgo != VectorHNSW || f.VectorDim != 1536 || f.VectorM != 16 {
		t.Errorf("vector field = %+v", f)
	}
}

func TestIndexBuilder_VectorFlat(t *testing.T) {
	idx, err := NewIndex("flat").VectorFlat("v", 4, DistanceL2).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Fields[0].VectorAlgo != VectorFlat || idx.Fields[0].VectorDistance != DistanceL2 {
		t.Errorf("field = %+v", idx.Fields[0])
	}
}

func TestIndexBuilder_Invalid(t *testing.T) {
	tests := []struct {
		name string
		b    *IndexBuilder
	}{
		{"empty name", NewIndex("").Tag("a")},
		{"bad name", NewIndex("a b").Tag("a")},
		{"no fields", NewIndex("idx")},
		{"duplicate field", NewIndex("idx").Tag("a").Tag("a")},
		{"zero dim", NewIndex("idx").VectorFlat("v", 0, DistanceCosine)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.b.Build(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx, err := NewIndex("idx").Prefix("p:").Tag("status").VectorFlat("vector", 3, DistanceCosine).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := idx.String()
	want := "FT.CREATE idx ON HASH PREFIX p: SCHEMA status TAG vector VECTOR FLAT"
	if s != want {
		t.Errorf("String() = %q, want %q", s, want)
	}
	if !strings.HasPrefix(s, "FT.CREATE") {
		t.Error("expected FT.CREATE prefix")
	}
}

func TestParseDistanceMetric(t *testing.T) {
	if m, err := ParseDistanceMetric(""); err != nil || m != DistanceCosine {
		t.Errorf("empty: got %q, %v", m, err)
	}
	if m, err := ParseDistanceMetric("L2"); err != nil || m != DistanceL2 {
		t.Errorf("L2: got %q, %v", m, err)
	}
	if _, err := ParseDistanceMetric("manhattan"); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestIsValidIdentifier(t *testing.T) {
	for _, s := range []string{"a", "sf:vec", "idx_1-x"} {
		if !IsValidIdentifier(s) {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []string{"", "a b", "a/b", "a.b"} {
		if IsValidIdentifier(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}
