package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_TagAndVector(t *testing.T) {
	idx, err := NewIndex("vecspace:idx:3").
		Prefix("vecspace:vec:").
		Tag("collection").
		VectorFlat("vec_3", 3, DistanceCosine).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idx.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(idx.Fields))
	}
	if idx.Fields[0].Type != IndexFieldTag || !idx.Fields[0].TagCaseSensitive {
		t.Errorf("field[0] = %+v, want case-sensitive TAG", idx.Fields[0])
	}
	f := idx.Fields[1]
	if f.VectorAlgo != VectorFlat || f.VectorDim != 3 || f.VectorDistance != DistanceCosine {
		t.Errorf("field[1] = %+v", f)
	}
}

func TestIndexBuilder_VectorHNSW(t *testing.T) {
	idx, err := NewIndex("hnsw-idx").
		Prefix("doc:").
		VectorHNSW("vec", 768, DistanceL2, 32, 400).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := idx.Fields[0]
	if f.VectorAlgo != VectorHNSW {
		t.Errorf("algo = %q, want HNSW", f.VectorAlgo)
	}
	if f.VectorM != 32 {
		t.Errorf("M = %d, want 32", f.VectorM)
	}
	if f.VectorEFConstruct != 400 {
		t.Errorf("EF = %d, want 400", f.VectorEFConstruct)
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		b    *IndexBuilder
	}{
		{"empty name", NewIndex("").Tag("t")},
		{"invalid name", NewIndex("bad name").Tag("t")},
		{"no fields", NewIndex("idx")},
		{"zero dim", NewIndex("idx").VectorFlat("v", 0, DistanceCosine)},
		{"duplicate", NewIndex("idx").Tag("t").Tag("t")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.b.Build(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx, err := NewIndex("idx").Prefix("p:").Tag("collection").VectorFlat("vec_4", 4, DistanceIP).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := idx.String()
	for _, want := range []string{"FT.CREATE idx ON HASH", "PREFIX 1 p:", "collection TAG", "vec_4 VECTOR FLAT DIM 4"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		in   string
		want DistanceMetric
	}{
		{"", DistanceCosine},
		{"cosine", DistanceCosine},
		{"euclidean", DistanceL2},
		{"dot_product", DistanceIP},
	}
	for _, tc := range tests {
		got, err := ParseDistance(tc.in)
		if err != nil {
			t.Fatalf("ParseDistance(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseDistance(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, err := ParseDistance("manhattan"); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestSimilarity(t *testing.T) {
	if got := DistanceCosine.Similarity(0.25); got != 0.75 {
		t.Errorf("cosine similarity = %v, want 0.75", got)
	}
	if got := DistanceL2.Similarity(2); got != -2 {
		t.Errorf("l2 similarity = %v, want -2", got)
	}
}

func TestVectorCodec(t *testing.T) {
	in := []float32{1.5, -2, 0}
	out, err := DecodeVector(EncodeVector(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
	if _, err := DecodeVector("abc"); err == nil {
		t.Error("expected error for truncated blob")
	}
}
