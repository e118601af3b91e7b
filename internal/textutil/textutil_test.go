package textutil

import (
	"math"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"I'm OK", []string{"ok"}},
		{"你好 世界", []string{"你好", "世界"}},
		{"猫", []string{"猫"}},
		{"  ", []string{}},
	}
	for _, tc := range tests {
		got := Tokenize(tc.input)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestCharNGrams(t *testing.T) {
	if got := CharNGrams("Ab-cd", 3); !reflect.DeepEqual(got, []string{"abc", "bcd"}) {
		t.Errorf("CharNGrams = %v", got)
	}
	if got := CharNGrams("你好", 3); !reflect.DeepEqual(got, []string{"你好"}) {
		t.Errorf("short text should yield itself, got %v", got)
	}
	if got := CharNGrams("...", 3); got != nil {
		t.Errorf("punctuation-only text should yield nil, got %v", got)
	}
}

func TestDotOfNormalizedVectorsIsCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2}, []float32{2, 4}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
	}
	for _, tc := range tests {
		a := append([]float32(nil), tc.a...)
		b := append([]float32(nil), tc.b...)
		Normalize(a)
		Normalize(b)
		if got := Dot(a, b); math.Abs(got-tc.want) > 1e-6 {
			t.Errorf("%s: Dot = %f, want %f", tc.name, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Fatalf("Normalize = %v", v)
	}
	zero := []float32{0, 0}
	Normalize(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Fatalf("zero vector changed: %v", zero)
	}
}
