// Package textutil provides the text and vector primitives shared by the
// embedding providers and the similarity scorer.
//
// Tokenize and CharNGrams produce script-agnostic features: words for
// alphabetic scripts and overlapping character n-grams so that Han, Kana, and
// Hangul text, which has no word separators, still yields comparable terms.
// Dot and Normalize operate on dense float32 vectors.
package textutil
