// Package embedding maps cue text to fixed-dimension vectors.
//
// Provider is the boundary the alignment engine consumes. Three providers are
// available: an OpenAI-compatible HTTP client, a local ONNX sentence encoder,
// and an offline lexical hasher. RedisCache decorates any provider with a
// shared text-to-vector cache, and Build resolves the unique texts of a single
// request into a request-scoped Set so each distinct string is embedded once.
//
// Every provider failure surfaces wrapped in services.ErrEmbeddingUnavailable.
package embedding
