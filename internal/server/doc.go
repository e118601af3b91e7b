// Package server exposes the alignment engine over HTTP.
//
// Routes are served by chi. POST /api/align parses two SRT documents and
// returns per-pair confidence records; POST /api/generate-srt renders
// reviewed records into a bilingual SRT; POST /api/learn queues reviewer
// feedback without waiting on storage. An optional bearer token guards the
// /api routes and /api/align is rate limited per client address.
package server
