// Package progress carries per-download events from the worker pool to
// browsers.
//
// A Hub holds one topic per download. Workers Publish queued, progress,
// complete and error events; HTTP handlers hand a subscriber stream to
// ServeSSE, which writes them as server-sent events:
//
//	event: progress
//	data: {"type":"progress","download_id":"…","percent":42}
package progress
