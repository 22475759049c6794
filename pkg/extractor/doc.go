// Package extractor wraps the yt-dlp binary.
//
// yt-dlp is run once per URL with line-buffered progress output and a
// --print template that emits the final file's metadata as a single JSON
// line, so no second metadata pass is needed.
package extractor
