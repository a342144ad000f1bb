// Package textutil provides small text helpers shared by the chapter parser,
// the download tool wrapper, and report rendering.
//
// The primary use cases are:
//   - Cleaning chapter titles (separator trimming, NFC normalization)
//   - Sanitizing filenames derived from remote titles
//   - Truncating tool diagnostics for one-line reports
package textutil
