// Package services defines shared utilities consumed by the chapter pipeline
// and the external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp batch run IDs, item names, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper so batch reports, history
//     rows, and CLI exit paths classify failures the same way.
//
// Use these helpers when wiring new pipeline steps so error handling and
// observability stay uniform.
package services
