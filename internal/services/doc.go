// Package services defines the small shared vocabulary used by the clipmark
// server, gateway client, and annotation session.
//
// Key responsibilities:
//   - Context helpers that stamp request ids, annotator ids, and clip folders
//     for logging.
//   - Structured error markers plus the Wrap helper, and the mapping from those
//     markers to HTTP status codes used by the backend handlers.
package services
