// Package logging assembles the structured slog loggers used by the clipmark
// server and CLI.
//
// It owns the console and JSON handlers, level parsing, and the optional JSON
// copy written to the log directory. Context helpers stamp request ids,
// annotator ids, and clip folders onto log lines so server handlers and the
// annotation session emit records with the same shape. A no-op logger is
// provided for tests and for wiring code that cannot fail.
package logging
