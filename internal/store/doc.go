// Package store persists submitted annotations in SQLite.
//
// The database lives at <data_dir>/annotations.db and is opened in WAL mode so
// the server can read assignment counts while submissions are written. The
// schema is embedded and versioned through a schema_version table; a version
// mismatch is reported instead of migrated. Writes retry briefly on
// SQLITE_BUSY.
package store
