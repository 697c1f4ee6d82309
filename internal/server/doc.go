// Package server is the clipmark backend: it identifies annotators with a
// signed cookie, assigns clip blocks, serves frame images, stores submitted
// annotations, and scores validation runs against ground truth.
//
// Routes are registered on an httprouter.Router. Every request gets a
// correlation id (echoed in X-Request-ID) and runs behind a panic guard that
// answers 500 with a JSON error body. Service errors are mapped to status
// codes through services.HTTPStatus.
//
// Only one server may use a data directory at a time; Start takes an
// exclusive flock on <data_dir>/clipmark.lock.
package server
