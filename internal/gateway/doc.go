// Package gateway defines the request/response contract between the
// annotation surface and the clipmark backend, plus an HTTP/JSON client for
// it.
//
// The wire types here are shared by both ends: the server package decodes the
// same AnnotationRecord the session package encodes.
package gateway
