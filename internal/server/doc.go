// Package server hosts the Fiber HTTP service and the upstream HTTP client.
// NewApp wires the request-ID middleware and the lookup routes around a
// MetadataSource; NewUpstreamClient builds the gzip-aware client the fetcher
// uses. Diagnostic routes live in the routes subpackage so this package keeps
// its exports narrow and accepts explicit dependencies.
package server
