// Package observe provides observability primitives for ABI lookups.
//
// It is a pure instrumentation library: no caching, no transport, no I/O
// beyond exporter setup. The cache wraps its remote fetch with Middleware
// and records lookups and injections through Metrics; the server and chain
// client log through Logger.
package observe
