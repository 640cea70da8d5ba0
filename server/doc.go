// Package server exposes a cache.SchemaCache over HTTP.
//
// Routes:
//
//	GET  /v1/abi                  cached accounts and cache stats
//	GET  /v1/abi/{account}        ABI JSON; X-ABI-Source says cache or fetch
//	GET  /v1/abi/{account}/raw    binary abi_def
//	PUT  /v1/abi/{account}        inject an ABI (JSON or binary body), ?merge=true
//	POST /v1/abi:prefetch         {"accounts":["eosio","eosio.token"]}
//
// Health endpoints from package health are mounted unauthenticated when an
// Aggregator is configured. API routes pass through the auth.Stack
// middleware and are authorized per account with the auth actions read,
// write, prefetch and list.
//
// Errors are JSON: {"error":{"code":"not_found","message":"..."},"requestId":"..."}.
package server
