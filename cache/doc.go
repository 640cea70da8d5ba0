// Package cache provides a coalescing, in-memory cache of account ABIs.
//
// A SchemaCache sits in front of a Fetcher (usually a chain.Client). The
// first GetABI for an account starts one remote fetch; concurrent callers
// for the same account wait on that fetch instead of starting their own.
// Successful results are kept for the life of the cache; failures are
// delivered to every waiter and forgotten. SetABI injects or merges ABIs
// locally without touching the network.
package cache
