// Package auth authenticates callers of the ABI service and authorizes
// what they may do with which accounts.
//
// Authentication accepts API keys (X-API-Key, stored as SHA-256 hashes) and
// HMAC-signed JWT bearer tokens, tried in order by a CompositeAuthenticator.
// Authorization is role based: a role grants permissions of the form
//
//	abi:<account pattern>:<action>
//
// where action is read, write, prefetch, list or *, and the account pattern
// is an exact name, "*", or a prefix ending in "*" such as "eosio.*".
//
// Middleware attaches the resulting Identity to the request context; when
// anonymous access is enabled, requests without credentials run as the
// "anonymous" role.
package auth
