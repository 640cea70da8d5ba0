// Package secret resolves credentials referenced from abicache configuration.
//
// Configuration values may embed two kinds of indirection:
//   - Strict environment expansion: ${VAR} fails when VAR is unset, $$ is a
//     literal dollar (see ExpandEnvStrict).
//   - Secret references resolved by a named Provider:
//     "secretref:<provider>:<ref>" as a whole value, or inline as in
//     "Bearer secretref:file:chain-token".
//
// Two providers are built in and registered on DefaultRegistry: "env" reads
// environment variables and "file" reads files below a base directory, which
// suits mounted Kubernetes or Docker secrets. The chain API key and the
// server's JWT signing key are both resolved this way.
package secret
