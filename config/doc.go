// Package config loads the abicache service configuration.
//
// Configuration is YAML (read through sigs.k8s.io/yaml, so field names
// follow the json tags). Values not present in the first file keep their
// Default; later files are overlays merged with dario.cat/mergo, where a
// non-zero overlay value wins.
//
//	server:
//	  addr: ":8080"
//	chain:
//	  url: https://eos.greymass.com
//	  apiKey: ${NODE_API_KEY}
//	  circuitBreaker: {maxFailures: 5, resetTimeout: 30s}
//	cache:
//	  merge: dedupe
//	  preload: [eosio, eosio.token]
//	auth:
//	  allowAnonymous: true
//	  apiKeys:
//	    - {id: deploy, key: "secretref:file:deploy-key", principal: deployer, roles: [writer]}
//
// Durations are Go duration strings ("250ms", "30s"); bare numbers are
// seconds. Secret-bearing values are resolved later, by the packages that
// use them, through Resolver.
package config
