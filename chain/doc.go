// Package chain is an HTTP client for the nodeos /v1/chain API.
//
// Client fetches raw ABIs for the ABI cache and implements cache.Fetcher:
//
//	client, err := chain.NewClient("https://jungle4.greymass.com")
//	if err != nil {
//		return err
//	}
//	c := cache.New(client)
//
// Requests go through hashicorp/go-retryablehttp. Retries are off unless
// WithRetry enables them, so one lookup is one round-trip by default.
// Responses are read with gjson; nodeos error bodies become *APIError.
//
// Every failure matches ErrTransport. A missing ABI is not an error:
// GetRawABI returns an empty payload and the cache reports it as not found.
package chain
