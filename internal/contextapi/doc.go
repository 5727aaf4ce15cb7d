// Package contextapi is a client for the core service's REST API.
//
// The dashboard reads static context from it: the repositories it may work
// on, the active repository and branch, and the agent registry. It can also
// change the active context.
//
// Requests are not retried. Any non-2xx response is returned as an error
// wrapping ErrRequestFailed; use errors.As with *StatusError for details.
//
// # Usage
//
//	client := contextapi.New(cfg.ContextAPI.BaseURL, cfg.GetContextAPITimeout())
//	repos, err := client.GetRepos(ctx)
package contextapi
