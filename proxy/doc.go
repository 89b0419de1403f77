// Package proxy implements the authenticating gateway in front of the
// worker fleet. Clients authenticate with a shared API key; the proxy mints
// Google identity tokens for the target Cloud Run services, caches them per
// target, and streams requests and responses through unchanged.
//
// Routing: /:index/*path forwards to the worker at Targets[index].
package proxy
