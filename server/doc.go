// Package server provides the HTTP server shared by the worker and proxy
// services. It wraps Gin with h2c support so Cloud Run style HTTP/2
// cleartext traffic works without TLS termination in the container, and
// implements component.Component for lifecycle management.
package server
