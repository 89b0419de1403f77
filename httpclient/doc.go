// Package httpclient provides a configurable HTTP client used for all
// outbound calls: chunk uploads to workers, result polling, and identity
// token forwarding through the proxy.
//
// Features:
//   - Base URL resolution and default headers
//   - Bearer token and API key authentication
//   - Multipart file uploads
//   - Typed error classification by status code
//   - Optional retry and rate limiting via the resilience package
//
// Basic usage:
//
//	client, err := httpclient.New(httpclient.Config{
//		BaseURL: "https://worker-0.example.run.app",
//		Timeout: 30 * time.Second,
//	})
//	resp, err := client.Do(ctx, httpclient.Request{
//		Method: http.MethodGet,
//		Path:   "/health",
//	})
package httpclient
