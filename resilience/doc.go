// Package resilience provides retry with exponential backoff and a token
// bucket rate limiter. The transcription client uses Retry for chunk
// submission and result polling, and RateLimiter to pace the poll loop.
package resilience
