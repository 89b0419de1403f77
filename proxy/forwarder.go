package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mihmosh/whisper-flash/errors"
	"github.com/mihmosh/whisper-flash/httpclient"
	"github.com/mihmosh/whisper-flash/logger"
	"github.com/mihmosh/whisper-flash/observability"
	"github.com/mihmosh/whisper-flash/server"
	"github.com/mihmosh/whisper-flash/server/middleware"
)

// hopByHopHeaders are stripped in both directions per RFC 9110 §7.6.1.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Proxy-Connection":    true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// Forwarder streams requests to a worker, authenticating upstream with a
// cached identity token.
type Forwarder struct {
	targets []string
	cache   *TokenCache
	client  *httpclient.Client
	timeout time.Duration
	log     *logger.Logger
	metrics *observability.Metrics
}

// NewForwarder creates a forwarder. metrics may be nil.
func NewForwarder(cfg Config, cache *TokenCache, log *logger.Logger, metrics *observability.Metrics) (*Forwarder, error) {
	client, err := httpclient.New(httpclient.Config{Timeout: cfg.UpstreamTimeout})
	if err != nil {
		return nil, fmt.Errorf("proxy: create upstream client: %w", err)
	}
	return &Forwarder{
		targets: cfg.Targets,
		cache:   cache,
		client:  client,
		timeout: cfg.UpstreamTimeout,
		log:     log.WithComponent("forwarder"),
		metrics: metrics,
	}, nil
}

// Handle is the Gin handler for /:index/*path.
func (f *Forwarder) Handle(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 || index >= len(f.targets) {
		server.RespondWithError(c, apperrors.Validation("invalid worker index"))
		return
	}
	target := f.targets[index]

	token, err := f.cache.Token(c.Request.Context(), target)
	if err != nil {
		f.log.Error("Token fetch failed", map[string]interface{}{
			"target": target,
			"error":  err.Error(),
		})
		if f.metrics != nil {
			f.metrics.RecordError(c.Request.Context(), "token_fetch", "proxy")
		}
		server.RespondWithError(c, apperrors.TokenFetch(target, err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), f.timeout)
	defer cancel()

	start := time.Now()
	upstream, err := f.client.DoStream(ctx, httpclient.Request{
		Method:    c.Request.Method,
		Path:      upstreamURL(target, c.Param("path"), c.Request.URL.RawQuery),
		RawHeader: forwardHeaders(c.Request.Header, token),
		Body:      c.Request.Body,
	})
	if err != nil {
		f.log.Error("Upstream request failed", map[string]interface{}{
			"target": target,
			"path":   c.Param("path"),
			"error":  err.Error(),
		})
		if f.metrics != nil {
			f.metrics.RecordError(ctx, "upstream", "proxy")
		}
		server.RespondWithError(c, apperrors.UpstreamUnavailable(target, err))
		return
	}
	defer upstream.Close()

	if f.metrics != nil {
		f.metrics.RecordForward(ctx, target, upstream.StatusCode, time.Since(start))
	}

	copyResponse(c, upstream)
}

// upstreamURL joins the target base URL with the forwarded path and query.
func upstreamURL(target, path, rawQuery string) string {
	u := strings.TrimRight(target, "/") + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

// forwardHeaders copies client headers with every value of repeated keys,
// dropping hop-by-hop headers and the proxy's own API key, and replaces
// Authorization with the identity token.
func forwardHeaders(in http.Header, token string) http.Header {
	out := make(http.Header, len(in))
	for k, vals := range in {
		if hopByHopHeaders[http.CanonicalHeaderKey(k)] || len(vals) == 0 {
			continue
		}
		if http.CanonicalHeaderKey(k) == http.CanonicalHeaderKey(middleware.APIKeyHeader) {
			continue
		}
		out[http.CanonicalHeaderKey(k)] = append([]string(nil), vals...)
	}
	out.Set("Authorization", "Bearer "+token)
	return out
}

// copyResponse streams the upstream response back to the client unchanged.
func copyResponse(c *gin.Context, upstream *httpclient.StreamResponse) {
	header := c.Writer.Header()
	for k, vals := range upstream.Header {
		if hopByHopHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		for _, v := range vals {
			header.Add(k, v)
		}
	}
	c.Writer.WriteHeader(upstream.StatusCode)
	_, _ = io.Copy(c.Writer, upstream.Body)
}
