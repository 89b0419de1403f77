package proxy

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/mihmosh/whisper-flash/logger"
	"github.com/mihmosh/whisper-flash/observability"
	"github.com/mihmosh/whisper-flash/server/middleware"
)

// Service owns the token cache and forwarder and mounts the proxy routes.
type Service struct {
	cfg       Config
	cache     *TokenCache
	forwarder *Forwarder
	log       *logger.Logger
}

// NewService creates the proxy service. metrics may be nil.
func NewService(cfg Config, issuer TokenIssuer, log *logger.Logger, metrics *observability.Metrics) (*Service, error) {
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("proxy: at least one target is required")
	}

	cache := NewTokenCache(issuer, cfg.TokenTTL, log, metrics)
	forwarder, err := NewForwarder(cfg, cache, log, metrics)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:       cfg,
		cache:     cache,
		forwarder: forwarder,
		log:       log.WithComponent("proxy"),
	}, nil
}

// RegisterRoutes mounts the forwarding route behind API key auth. The key
// check runs before any token fetch or upstream connection, so
// unauthenticated requests cost nothing upstream.
func (s *Service) RegisterRoutes(r *gin.Engine) {
	authed := r.Group("/", middleware.APIKeyAuth(s.cfg.APIKey))
	authed.Any("/:index/*path", s.forwarder.Handle)
}

// Cache exposes the token cache, used by tests and warm-up routines.
func (s *Service) Cache() *TokenCache {
	return s.cache
}
