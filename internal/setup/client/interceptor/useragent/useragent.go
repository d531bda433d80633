package useragent

import (
	"context"
	"net/http"

	"github.com/jaxron/axonet/pkg/client/logger"
	"github.com/jaxron/axonet/pkg/client/middleware"
)

// Middleware sets a fixed User-Agent header on every outgoing request.
type Middleware struct {
	userAgent string
	logger    logger.Logger
}

// New creates a new Middleware instance.
func New(userAgent string) *Middleware {
	return &Middleware{
		userAgent: userAgent,
		logger:    &logger.NoOpLogger{},
	}
}

// Process sets the header on a clone of the request and passes it on.
func (m *Middleware) Process(
	ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc,
) (*http.Response, error) {
	if m.userAgent == "" {
		return next(ctx, httpClient, req)
	}

	req = req.Clone(ctx)
	req.Header.Set("User-Agent", m.userAgent)

	m.logger.WithFields(logger.String("url", req.URL.String())).Debug("Set User-Agent header")

	return next(ctx, httpClient, req)
}

// SetLogger sets the logger for the middleware.
func (m *Middleware) SetLogger(l logger.Logger) {
	m.logger = l
}
