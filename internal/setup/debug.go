package setup

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	// #nosec G108 -- pprof debugging is only served on localhost
	"net/http/pprof"
	"time"

	"go.uber.org/zap"
)

// debugServer serves pprof profiles and Prometheus metrics on localhost.
type debugServer struct {
	srv      *http.Server
	listener net.Listener
}

// startDebugServer starts the debug HTTP server in the background.
func startDebugServer(port int, metricsHandler http.Handler, logger *zap.Logger) (*debugServer, error) {
	addr := fmt.Sprintf("localhost:%d", port)

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", metricsHandler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	go func() {
		logger.Info("Starting debug server", zap.String("address", addr))

		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Debug server failed", zap.Error(err))
		}
	}()

	return &debugServer{
		srv:      srv,
		listener: listener,
	}, nil
}
