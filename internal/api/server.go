package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

const shutdownTimeout = 5 * time.Second

// NewRouter registers every route. All routes except /health require a
// bearer token.
func (a *API) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", a.HandleHealth).Methods(http.MethodGet)

	p := r.PathPrefix("/").Subrouter()
	p.Use(a.JWTMiddleware)

	p.HandleFunc("/sites", a.HandleListSites).Methods(http.MethodGet)
	p.HandleFunc("/sites", a.HandleReplaceSites).Methods(http.MethodPut)
	p.HandleFunc("/sites", a.HandleAddSite).Methods(http.MethodPost)
	p.HandleFunc("/sites/recent", a.HandleRecentSites).Methods(http.MethodGet)
	p.HandleFunc("/sites/site", a.HandleGetSite).Methods(http.MethodGet)
	p.HandleFunc("/sites/site", a.HandleRemoveSite).Methods(http.MethodDelete)
	p.HandleFunc("/sites/site", a.HandleUpdateSite).Methods(http.MethodPatch)
	p.HandleFunc("/sites/touch", a.HandleTouchSite).Methods(http.MethodPost)
	p.HandleFunc("/sites/pin", a.HandlePinSite).Methods(http.MethodPost)
	p.HandleFunc("/sites/unpin", a.HandleUnpinSite).Methods(http.MethodPost)
	p.HandleFunc("/sites/permission", a.HandleHasPermission).Methods(http.MethodGet)

	p.HandleFunc("/pending/{network}/{address}", a.HandleListPending).Methods(http.MethodGet)
	p.HandleFunc("/pending/{network}/{address}", a.HandleSetPending).Methods(http.MethodPost)
	p.HandleFunc("/pending/{network}/{address}", a.HandleClearPending).Methods(http.MethodDelete)
	p.HandleFunc("/pending/{network}/{address}/{txId}", a.HandleUpdatePending).Methods(http.MethodPatch)
	p.HandleFunc("/pending/{network}/{address}/{txId}", a.HandleRemovePending).Methods(http.MethodDelete)

	p.HandleFunc("/transactions/{network}/{address}", a.HandleListTransactions).Methods(http.MethodGet)
	p.HandleFunc("/transactions/{network}/{address}/count", a.HandleTransactionCount).Methods(http.MethodGet)

	return r
}

// Handler wraps the router with the middleware that applies to every request,
// preflight requests included.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.NewRouter()
	h = a.CORSMiddleware(h)
	h = LoggingMiddleware(a.logger)(h)
	h = RequestIDMiddleware(h)
	h = RecoverMiddleware(a.logger)(h)
	return h
}

// Serve runs the HTTP server on port until ctx is cancelled.
func (a *API) Serve(ctx context.Context, port int) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      a.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", server.Addr).Msg("Starting HTTP server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "http server shutdown")
		}
		return nil
	}
}
