package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes. metrics may be nil.
func SetupRoutes(handler *Handler, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(handler.logger))

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods("GET")
	}

	// Vault routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/vaults", handler.CreateVault).Methods("POST")
	api.HandleFunc("/vaults/{vaultId}/nav-series", handler.GetNavSeries).Methods("GET")
	api.HandleFunc("/vaults/{vaultId}/basket", handler.UpdateVaultBasket).Methods("PUT")
	api.HandleFunc("/vaults/{vaultIndex:[0-9]+}/fee-accrual", handler.GetFeeAccrual).Methods("GET")
	api.HandleFunc("/vaults/{vaultIndex:[0-9]+}/fee-accrual/latest", handler.GetLatestFeeAccrual).Methods("GET")
	api.HandleFunc("/vaults/{vaultIndex:[0-9]+}/quote/deposit", handler.QuoteDeposit).Methods("GET")
	api.HandleFunc("/vaults/{vaultIndex:[0-9]+}/quote/redeem", handler.QuoteRedeem).Methods("GET")
	api.HandleFunc("/vaults/{vaultIndex:[0-9]+}/onchain-state", handler.RecordOnChainState).Methods("PUT")
	api.HandleFunc("/fee-accruals/recalculate", handler.RecalculateFeeAccruals).Methods("POST")

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
