package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/vault-valuation-service/internal/fees"
	"github.com/trogers1052/vault-valuation-service/internal/models"
	"github.com/trogers1052/vault-valuation-service/internal/service"
	"github.com/trogers1052/vault-valuation-service/internal/valuation"
)

const maxBodyBytes = 1 << 20

// NavSeriesGetter builds NAV series
type NavSeriesGetter interface {
	GetNavSeries(ctx context.Context, req service.NavSeriesRequest) (*models.NavSeries, error)
}

// FeeAccrualGetter computes live fee accruals
type FeeAccrualGetter interface {
	GetFeeAccrual(ctx context.Context, vaultIndex int) (*models.FeeAccrualResult, error)
}

// FeeQuoter prices deposits and redemptions at a vault's live share price
type FeeQuoter interface {
	QuoteDeposit(ctx context.Context, vaultIndex int, amount decimal.Decimal) (*fees.Deposit, error)
	QuoteRedeem(ctx context.Context, vaultIndex int, shares decimal.Decimal) (*fees.Redemption, error)
}

// SnapshotReader returns persisted batch accruals
type SnapshotReader interface {
	GetLatestFeeAccrualSnapshot(ctx context.Context, vaultIndex int) (*models.FeeAccrualSnapshot, error)
}

// VaultAdmin registers vaults and records on-chain state
type VaultAdmin interface {
	CreateVault(ctx context.Context, v *models.VaultConfig) error
	UpdateBasket(ctx context.Context, vaultID string, assets []models.BasketAsset) error
	RecordOnChainState(ctx context.Context, v *models.OnChainVault) error
}

// BatchRunner runs a fee accrual batch
type BatchRunner interface {
	Run(ctx context.Context) (*service.BatchReport, error)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping() error
}

// HandlerDeps groups the collaborators of a Handler. DB may be nil.
type HandlerDeps struct {
	Nav       NavSeriesGetter
	Accruals  FeeAccrualGetter
	Quotes    FeeQuoter
	Snapshots SnapshotReader
	Admin     VaultAdmin
	Batch     BatchRunner
	DB        Pinger
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	nav       NavSeriesGetter
	accruals  FeeAccrualGetter
	quotes    FeeQuoter
	snapshots SnapshotReader
	admin     VaultAdmin
	batch     BatchRunner
	db        Pinger
	logger    *slog.Logger
}

// NewHandler creates a new Handler
func NewHandler(deps HandlerDeps, logger *slog.Logger) *Handler {
	return &Handler{
		nav:       deps.Nav,
		accruals:  deps.Accruals,
		quotes:    deps.Quotes,
		snapshots: deps.Snapshots,
		admin:     deps.Admin,
		batch:     deps.Batch,
		db:        deps.DB,
		logger:    logger.With("component", "api"),
	}
}

// GetNavSeries handles GET /vaults/{vaultId}/nav-series
func (h *Handler) GetNavSeries(w http.ResponseWriter, r *http.Request) {
	req, err := parseNavSeriesRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	series, err := h.nav.GetNavSeries(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, series)
}

// GetFeeAccrual handles GET /vaults/{vaultIndex}/fee-accrual
func (h *Handler) GetFeeAccrual(w http.ResponseWriter, r *http.Request) {
	vaultIndex, err := parseVaultIndex(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	result, err := h.accruals.GetFeeAccrual(r.Context(), vaultIndex)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetLatestFeeAccrual handles GET /vaults/{vaultIndex}/fee-accrual/latest
func (h *Handler) GetLatestFeeAccrual(w http.ResponseWriter, r *http.Request) {
	vaultIndex, err := parseVaultIndex(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	snapshot, err := h.snapshots.GetLatestFeeAccrualSnapshot(r.Context(), vaultIndex)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// QuoteDeposit handles GET /vaults/{vaultIndex}/quote/deposit?amount=
func (h *Handler) QuoteDeposit(w http.ResponseWriter, r *http.Request) {
	vaultIndex, err := parseVaultIndex(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	amount, err := parseDecimalParam(r, "amount")
	if err != nil {
		h.respondError(w, err)
		return
	}

	quote, err := h.quotes.QuoteDeposit(r.Context(), vaultIndex, amount)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// QuoteRedeem handles GET /vaults/{vaultIndex}/quote/redeem?shares=
func (h *Handler) QuoteRedeem(w http.ResponseWriter, r *http.Request) {
	vaultIndex, err := parseVaultIndex(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	shares, err := parseDecimalParam(r, "shares")
	if err != nil {
		h.respondError(w, err)
		return
	}

	quote, err := h.quotes.QuoteRedeem(r.Context(), vaultIndex, shares)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// CreateVault handles POST /vaults
func (h *Handler) CreateVault(w http.ResponseWriter, r *http.Request) {
	var v models.VaultConfig
	if err := decodeJSON(w, r, &v); err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.admin.CreateVault(r.Context(), &v); err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, v)
}

// UpdateVaultBasket handles PUT /vaults/{vaultId}/basket
func (h *Handler) UpdateVaultBasket(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Assets []models.BasketAsset `json:"assets"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.respondError(w, err)
		return
	}

	vaultID := mux.Vars(r)["vaultId"]
	if err := h.admin.UpdateBasket(r.Context(), vaultID, body.Assets); err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"vault_id": vaultID, "assets": body.Assets})
}

// RecordOnChainState handles PUT /vaults/{vaultIndex}/onchain-state
func (h *Handler) RecordOnChainState(w http.ResponseWriter, r *http.Request) {
	vaultIndex, err := parseVaultIndex(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var v models.OnChainVault
	if err := decodeJSON(w, r, &v); err != nil {
		h.respondError(w, err)
		return
	}
	v.VaultIndex = vaultIndex

	if err := h.admin.RecordOnChainState(r.Context(), &v); err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, v)
}

// RecalculateFeeAccruals handles POST /fee-accruals/recalculate. The run
// continues if the client disconnects so the batch is never left half done.
func (h *Handler) RecalculateFeeAccruals(w http.ResponseWriter, r *http.Request) {
	report, err := h.batch.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			h.logger.Warn("health check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func parseVaultIndex(r *http.Request) (int, error) {
	vaultIndex, err := strconv.Atoi(mux.Vars(r)["vaultIndex"])
	if err != nil || vaultIndex < 0 {
		return 0, fmt.Errorf("%w: vault index must be a non-negative integer", models.ErrInvalidInput)
	}
	return vaultIndex, nil
}

func parseDecimalParam(r *http.Request, name string) (decimal.Decimal, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return decimal.Zero, fmt.Errorf("%w: %s is required", models.ErrInvalidInput, name)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s must be a decimal number", models.ErrInvalidInput, name)
	}
	return d, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", models.ErrInvalidInput, err)
	}
	return nil
}

func parseNavSeriesRequest(r *http.Request) (service.NavSeriesRequest, error) {
	q := r.URL.Query()
	req := service.NavSeriesRequest{VaultID: mux.Vars(r)["vaultId"]}

	if p := q.Get("period"); p != "" {
		period, err := valuation.ParsePeriod(p)
		if err != nil {
			return req, err
		}
		req.Period = period
		return req, nil
	}

	if s := q.Get("interval"); s != "" {
		interval, err := valuation.ParseInterval(s)
		if err != nil {
			return req, err
		}
		req.Interval = interval
	}

	for name, dst := range map[string]**time.Time{"start": &req.Start, "end": &req.End} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return req, fmt.Errorf("%w: %s must be RFC3339", models.ErrInvalidInput, name)
		}
		*dst = &t
	}
	return req, nil
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
		msg = "internal error"
	}
	respondJSON(w, status, map[string]string{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrBatchInFlight):
		return http.StatusConflict
	case errors.Is(err, models.ErrOracleTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrPriceUnavailable), errors.Is(err, models.ErrRateLimited):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
