// Package api provides the HTTP surface of the prediction engine: JSON
// handlers for round management, betting, resolution and ledger queries,
// plus the WebSocket event hub.
//
// Token amounts and prices cross the wire as decimal strings and are
// converted to integer stroops at this boundary — never float64 for money.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Josue19-08/Xelma-Blockchain/internal/address"
	"github.com/Josue19-08/Xelma-Blockchain/internal/auth"
	"github.com/Josue19-08/Xelma-Blockchain/internal/engine"
	"github.com/Josue19-08/Xelma-Blockchain/internal/model"
	"github.com/Josue19-08/Xelma-Blockchain/internal/oracle"
	"github.com/Josue19-08/Xelma-Blockchain/internal/payout"
	"github.com/Josue19-08/Xelma-Blockchain/internal/store"
)

// CallerHeader carries the authenticated caller address. Upstream
// infrastructure (gateway, signature check) is expected to set it; the
// service trusts it as-is.
const CallerHeader = "X-Caller"

// Service exposes the engine over HTTP.
type Service struct {
	engine *engine.Engine
	hub    *Hub
}

// NewService creates the HTTP service. The hub may be nil when WebSocket
// broadcasting is not needed.
func NewService(eng *engine.Engine, hub *Hub) *Service {
	return &Service{engine: eng, hub: hub}
}

// CallerMiddleware lifts the caller header into the request context.
func CallerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if caller := r.Header.Get(CallerHeader); caller != "" {
			r = r.WithContext(auth.WithCaller(r.Context(), caller))
		}
		next.ServeHTTP(w, r)
	})
}

// Routes mounts all handlers on the given router.
func (s *Service) Routes(r chi.Router) {
	if s.hub != nil {
		r.Get("/ws", s.hub.HandleWS)
	}

	r.Post("/initialize", s.Initialize)
	r.Get("/admin", s.GetAdmin)
	r.Get("/oracle", s.GetOracle)

	r.Get("/windows", s.GetWindows)
	r.Put("/windows", s.SetWindows)

	r.Post("/rounds", s.CreateRound)
	r.Get("/rounds/active", s.GetActiveRound)
	r.Get("/rounds/last-id", s.GetLastRoundID)
	r.Post("/rounds/resolve", s.ResolveRound)

	r.Post("/bets", s.PlaceBet)
	r.Post("/predictions", s.PlacePrediction)
	r.Post("/claim", s.ClaimWinnings)
	r.Post("/faucet", s.MintInitial)

	r.Get("/users/{address}/balance", s.GetBalance)
	r.Get("/users/{address}/position", s.GetPosition)
	r.Get("/users/{address}/pending", s.GetPendingWinnings)
	r.Get("/users/{address}/stats", s.GetStats)

	r.Get("/settlements", s.ListSettlements)
}

// --- Request/Response types ---

// InitializeRequest is the JSON body for POST /initialize.
type InitializeRequest struct {
	Admin  string `json:"admin"`
	Oracle string `json:"oracle"`
}

// WindowsRequest is the JSON body for PUT /windows.
type WindowsRequest struct {
	BetLedgers uint32 `json:"bet_ledgers"`
	RunLedgers uint32 `json:"run_ledgers"`
}

// CreateRoundRequest is the JSON body for POST /rounds.
type CreateRoundRequest struct {
	Mode       string `json:"mode"`        // "updown" (default) or "precision"
	PriceStart string `json:"price_start"` // decimal
}

// BetRequest is the JSON body for POST /bets.
type BetRequest struct {
	User   string `json:"user"`
	Side   string `json:"side"`   // "up" or "down"
	Amount string `json:"amount"` // decimal tokens
}

// PredictionRequest is the JSON body for POST /predictions.
type PredictionRequest struct {
	User           string `json:"user"`
	PredictedPrice string `json:"predicted_price"` // decimal
	Amount         string `json:"amount"`          // decimal tokens
}

// ResolveRequest is the oracle report for POST /rounds/resolve.
type ResolveRequest struct {
	Price     string `json:"price"` // decimal
	Timestamp uint64 `json:"timestamp"`
	RoundID   uint64 `json:"round_id"`
}

// UserRequest is the JSON body for POST /claim and POST /faucet.
type UserRequest struct {
	User string `json:"user"`
}

// RoundResponse renders a round with decimal amounts.
type RoundResponse struct {
	RoundID      uint64 `json:"round_id"`
	Mode         string `json:"mode"`
	PriceStart   string `json:"price_start"`
	StartLedger  uint32 `json:"start_ledger"`
	BetEndLedger uint32 `json:"bet_end_ledger"`
	EndLedger    uint32 `json:"end_ledger"`
	PoolUp       string `json:"pool_up"`
	PoolDown     string `json:"pool_down"`
}

// SettlementResponse renders a settlement record with decimal amounts.
type SettlementResponse struct {
	ID         string `json:"id"`
	RoundID    uint64 `json:"round_id"`
	Mode       string `json:"mode"`
	PriceStart string `json:"price_start"`
	PriceFinal string `json:"price_final"`
	PoolUp     string `json:"pool_up"`
	PoolDown   string `json:"pool_down"`
	TotalPaid  string `json:"total_paid"`
	Dust       string `json:"dust"`
	Winners    int    `json:"winners"`
	Losers     int    `json:"losers"`
	Refunded   bool   `json:"refunded"`
	ResolvedAt uint32 `json:"resolved_at"`
	ResolvedTS string `json:"resolved_ts"`
}

func roundResponse(r *model.Round) RoundResponse {
	return RoundResponse{
		RoundID:      r.RoundID,
		Mode:         string(r.Mode),
		PriceStart:   formatPrice(r.PriceStart),
		StartLedger:  r.StartLedger,
		BetEndLedger: r.BetEndLedger,
		EndLedger:    r.EndLedger,
		PoolUp:       formatStroops(r.PoolUp),
		PoolDown:     formatStroops(r.PoolDown),
	}
}

func settlementResponse(s *model.Settlement) SettlementResponse {
	return SettlementResponse{
		ID:         s.ID,
		RoundID:    s.RoundID,
		Mode:       string(s.Mode),
		PriceStart: formatPrice(s.PriceStart),
		PriceFinal: formatPrice(s.PriceFinal),
		PoolUp:     formatStroops(s.PoolUp),
		PoolDown:   formatStroops(s.PoolDown),
		TotalPaid:  formatStroops(s.TotalPaid),
		Dust:       formatStroops(s.Dust),
		Winners:    s.Winners,
		Losers:     s.Losers,
		Refunded:   s.Refunded,
		ResolvedAt: s.ResolvedAt,
		ResolvedTS: s.ResolvedTS.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// --- Handlers ---

// Initialize handles POST /api/v1/initialize.
func (s *Service) Initialize(w http.ResponseWriter, r *http.Request) {
	var req InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.engine.Initialize(r.Context(), req.Admin, req.Oracle); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"admin": req.Admin, "oracle": req.Oracle})
}

// GetAdmin handles GET /api/v1/admin.
func (s *Service) GetAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := s.engine.Admin(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"admin": admin})
}

// GetOracle handles GET /api/v1/oracle.
func (s *Service) GetOracle(w http.ResponseWriter, r *http.Request) {
	addr, err := s.engine.Oracle(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"oracle": addr})
}

// GetWindows handles GET /api/v1/windows.
func (s *Service) GetWindows(w http.ResponseWriter, r *http.Request) {
	wnd, err := s.engine.Windows(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wnd)
}

// SetWindows handles PUT /api/v1/windows.
func (s *Service) SetWindows(w http.ResponseWriter, r *http.Request) {
	var req WindowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	wnd := model.Windows{BetLedgers: req.BetLedgers, RunLedgers: req.RunLedgers}
	if err := s.engine.SetWindows(r.Context(), wnd); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wnd)
}

// CreateRound handles POST /api/v1/rounds.
func (s *Service) CreateRound(w http.ResponseWriter, r *http.Request) {
	var req CreateRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	price, err := parsePrice(req.PriceStart)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	mode := model.Mode(req.Mode)
	if req.Mode == "" {
		mode = model.ModeUpDown
	}
	round, err := s.engine.CreateRound(r.Context(), mode, price)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roundResponse(round))
}

// GetActiveRound handles GET /api/v1/rounds/active.
func (s *Service) GetActiveRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.engine.ActiveRound(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roundResponse(round))
}

// GetLastRoundID handles GET /api/v1/rounds/last-id.
func (s *Service) GetLastRoundID(w http.ResponseWriter, r *http.Request) {
	id, err := s.engine.LastRoundID(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"last_round_id": id})
}

// ResolveRound handles POST /api/v1/rounds/resolve.
func (s *Service) ResolveRound(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload := model.OraclePayload{Price: price, Timestamp: req.Timestamp, RoundID: req.RoundID}
	settlement, err := s.engine.ResolveRound(r.Context(), payload)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlementResponse(settlement))
}

// PlaceBet handles POST /api/v1/bets.
func (s *Service) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req BetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	amount, err := parseTokens(req.Amount)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.engine.PlaceBet(r.Context(), req.User, model.BetSide(req.Side), amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"user":   req.User,
		"side":   req.Side,
		"amount": formatStroops(amount),
	})
}

// PlacePrediction handles POST /api/v1/predictions.
func (s *Service) PlacePrediction(w http.ResponseWriter, r *http.Request) {
	var req PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	price, err := parsePrice(req.PredictedPrice)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	amount, err := parseTokens(req.Amount)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.engine.PlacePrecisionPrediction(r.Context(), req.User, price, amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"user":            req.User,
		"predicted_price": formatPrice(price),
		"amount":          formatStroops(amount),
	})
}

// ClaimWinnings handles POST /api/v1/claim.
func (s *Service) ClaimWinnings(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	claimed, err := s.engine.ClaimWinnings(r.Context(), req.User)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user":    req.User,
		"claimed": formatStroops(claimed),
	})
}

// MintInitial handles POST /api/v1/faucet.
func (s *Service) MintInitial(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	balance, minted, err := s.engine.MintInitial(r.Context(), req.User)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":    req.User,
		"balance": formatStroops(balance),
		"minted":  minted,
	})
}

// GetBalance handles GET /api/v1/users/{address}/balance.
func (s *Service) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	balance, err := s.engine.Balance(r.Context(), addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"address": addr,
		"balance": formatStroops(balance),
	})
}

// GetPosition handles GET /api/v1/users/{address}/position.
func (s *Service) GetPosition(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	pos, err := s.engine.Position(r.Context(), addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"address": addr,
		"side":    string(pos.Side),
		"amount":  formatStroops(pos.Amount),
	})
}

// GetPendingWinnings handles GET /api/v1/users/{address}/pending.
func (s *Service) GetPendingWinnings(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	pending, err := s.engine.PendingWinnings(r.Context(), addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"address": addr,
		"pending": formatStroops(pending),
	})
}

// GetStats handles GET /api/v1/users/{address}/stats.
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	stats, err := s.engine.Stats(r.Context(), addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListSettlements handles GET /api/v1/settlements?limit=N.
func (s *Service) ListSettlements(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	settlements, err := s.engine.Settlements(r.Context(), limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	out := make([]SettlementResponse, 0, len(settlements))
	for i := range settlements {
		out = append(out, settlementResponse(&settlements[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Error mapping ---

// writeEngineError maps engine sentinel errors onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnauthorizedAdmin),
		errors.Is(err, engine.ErrUnauthorizedOracle),
		errors.Is(err, engine.ErrUnauthorizedCaller):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrNoActiveRound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, engine.ErrAdminNotSet),
		errors.Is(err, engine.ErrOracleNotSet):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyInitialized),
		errors.Is(err, engine.ErrRoundAlreadyActive),
		errors.Is(err, engine.ErrAlreadyBet),
		errors.Is(err, engine.ErrRoundEnded),
		errors.Is(err, engine.ErrRoundNotEnded),
		errors.Is(err, engine.ErrWrongRoundMode),
		errors.Is(err, engine.ErrInsufficientBalance):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidBetAmount),
		errors.Is(err, engine.ErrInvalidPrice),
		errors.Is(err, engine.ErrInvalidDuration),
		errors.Is(err, address.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, oracle.ErrInvalidRound),
		errors.Is(err, oracle.ErrStaleData),
		errors.Is(err, oracle.ErrInvalidPrice),
		errors.Is(err, payout.ErrOverflow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
