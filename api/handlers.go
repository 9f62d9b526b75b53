/*
handlers.go - HTTP API handlers for the reward ledger engine

PURPOSE:
  Exposes the scan pipeline, ledger and reward catalog via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Scans:
    POST   /api/scans                       Submit a scanned code

  Users:
    POST   /api/users                       Register user display data
    GET    /api/users                       List users
    GET    /api/users/{id}                  Get user details
    GET    /api/users/{id}/balance          Current point balance
    GET    /api/users/{id}/transactions     Paged transaction history
    GET    /api/users/{id}/achievements     Balance, level, badges
    GET    /api/users/{id}/stats            Monthly dashboard figures

  Redemptions:
    POST   /api/redemptions                 Spend points on a reward

  Catalog:
    GET    /api/catalog/rewards             Redeemable rewards
    GET    /api/catalog/badges              Badge definitions

  Admin:
    POST   /api/admin/products              Upsert product
    POST   /api/admin/badges                Upsert badge definition
    POST   /api/admin/rewards               Upsert reward

  Auth:
    POST   /api/auth/token                  Issue a bearer token (dev)

  Scenarios:
    GET    /api/scenarios                   List demo scenarios
    POST   /api/scenarios/load              Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (also the catalog)
  - Orchestrator: Scan pipeline
  - Redeemer: Reward redemption
  - Ledger / Achievements: Derived reads

ERROR HANDLING:
  Business rejections (duplicate scan, insufficient balance) come back as
  success=false envelopes with an errorCode, carrying the status from
  errors.go. Infrastructure failures are 500s. A negative derived balance
  is a consistency violation and is reported as LEDGER_CORRUPT, never as
  a client error.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fieldloop/rewards-engine/achievement"
	"github.com/fieldloop/rewards-engine/ledger"
	"github.com/fieldloop/rewards-engine/rewards"
	"github.com/fieldloop/rewards-engine/scan"
	"github.com/fieldloop/rewards-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        *sqlite.Store
	Orchestrator *scan.Orchestrator
	Redeemer     *rewards.Redeemer
	Ledger       *ledger.Ledger
	Achievements *achievement.Evaluator
	Levels       ledger.LevelSchedule
	Domains      scan.Domains
	JWTSecret    string

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler wires the domain pipeline on top of the given store.
func NewHandler(store *sqlite.Store, domains scan.Domains, levels ledger.LevelSchedule, jwtSecret string) *Handler {
	l := ledger.New(store)
	evaluator := achievement.NewEvaluator(l, store, levels)

	return &Handler{
		Store:        store,
		Orchestrator: scan.NewOrchestrator(scan.NewValidator(domains), scan.NewGuard(store), store, l, evaluator),
		Redeemer:     rewards.NewRedeemer(store, store),
		Ledger:       l,
		Achievements: evaluator,
		Levels:       levels,
		Domains:      domains,
		JWTSecret:    jwtSecret,
	}
}

// =============================================================================
// SCAN HANDLERS
// =============================================================================

// PostScan runs one scanned code through the full pipeline.
func (h *Handler) PostScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required", nil)
		return
	}
	if !authorizedFor(r, ledger.UserID(req.UserID)) {
		writeError(w, http.StatusForbidden, "Token does not authorize this user", nil)
		return
	}

	result, err := h.Orchestrator.Scan(r.Context(), req.Token, ledger.UserID(req.UserID))
	if err != nil {
		writeDomainError(w, "Scan failed", err)
		return
	}

	if !result.Success {
		resp := ScanResponse{
			Success:   false,
			ErrorCode: result.Code,
			Message:   result.Message,
		}
		if result.Code == scan.CodeDuplicateScan {
			resp.Details = &DuplicateDetail{
				ScannedBy:       string(result.ScannedBy),
				ScannedAt:       result.ScannedAt.Format(time.RFC3339),
				AlreadyCredited: result.AlreadyCredited,
			}
		}
		writeJSON(w, scanStatus(result.Code), resp)
		return
	}

	writeJSON(w, http.StatusOK, ScanResponse{
		Success:           true,
		ProductName:       result.ProductName,
		PointsAwarded:     result.PointsAwarded,
		NewBalance:        result.NewBalance,
		NewlyEarnedBadges: badgeIDStrings(result.NewlyEarnedBadges),
	})
}

// =============================================================================
// REDEMPTION HANDLERS
// =============================================================================

// PostRedemption spends points on a reward.
func (h *Handler) PostRedemption(w http.ResponseWriter, r *http.Request) {
	var req RedemptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" || req.RewardID == "" {
		writeError(w, http.StatusBadRequest, "userId and rewardId are required", nil)
		return
	}
	if !authorizedFor(r, ledger.UserID(req.UserID)) {
		writeError(w, http.StatusForbidden, "Token does not authorize this user", nil)
		return
	}

	tx, err := h.Redeemer.Redeem(r.Context(), ledger.UserID(req.UserID), ledger.RewardID(req.RewardID))
	if err != nil {
		var insufficient *ledger.InsufficientBalanceError
		switch {
		case errors.As(err, &insufficient):
			writeJSON(w, http.StatusPaymentRequired, RedemptionResponse{
				Success:   false,
				ErrorCode: codeInsufficientBalance,
				Message:   insufficient.Error(),
				Available: insufficient.Available,
				Shortfall: insufficient.Shortfall(),
			})
		case errors.Is(err, ledger.ErrUnknownReward):
			writeJSON(w, http.StatusNotFound, RedemptionResponse{
				Success:   false,
				ErrorCode: codeUnknownReward,
				Message:   "Unknown or inactive reward",
			})
		default:
			writeDomainError(w, "Redemption failed", err)
		}
		return
	}

	balance, err := h.Ledger.BalanceOf(r.Context(), ledger.UserID(req.UserID))
	if err != nil {
		writeDomainError(w, "Failed to read balance", err)
		return
	}

	dto := toTransactionDTO(tx)
	writeJSON(w, http.StatusOK, RedemptionResponse{
		Success:     true,
		Transaction: &dto,
		NewBalance:  balance,
	})
}

// =============================================================================
// LEDGER READ HANDLERS
// =============================================================================

// GetBalance returns a user's current point balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(chi.URLParam(r, "id"))
	if !authorizedFor(r, userID) {
		writeError(w, http.StatusForbidden, "Token does not authorize this user", nil)
		return
	}

	balance, err := h.Ledger.BalanceOf(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "Failed to read balance", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":  string(userID),
		"balance": balance,
	})
}

// GetTransactions returns a page of a user's history, newest first.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(chi.URLParam(r, "id"))
	if !authorizedFor(r, userID) {
		writeError(w, http.StatusForbidden, "Token does not authorize this user", nil)
		return
	}
	page := ledger.Page{
		Offset: queryInt(r, "offset"),
		Limit:  queryInt(r, "limit"),
	}.Normalize()

	txs, err := h.Ledger.History(r.Context(), userID, page)
	if err != nil {
		writeDomainError(w, "Failed to read history", err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		UserID:       string(userID),
		Transactions: dtos,
		Offset:       page.Offset,
		Limit:        page.Limit,
	})
}

// =============================================================================
// ACHIEVEMENT HANDLERS
// =============================================================================

// GetAchievements returns balance, level, progress and badge status.
func (h *Handler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(chi.URLParam(r, "id"))
	if !authorizedFor(r, userID) {
		writeError(w, http.StatusForbidden, "Token does not authorize this user", nil)
		return
	}
	ctx := r.Context()

	summary, err := h.Achievements.Summarize(ctx, userID)
	if err != nil {
		writeDomainError(w, "Failed to evaluate achievements", err)
		return
	}

	defs, err := h.Store.Badges(ctx)
	if err != nil {
		writeDomainError(w, "Failed to load badges", err)
		return
	}

	earned := make(map[ledger.BadgeID]bool, len(summary.EarnedBadgeIDs))
	for _, id := range summary.EarnedBadgeIDs {
		earned[id] = true
	}

	badges := make([]BadgeDTO, len(defs))
	for i, def := range defs {
		badges[i] = BadgeDTO{
			ID:               string(def.ID),
			Name:             def.Name,
			RequiredPoints:   def.RequiredPoints,
			MinInstallations: def.MinInstallations,
			MinLevel:         def.MinLevel,
			Earned:           earned[def.ID],
		}
	}

	writeJSON(w, http.StatusOK, AchievementsDTO{
		UserID:            string(userID),
		Balance:           summary.Balance,
		Level:             summary.Level,
		ProgressPercent:   summary.ProgressPercent.String(),
		PointsToNextLevel: summary.PointsToNext,
		Badges:            badges,
	})
}

// GetStats returns monthly dashboard figures. These are display data;
// badge eligibility always uses all-time counts.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := ledger.UserID(chi.URLParam(r, "id"))
	if !authorizedFor(r, userID) {
		writeError(w, http.StatusForbidden, "Token does not authorize this user", nil)
		return
	}
	ctx := r.Context()

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	thisMonth, err := h.Ledger.InstallationCountSince(ctx, userID, monthStart)
	if err != nil {
		writeDomainError(w, "Failed to count installations", err)
		return
	}
	allTime, err := h.Ledger.InstallationCount(ctx, userID)
	if err != nil {
		writeDomainError(w, "Failed to count installations", err)
		return
	}
	pointsThisMonth, err := h.Store.PointsEarnedSince(ctx, userID, monthStart)
	if err != nil {
		writeDomainError(w, "Failed to sum monthly earnings", err)
		return
	}
	balance, err := h.Ledger.BalanceOf(ctx, userID)
	if err != nil {
		writeDomainError(w, "Failed to read balance", err)
		return
	}

	writeJSON(w, http.StatusOK, StatsDTO{
		UserID:                 string(userID),
		Month:                  monthStart.Format("2006-01"),
		InstallationsThisMonth: thisMonth,
		InstallationsAllTime:   allTime,
		PointsThisMonth:        pointsThisMonth,
		Balance:                balance,
		Level:                  h.Levels.LevelOf(balance),
	})
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListRewards returns the reward catalog.
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.ListRewards(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rewards", err)
		return
	}

	dtos := make([]RewardDTO, len(rows))
	for i, rw := range rows {
		dtos[i] = RewardDTO{ID: string(rw.ID), Name: rw.Name, Cost: rw.Cost, Active: rw.Active}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListProducts returns the product catalog (admin view).
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = ProductDTO{Token: string(p.Token), Name: p.Name, PointValue: p.PointValue, Active: p.Active}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListBadges returns all badge definitions.
func (h *Handler) ListBadges(w http.ResponseWriter, r *http.Request) {
	defs, err := h.Store.Badges(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list badges", err)
		return
	}

	dtos := make([]BadgeDTO, len(defs))
	for i, def := range defs {
		dtos[i] = BadgeDTO{
			ID:               string(def.ID),
			Name:             def.Name,
			RequiredPoints:   def.RequiredPoints,
			MinInstallations: def.MinInstallations,
			MinLevel:         def.MinLevel,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// SaveProduct upserts a product into the catalog.
func (h *Handler) SaveProduct(w http.ResponseWriter, r *http.Request) {
	var req SaveProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Token == "" || req.Name == "" || req.PointValue <= 0 {
		writeError(w, http.StatusBadRequest, "token, name and a positive pointValue are required", nil)
		return
	}

	p := ledger.Product{
		Token:      ledger.ScanToken(req.Token),
		Name:       req.Name,
		PointValue: req.PointValue,
		Active:     req.Active == nil || *req.Active,
	}
	if err := h.Store.SaveProduct(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save product", err)
		return
	}

	writeJSON(w, http.StatusCreated, ProductDTO{
		Token:      string(p.Token),
		Name:       p.Name,
		PointValue: p.PointValue,
		Active:     p.Active,
	})
}

// SaveBadge upserts a badge definition. Thresholds apply immediately
// because badge membership is recomputed on every read.
func (h *Handler) SaveBadge(w http.ResponseWriter, r *http.Request) {
	var req SaveBadgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	b := ledger.Badge{
		ID:               ledger.BadgeID(req.ID),
		Name:             req.Name,
		RequiredPoints:   req.RequiredPoints,
		MinInstallations: req.MinInstallations,
		MinLevel:         req.MinLevel,
	}
	if err := h.Store.SaveBadge(r.Context(), b); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save badge", err)
		return
	}

	writeJSON(w, http.StatusCreated, BadgeDTO{
		ID:               req.ID,
		Name:             req.Name,
		RequiredPoints:   req.RequiredPoints,
		MinInstallations: req.MinInstallations,
		MinLevel:         req.MinLevel,
	})
}

// SaveReward upserts a reward.
func (h *Handler) SaveReward(w http.ResponseWriter, r *http.Request) {
	var req SaveRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" || req.Cost <= 0 {
		writeError(w, http.StatusBadRequest, "id, name and a positive cost are required", nil)
		return
	}

	rw := ledger.Reward{
		ID:     ledger.RewardID(req.ID),
		Name:   req.Name,
		Cost:   req.Cost,
		Active: req.Active == nil || *req.Active,
	}
	if err := h.Store.SaveReward(r.Context(), rw); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save reward", err)
		return
	}

	writeJSON(w, http.StatusCreated, RewardDTO{
		ID:     req.ID,
		Name:   req.Name,
		Cost:   rw.Cost,
		Active: rw.Active,
	})
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// CreateUser registers user display data.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	u := sqlite.User{ID: ledger.UserID(req.ID), Name: req.Name, Phone: req.Phone}
	if err := h.Store.SaveUser(r.Context(), u); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, UserDTO{ID: req.ID, Name: req.Name, Phone: req.Phone})
}

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = UserDTO{
			ID:        string(u.ID),
			Name:      u.Name,
			Phone:     u.Phone,
			CreatedAt: u.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetUser returns a single user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := ledger.UserID(chi.URLParam(r, "id"))

	u, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		if ledger.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "User not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return
	}

	writeJSON(w, http.StatusOK, UserDTO{
		ID:        string(u.ID),
		Name:      u.Name,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	})
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// IssueToken signs a bearer token for a user. This is a development
// helper; production identity comes from the external login flow.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if h.JWTSecret == "" {
		writeError(w, http.StatusNotImplemented, "Auth is disabled (no JWT secret configured)", nil)
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required", nil)
		return
	}

	if req.Name != "" {
		u := sqlite.User{ID: ledger.UserID(req.UserID), Name: req.Name}
		if err := h.Store.SaveUser(r.Context(), u); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save user", err)
			return
		}
	}

	token, err := GenerateToken(ledger.UserID(req.UserID), h.JWTSecret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to sign token", err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// =============================================================================
// HELPERS
// =============================================================================

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:            string(tx.ID),
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		Description:   tx.Description,
		RelatedEntity: tx.RelatedEntity,
		CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
	}
}

func badgeIDStrings(ids []ledger.BadgeID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
