/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates users, products,
	badges, rewards, and replays scans through the real pipeline so the
	guard and ledger are exercised exactly as in production.

AVAILABLE SCENARIOS:

	fresh-start:      Seeded catalog, one user, empty ledger
	duplicate-race:   A code already consumed by another user
	redemption-short: A balance just below the cheapest reward
	badge-hunter:     A heavy scanner with several badges earned

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Seed catalog (products, badges, rewards)
 3. Create users
 4. Replay scans through the orchestrator
 5. Optionally replay redemptions

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "duplicate-race"}

NOTE:

	Scenarios reset the database. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: Shared handler context
  - server.go: Scenario routes
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/fieldloop/rewards-engine/ledger"
	"github.com/fieldloop/rewards-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-start",
		Name:        "Fresh Start",
		Description: "Seeded catalog and one user with an empty ledger",
	},
	{
		ID:          "duplicate-race",
		Name:        "Duplicate Race",
		Description: "A product code already consumed by another installer",
	},
	{
		ID:          "redemption-short",
		Name:        "Redemption Shortfall",
		Description: "A balance just below the cheapest reward's cost",
	},
	{
		ID:          "badge-hunter",
		Name:        "Badge Hunter",
		Description: "A heavy scanner with several badges already earned",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "fresh-start":
		err = h.loadFreshStart(ctx)
	case "duplicate-race":
		err = h.loadDuplicateRace(ctx)
	case "redemption-short":
		err = h.loadRedemptionShort(ctx)
	case "badge-hunter":
		err = h.loadBadgeHunter(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// seedCatalog installs the shared demo catalog and returns the product
// tokens so loaders can replay scans against them.
func (h *Handler) seedCatalog(ctx context.Context) (map[string]ledger.ScanToken, error) {
	products := []struct {
		key    string
		name   string
		points int64
	}{
		{"thermostat", "Smart Thermostat TS-200", 100},
		{"valve", "Zone Valve ZV-15", 50},
		{"controller", "Boiler Controller BC-8", 150},
	}

	tokens := make(map[string]ledger.ScanToken, len(products))
	for _, p := range products {
		token := ledger.ScanToken(uuid.NewString())
		tokens[p.key] = token
		err := h.Store.SaveProduct(ctx, ledger.Product{
			Token:      token,
			Name:       p.name,
			PointValue: p.points,
			Active:     true,
		})
		if err != nil {
			return nil, err
		}
	}

	badges := []ledger.Badge{
		{ID: "first-install", Name: "First Installation", MinInstallations: 1},
		{ID: "ten-installs", Name: "Ten Installations", MinInstallations: 10},
		{ID: "point-collector", Name: "Point Collector", RequiredPoints: 500},
		{ID: "level-three", Name: "Level Three", MinLevel: 3},
	}
	for _, b := range badges {
		if err := h.Store.SaveBadge(ctx, b); err != nil {
			return nil, err
		}
	}

	rewards := []ledger.Reward{
		{ID: "coffee-card", Name: "Coffee Gift Card", Cost: 100, Active: true},
		{ID: "tool-set", Name: "Installer Tool Set", Cost: 400, Active: true},
		{ID: "weekend-trip", Name: "Weekend Trip Voucher", Cost: 2000, Active: true},
	}
	for _, rw := range rewards {
		if err := h.Store.SaveReward(ctx, rw); err != nil {
			return nil, err
		}
	}

	return tokens, nil
}

// scanURL builds a canonical product URL for a demo token.
func (h *Handler) scanURL(token ledger.ScanToken) string {
	return fmt.Sprintf("https://%s/p/%s", h.Domains.CanonicalHost, token)
}

// replayScan runs one demo scan and fails the load on any rejection; a
// rejected replay means the scenario data is wrong.
func (h *Handler) replayScan(ctx context.Context, token ledger.ScanToken, userID ledger.UserID) error {
	result, err := h.Orchestrator.Scan(ctx, h.scanURL(token), userID)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("demo scan rejected: %s", result.Code)
	}
	return nil
}

// loadFreshStart seeds the catalog and one user with no history.
func (h *Handler) loadFreshStart(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	if _, err := h.seedCatalog(ctx); err != nil {
		return err
	}
	return h.Store.SaveUser(ctx, sqlite.User{ID: "installer-1", Name: "Dana Willems", Phone: "+31 6 1234 5678"})
}

// loadDuplicateRace seeds a code already consumed by another installer,
// so scanning the "valve" token as installer-2 reports DUPLICATE_SCAN.
func (h *Handler) loadDuplicateRace(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	tokens, err := h.seedCatalog(ctx)
	if err != nil {
		return err
	}

	if err := h.Store.SaveUser(ctx, sqlite.User{ID: "installer-1", Name: "Dana Willems"}); err != nil {
		return err
	}
	if err := h.Store.SaveUser(ctx, sqlite.User{ID: "installer-2", Name: "Rik de Boer"}); err != nil {
		return err
	}

	// installer-1 gets the valve; a second scan of it by anyone now fails
	return h.replayScan(ctx, tokens["valve"], "installer-1")
}

// loadRedemptionShort leaves installer-1 at 50 points, just below the
// 100-point coffee card.
func (h *Handler) loadRedemptionShort(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	tokens, err := h.seedCatalog(ctx)
	if err != nil {
		return err
	}

	if err := h.Store.SaveUser(ctx, sqlite.User{ID: "installer-1", Name: "Dana Willems"}); err != nil {
		return err
	}
	return h.replayScan(ctx, tokens["valve"], "installer-1")
}

// loadBadgeHunter replays a season of installations so installer-1 holds
// the installation and point badges.
func (h *Handler) loadBadgeHunter(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	if _, err := h.seedCatalog(ctx); err != nil {
		return err
	}

	if err := h.Store.SaveUser(ctx, sqlite.User{ID: "installer-1", Name: "Dana Willems"}); err != nil {
		return err
	}

	// Ten fresh thermostats (1000 points): first-install, ten-installs,
	// point-collector, and level-three all land.
	for i := 0; i < 10; i++ {
		token := ledger.ScanToken(uuid.NewString())
		err := h.Store.SaveProduct(ctx, ledger.Product{
			Token:      token,
			Name:       fmt.Sprintf("Smart Thermostat TS-200 #%d", i+1),
			PointValue: 100,
			Active:     true,
		})
		if err != nil {
			return err
		}
		if err := h.replayScan(ctx, token, "installer-1"); err != nil {
			return err
		}
	}
	return nil
}
