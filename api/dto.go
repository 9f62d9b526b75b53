/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

OUTCOME ENVELOPE:
  Scan and redemption responses always carry a "success" boolean. Business
  rejections (duplicate scan, insufficient balance, unknown reward) are
  well-formed responses with success=false and a machine-readable
  errorCode, NOT transport errors. Clients branch on errorCode, never on
  message text.

VALIDATION:
  Validation is done in handlers and domain logic, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - errors.go: Error code and status mapping
*/
package api

// =============================================================================
// SCAN TYPES
// =============================================================================

// ScanRequest is the request to submit a scanned code.
type ScanRequest struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// ScanResponse is the outcome of a scan attempt.
type ScanResponse struct {
	Success bool `json:"success"`

	// Success payload
	ProductName       string   `json:"productName,omitempty"`
	PointsAwarded     int64    `json:"pointsAwarded,omitempty"`
	NewBalance        int64    `json:"newBalance,omitempty"`
	NewlyEarnedBadges []string `json:"newlyEarnedBadges,omitempty"`

	// Rejection payload
	ErrorCode string           `json:"errorCode,omitempty"`
	Message   string           `json:"message,omitempty"`
	Details   *DuplicateDetail `json:"details,omitempty"`
}

// DuplicateDetail identifies the scan that consumed a token first.
type DuplicateDetail struct {
	ScannedBy       string `json:"scannedBy"`
	ScannedAt       string `json:"scannedAt"`
	AlreadyCredited bool   `json:"alreadyCredited"`
}

// =============================================================================
// REDEMPTION TYPES
// =============================================================================

// RedemptionRequest is the request to redeem a reward.
type RedemptionRequest struct {
	UserID   string `json:"userId"`
	RewardID string `json:"rewardId"`
}

// RedemptionResponse is the outcome of a redemption attempt.
type RedemptionResponse struct {
	Success     bool            `json:"success"`
	Transaction *TransactionDTO `json:"transaction,omitempty"`
	NewBalance  int64           `json:"newBalance,omitempty"`

	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
	Available int64  `json:"available,omitempty"`
	Shortfall int64  `json:"shortfall,omitempty"`
}

// =============================================================================
// LEDGER TYPES
// =============================================================================

// TransactionDTO represents one ledger entry in API responses.
type TransactionDTO struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	RelatedEntity string `json:"relatedEntity,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

// HistoryResponse is a page of a user's transactions, newest first.
type HistoryResponse struct {
	UserID       string           `json:"userId"`
	Transactions []TransactionDTO `json:"transactions"`
	Offset       int              `json:"offset"`
	Limit        int              `json:"limit"`
}

// =============================================================================
// ACHIEVEMENT TYPES
// =============================================================================

// BadgeDTO is a badge definition plus the caller's earned flag.
type BadgeDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	RequiredPoints   int64  `json:"requiredPoints"`
	MinInstallations int64  `json:"minInstallations"`
	MinLevel         int    `json:"minLevel"`
	Earned           bool   `json:"earned"`
}

// AchievementsDTO is everything the achievements screen shows.
type AchievementsDTO struct {
	UserID            string     `json:"userId"`
	Balance           int64      `json:"balance"`
	Level             int        `json:"level"`
	ProgressPercent   string     `json:"progressPercent"`
	PointsToNextLevel int64      `json:"pointsToNextLevel"`
	Badges            []BadgeDTO `json:"badges"`
}

// StatsDTO carries dashboard statistics. Monthly figures are display
// data only; badge eligibility always uses all-time counts.
type StatsDTO struct {
	UserID                 string `json:"userId"`
	Month                  string `json:"month"`
	InstallationsThisMonth int64  `json:"installationsThisMonth"`
	InstallationsAllTime   int64  `json:"installationsAllTime"`
	PointsThisMonth        int64  `json:"pointsThisMonth"`
	Balance                int64  `json:"balance"`
	Level                  int    `json:"level"`
}

// =============================================================================
// CATALOG TYPES
// =============================================================================

// ProductDTO represents a product in API responses.
type ProductDTO struct {
	Token      string `json:"token"`
	Name       string `json:"name"`
	PointValue int64  `json:"pointValue"`
	Active     bool   `json:"active"`
}

// RewardDTO represents a redeemable reward.
type RewardDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Cost   int64  `json:"cost"`
	Active bool   `json:"active"`
}

// SaveProductRequest upserts a product into the catalog.
type SaveProductRequest struct {
	Token      string `json:"token"`
	Name       string `json:"name"`
	PointValue int64  `json:"pointValue"`
	Active     *bool  `json:"active,omitempty"` // nil means active
}

// SaveBadgeRequest upserts a badge definition.
type SaveBadgeRequest struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	RequiredPoints   int64  `json:"requiredPoints"`
	MinInstallations int64  `json:"minInstallations"`
	MinLevel         int    `json:"minLevel"`
}

// SaveRewardRequest upserts a reward.
type SaveRewardRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Cost   int64  `json:"cost"`
	Active *bool  `json:"active,omitempty"`
}

// =============================================================================
// USER TYPES
// =============================================================================

// UserDTO carries user display data.
type UserDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// CreateUserRequest registers a user's display data.
type CreateUserRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// TokenRequest asks for a bearer token for a user.
type TokenRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the generic transport-level error body.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode,omitempty"`
	Details   string `json:"details,omitempty"`
}
