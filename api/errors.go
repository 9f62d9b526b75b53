/*
errors.go - Domain error to HTTP mapping

PURPOSE:
  Centralizes the translation of domain errors and rejection codes into
  HTTP status codes and JSON error bodies, so every handler reports the
  same failure the same way.

STATUS MAPPING:
  400  Malformed input (bad JSON, bad code format, invalid UUID)
  402  Insufficient balance (payment-required, loyalty flavor)
  404  Unknown product, reward, or user
  409  Duplicate scan, inactive product
  500  Infrastructure failures and ledger corruption

LEDGER CORRUPTION:
  A negative derived balance means the append path was bypassed. It maps
  to 500 with code LEDGER_CORRUPT and must page an operator; it is never
  presented as a client mistake.

SEE ALSO:
  - handlers.go: Calls these helpers
  - ledger/errors.go: The domain error taxonomy
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/fieldloop/rewards-engine/ledger"
	"github.com/fieldloop/rewards-engine/scan"
)

// Codes surfaced by this layer on top of the scan rejection codes.
const (
	codeInsufficientBalance = "INSUFFICIENT_BALANCE"
	codeUnknownReward       = "UNKNOWN_REWARD"
	codeLedgerCorrupt       = "LEDGER_CORRUPT"
)

// scanStatus maps a scan rejection code to an HTTP status.
func scanStatus(code string) int {
	switch code {
	case scan.CodeInvalidFormat, scan.CodeInvalidUUID:
		return http.StatusBadRequest
	case scan.CodeUnknownProduct:
		return http.StatusNotFound
	case scan.CodeInactiveProduct, scan.CodeDuplicateScan:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError reports a domain error a handler did not map to a more
// specific response. Consistency violations must never be mistaken for
// client faults; business rejections must never be reported as 500s.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsConsistencyViolation(err):
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:     "Ledger consistency violation, operator attention required",
			ErrorCode: codeLedgerCorrupt,
			Details:   err.Error(),
		})
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
