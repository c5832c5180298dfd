package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/brojonat/solwallet/service/solana"
	"github.com/brojonat/solwallet/service/temporal"
	"github.com/brojonat/solwallet/service/wallet"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB
	maxAddressLength   = 100     // Solana addresses are 32-44 chars, give buffer
	maxActivityLimit   = 200
)

var (
	// Valid Solana address characters: base58 (no 0, O, I, l)
	validAddressRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// walletQuery returns a handler for GET /api/v1/wallets/{address}/... views.
// Upstream failures are reported inside the view, so a query only fails on
// bad input.
func walletQuery[T any](name string, query func(ctx context.Context, address string) (T, error), logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		if err := validateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		view, err := query(r.Context(), address)
		if err != nil {
			logger.Debug("wallet query rejected", "query", name, "address", address, "error", err)
			writeError(w, wallet.FriendlyError(err), http.StatusBadRequest)
			return
		}
		writeJSON(w, view, http.StatusOK)
	})
}

// handleBalance returns the SOL balance of a wallet.
// GET /api/v1/wallets/{address}/balance
func handleBalance(svc *wallet.Service, logger *slog.Logger) http.Handler {
	return walletQuery("balance", svc.Balance, logger)
}

// handleTokens returns the token holdings of a wallet.
// GET /api/v1/wallets/{address}/tokens
func handleTokens(svc *wallet.Service, logger *slog.Logger) http.Handler {
	return walletQuery("tokens", svc.Tokens, logger)
}

// handleAssets returns SOL plus token holdings as selectable assets.
// GET /api/v1/wallets/{address}/assets
func handleAssets(svc *wallet.Service, logger *slog.Logger) http.Handler {
	return walletQuery("assets", svc.Assets, logger)
}

// handleOverview returns balance and tokens together.
// GET /api/v1/wallets/{address}/overview
func handleOverview(svc *wallet.Service, logger *slog.Logger) http.Handler {
	return walletQuery("overview", svc.Overview, logger)
}

// handleTransactions returns recent transactions.
// GET /api/v1/wallets/{address}/transactions?limit={n}
func handleTransactions(svc *wallet.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseIntParam(r, "limit", 0, 1, solana.MaxHistoryLimit)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		walletQuery("transactions", func(ctx context.Context, address string) (wallet.HistoryView, error) {
			return svc.History(ctx, address, limit)
		}, logger).ServeHTTP(w, r)
	})
}

// handlePrepareTransfer assembles an unsigned transfer.
// POST /api/v1/transfers
func handlePrepareTransfer(svc *wallet.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req wallet.TransferRequest
		if !decodeBody(w, r, &req, logger) {
			return
		}

		if err := validateAddress(req.From); err != nil {
			writeError(w, "from: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := validateAddress(req.To); err != nil {
			writeError(w, "Invalid recipient address", http.StatusBadRequest)
			return
		}
		if req.Mint != "" {
			if err := validateAddress(req.Mint); err != nil {
				writeError(w, "mint: "+err.Error(), http.StatusBadRequest)
				return
			}
		}
		if req.Amount <= 0 {
			writeError(w, "amount must be greater than zero", http.StatusBadRequest)
			return
		}

		prepared, err := svc.PrepareTransfer(r.Context(), req)
		if err != nil {
			status := http.StatusBadGateway
			if isClientError(err) {
				status = http.StatusBadRequest
			} else {
				logger.Error("failed to prepare transfer", "from", req.From, "to", req.To, "error", err)
			}
			writeJSON(w, map[string]string{
				"error":  wallet.FriendlyError(err),
				"detail": err.Error(),
			}, status)
			return
		}

		writeJSON(w, prepared, http.StatusOK)
	})
}

// handleAirdrop requests devnet SOL. With Temporal configured the airdrop
// runs as a workflow and the response is 202 with its ID; otherwise the
// request waits for confirmation.
// POST /api/v1/airdrops
func handleAirdrop(svc *wallet.Service, airdrops temporal.AirdropStarter, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Address string  `json:"address"`
			SOL     float64 `json:"sol"`
		}
		if !decodeBody(w, r, &req, logger) {
			return
		}
		if err := validateAddress(req.Address); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, _, err := svc.ValidateAirdrop(req.Address, req.SOL); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if airdrops != nil {
			id, err := airdrops.StartAirdrop(r.Context(), temporal.AirdropInput{Address: req.Address, SOL: req.SOL})
			if err != nil {
				logger.Error("failed to start airdrop workflow", "address", req.Address, "error", err)
				writeError(w, "failed to start airdrop", http.StatusInternalServerError)
				return
			}
			writeJSON(w, map[string]string{
				"workflow_id": id,
				"status":      temporal.StatusRunning,
				"status_url":  "/api/v1/airdrops/" + id,
			}, http.StatusAccepted)
			return
		}

		result, err := svc.Airdrop(r.Context(), req.Address, req.SOL)
		if err != nil {
			logger.Warn("airdrop failed", "address", req.Address, "error", err)
			body := map[string]interface{}{"error": wallet.FriendlyError(err)}
			if result != nil {
				body["result"] = result
			}
			writeJSON(w, body, http.StatusBadGateway)
			return
		}
		writeJSON(w, result, http.StatusOK)
	})
}

// handleAirdropStatus reports on a durable airdrop.
// GET /api/v1/airdrops/{workflow_id}
func handleAirdropStatus(airdrops temporal.AirdropStarter, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if airdrops == nil {
			writeError(w, "durable airdrops are not configured", http.StatusNotImplemented)
			return
		}

		workflowID := r.PathValue("workflow_id")
		if workflowID == "" || len(workflowID) > 2*maxAddressLength {
			writeError(w, "invalid workflow_id", http.StatusBadRequest)
			return
		}

		status, err := airdrops.GetAirdropStatus(r.Context(), workflowID)
		if errors.Is(err, temporal.ErrAirdropNotFound) {
			writeError(w, "airdrop not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("failed to get airdrop status", "workflow_id", workflowID, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, status, http.StatusOK)
	})
}

// handleActivity lists recorded transfers and airdrops for an address.
// GET /api/v1/activity?address={address}&limit={n}&offset={n}
func handleActivity(svc *wallet.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.URL.Query().Get("address")
		if err := validateAddress(address); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		limit, err := parseIntParam(r, "limit", 50, 1, maxActivityLimit)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		offset, err := parseIntParam(r, "offset", 0, 0, 1<<30)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		activities, err := svc.Activity(r.Context(), address, int32(limit), int32(offset))
		if errors.Is(err, wallet.ErrActivityDisabled) {
			writeError(w, err.Error(), http.StatusNotImplemented)
			return
		}
		if err != nil {
			logger.Error("failed to list activity", "address", address, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]interface{}{
			"address":    address,
			"activities": activities,
			"limit":      limit,
			"offset":     offset,
		}, http.StatusOK)
	})
}

// decodeBody decodes a size-limited JSON body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, logger *slog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Debug("failed to decode request", "path", r.URL.Path, "error", err)
		if strings.Contains(err.Error(), "http: request body too large") {
			writeError(w, "request body too large: maximum size is 1MB", http.StatusBadRequest)
			return false
		}
		writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func isClientError(err error) bool {
	for _, target := range []error{
		solana.ErrInvalidAddress,
		solana.ErrInvalidAmount,
		solana.ErrAmountTooSmall,
		solana.ErrAmountTooLarge,
		wallet.ErrInsufficientBalance,
		wallet.ErrUnknownAsset,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// parseIntParam reads an optional integer query parameter within [min, max].
func parseIntParam(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errorf("invalid %s: must be an integer", name)
	}
	if v < min || v > max {
		return 0, errorf("invalid %s: must be between %d and %d", name, min, max)
	}
	return v, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}

// validateAddress validates a wallet address for security and format.
func validateAddress(address string) error {
	if address == "" {
		return errorf("address is required")
	}

	if len(address) > maxAddressLength {
		return errorf("address too long: maximum length is %d characters", maxAddressLength)
	}

	for _, r := range address {
		if r == 0 || unicode.IsControl(r) {
			return errorf("invalid characters in address: control characters not allowed")
		}
	}

	if !validAddressRegex.MatchString(address) {
		return errorf("invalid address format: must contain only valid base58 characters")
	}

	if _, err := wallet.ParseAddress(address); err != nil {
		return errorf("invalid address: not a valid public key")
	}

	return nil
}

// errorf is a helper to format error strings.
func errorf(format string, args ...interface{}) error {
	return &validationError{msg: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}
