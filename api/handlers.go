/*
handlers.go - HTTP API handlers for the rent ledger

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                      List all accounts
    GET    /api/accounts/{id}                 Get account billing state
    GET    /api/accounts/{id}/payments        Payment history
    POST   /api/accounts/{id}/payments        Record one or more payments
    POST   /api/accounts/{id}/reconcile       Advance billing to today
    GET    /api/accounts/{id}/ledger          Reconstructed statement
    GET    /api/accounts/{id}/verify          Drift check vs reconstruction
    POST   /api/accounts/{id}/repair          Overwrite balances from ledger

  Reports:
    GET    /api/reports/arrears               Tenants in arrears
    GET    /api/reports/service-charge        Per-owner service-charge status
    GET    /api/landlords/{id}/arrears        Per-unit landlord exposure
    GET    /api/landlords/{id}/statement      Commission statement for a unit

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Account or unit not found
  - 409: Duplicate payment id
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/rent-ledger/arrears"
	"github.com/warp/rent-ledger/billing"
	"github.com/warp/rent-ledger/commission"
	"github.com/warp/rent-ledger/servicecharge"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  billing.QueryRepository
	Engine *billing.Engine

	now billing.Clock
}

// NewHandler creates a new handler over the given store and engine.
func NewHandler(store billing.QueryRepository, engine *billing.Engine) *Handler {
	return &Handler{Store: store, Engine: engine, now: billing.SystemClock}
}

// WithClock overrides the handler clock (tests).
func (h *Handler) WithClock(clock billing.Clock) *Handler {
	h.now = clock
	return h
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns every non-archived account.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.Accounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAccount returns one account's billing state.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.Store.Account(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// GetPayments returns the account's payment history, chronologically.
func (h *Handler) GetPayments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.Account(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	payments, err := h.Store.PaymentHistory(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load payment history", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayments records a batch of payments against one account. The
// batch either lands atomically or not at all.
func (h *Handler) RecordPayments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body []RecordPaymentRequest
	if err := decodePaymentBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	reqs := make([]billing.PaymentRequest, 0, len(body))
	for _, item := range body {
		req, err := parsePaymentRequest(item)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid payment", err)
			return
		}
		reqs = append(reqs, req)
	}

	payments, account, err := h.Engine.RecordPayments(r.Context(), id, reqs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusCreated, struct {
		Payments []PaymentDTO `json:"payments"`
		Account  AccountDTO   `json:"account"`
	}{dtos, toAccountDTO(account)})
}

// decodePaymentBody accepts either a single payment object or an array.
func decodePaymentBody(r *http.Request, out *[]RecordPaymentRequest) error {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return err
	}
	if len(raw) > 0 && raw[0] == '[' {
		return json.Unmarshal(raw, out)
	}
	var single RecordPaymentRequest
	if err := json.Unmarshal(raw, &single); err != nil {
		return err
	}
	*out = []RecordPaymentRequest{single}
	return nil
}

func parsePaymentRequest(in RecordPaymentRequest) (billing.PaymentRequest, error) {
	date, err := billing.ParseDate(in.Date)
	if err != nil {
		return billing.PaymentRequest{}, err
	}
	month, err := billing.ParseMonth(in.RentForMonth)
	if err != nil {
		return billing.PaymentRequest{}, err
	}
	return billing.PaymentRequest{
		Amount:       billing.NewMoneyFromFloat(in.Amount),
		Type:         billing.PaymentType(in.Type),
		Date:         date,
		RentForMonth: month,
	}, nil
}

// ReconcileAccount advances the account's billing to today (or to an
// explicit as_of date). Idempotent within a month.
func (h *Handler) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	account, result, err := h.Engine.ReconcileAccount(r.Context(), chi.URLParam(r, "id"), asOf)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReconcileResponse{
		Account:       toAccountDTO(account),
		MonthsAccrued: result.MonthsAccrued,
		ChargeAccrued: result.ChargeAccrued.String(),
		Mutated:       result.Mutated,
	})
}

// GetLedger returns the reconstructed statement. ?categories=all includes
// water lines; the default matches the live balance categories.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	opts := billing.AllCategories()
	if r.URL.Query().Get("categories") != "all" {
		account, err := h.Store.Account(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		opts = billing.LedgerOptions{
			IncludeRent:          account.ResidentType != billing.ResidentHomeowner,
			IncludeServiceCharge: account.ResidentType == billing.ResidentHomeowner,
		}
	}

	result, err := h.Engine.Statement(r.Context(), id, asOf, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(result))
}

// VerifyAccount checks the live balances against a reconstruction.
func (h *Handler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	err = h.Engine.VerifyAccount(r.Context(), chi.URLParam(r, "id"), asOf)
	var drift *billing.InconsistentStateError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, struct {
			Consistent bool `json:"consistent"`
		}{true})
	case errors.As(err, &drift):
		writeJSON(w, http.StatusOK, struct {
			Consistent          bool   `json:"consistent"`
			StoredDue           string `json:"stored_due"`
			ReconstructedDue    string `json:"reconstructed_due"`
			StoredCredit        string `json:"stored_credit"`
			ReconstructedCredit string `json:"reconstructed_credit"`
		}{false, drift.StoredDue.String(), drift.ReconstructedDue.String(),
			drift.StoredCredit.String(), drift.ReconstructedCredit.String()})
	default:
		writeDomainError(w, err)
	}
}

// RepairAccount overwrites the live balances with the reconstruction.
func (h *Handler) RepairAccount(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	account, err := h.Engine.RepairAccount(r.Context(), chi.URLParam(r, "id"), asOf)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// ArrearsReport returns every account with positive rent-only arrears,
// largest first.
func (h *Handler) ArrearsReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accounts, err := h.Store.Accounts(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	var readings []billing.WaterMeterReading
	for _, a := range accounts {
		rs, err := h.Store.WaterReadings(ctx, a.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load water readings", err)
			return
		}
		readings = append(readings, rs...)
	}

	writeJSON(w, http.StatusOK, toArrearsDTOs(arrears.TenantsInArrears(accounts, readings)))
}

// LandlordArrears returns the per-unit exposure for one landlord.
func (h *Handler) LandlordArrears(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	landlordID := chi.URLParam(r, "id")

	units, err := h.Store.UnitsByLandlord(ctx, landlordID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list units", err)
		return
	}

	occupants := make(map[string]*billing.Account)
	var readings []billing.WaterMeterReading
	for _, u := range units {
		occupant, err := h.Store.AccountForUnit(ctx, u.PropertyID, u.Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to resolve occupant", err)
			return
		}
		if occupant == nil {
			continue
		}
		occupants[u.Name] = occupant
		rs, err := h.Store.WaterReadings(ctx, occupant.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load water readings", err)
			return
		}
		readings = append(readings, rs...)
	}

	breakdown := arrears.BreakdownForLandlord(landlordID, units, occupants, readings)
	writeJSON(w, http.StatusOK, toLandlordArrearsDTO(breakdown))
}

// LandlordStatement returns the commission statement for one of the
// landlord's units (?property=...&unit=...).
func (h *Handler) LandlordStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	propertyID := r.URL.Query().Get("property")
	unitName := r.URL.Query().Get("unit")
	if propertyID == "" || unitName == "" {
		writeError(w, http.StatusBadRequest, "property and unit query parameters are required", nil)
		return
	}

	unit, err := h.Store.Unit(ctx, propertyID, unitName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve unit", err)
		return
	}
	if unit == nil {
		writeError(w, http.StatusNotFound, "Unit not found", nil)
		return
	}

	occupant, err := h.Store.AccountForUnit(ctx, propertyID, unitName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve occupant", err)
		return
	}
	if occupant == nil {
		// Vacant unit: empty statement.
		writeJSON(w, http.StatusOK, toStatementDTO(commission.BuildStatement(billing.Account{}, *unit, nil)))
		return
	}

	payments, err := h.Store.PaymentHistory(ctx, occupant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load payment history", err)
		return
	}

	writeJSON(w, http.StatusOK, toStatementDTO(commission.BuildStatement(*occupant, *unit, payments)))
}

// ServiceChargeReport returns the per-owner service-charge status for one
// month (?month=YYYY-MM, default current month).
func (h *Handler) ServiceChargeReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	month := h.now().Month()
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := billing.ParseMonth(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
			return
		}
		month = parsed
	}

	units, err := h.Store.Units(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list units", err)
		return
	}

	inputs := make([]servicecharge.UnitInput, 0, len(units))
	for _, u := range units {
		occupant, err := h.Store.AccountForUnit(ctx, u.PropertyID, u.Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to resolve occupant", err)
			return
		}

		// The charge is billed to the occupant when rented, otherwise to
		// the owner directly.
		payerID := u.LandlordID
		if occupant != nil {
			payerID = occupant.ID
		}
		payments, err := h.Store.PaymentHistory(ctx, payerID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load payment history", err)
			return
		}

		inputs = append(inputs, servicecharge.UnitInput{
			Unit:     u,
			OwnerID:  u.LandlordID,
			Occupied: occupant != nil,
			Payments: payments,
		})
	}

	rows := servicecharge.BuildReport(inputs, month)
	writeJSON(w, http.StatusOK, toServiceChargeGroupDTOs(servicecharge.GroupByOwner(rows)))
}

// =============================================================================
// HELPERS
// =============================================================================

// asOf reads the optional as_of query parameter, defaulting to today.
func (h *Handler) asOf(r *http.Request) (billing.Date, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return h.now(), nil
	}
	return billing.ParseDate(raw)
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, billing.ErrDuplicatePayment):
		writeError(w, http.StatusConflict, "Duplicate payment", err)
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
