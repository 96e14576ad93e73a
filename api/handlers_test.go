package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-ledger/api"
	"github.com/warp/rent-ledger/billing"
	"github.com/warp/rent-ledger/billing/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T, today billing.Date) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	clock := func() billing.Date { return today }
	engine := billing.NewEngine(mem, nil).WithClock(clock)
	handler := api.NewHandler(mem, engine).WithClock(clock)

	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, mem
}

func seedTenant(mem *store.Memory) {
	mem.PutAccount(billing.Account{
		ID:           "t-1",
		Name:         "Test Tenant",
		ResidentType: billing.ResidentTenant,
		Lease: billing.Lease{
			StartDate:        billing.NewDate(2025, time.January, 1),
			Rent:             billing.NewMoney(20_000),
			PaymentStatus:    billing.StatusPending,
			LastBilledPeriod: billing.MonthOf(2025, time.January),
		},
		DueBalance: billing.NewMoney(20_000),
		PropertyID: "prop-1",
		UnitName:   "A1",
	})
	mem.PutUnit(billing.Unit{
		Name:       "A1",
		PropertyID: "prop-1",
		RentAmount: billing.NewMoney(20_000),
		LandlordID: "ll-1",
	})
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body interface{}, out interface{}) int {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// =============================================================================
// PAYMENT ENDPOINT TESTS
// =============================================================================

func TestAPI_RecordPayment_UpdatesAccount(t *testing.T) {
	srv, mem := newTestServer(t, billing.NewDate(2025, time.January, 10))
	seedTenant(mem)

	var result struct {
		Payments []api.PaymentDTO `json:"payments"`
		Account  api.AccountDTO   `json:"account"`
	}
	status := postJSON(t, srv, "/api/accounts/t-1/payments", api.RecordPaymentRequest{
		Amount: 25_000,
		Type:   "Rent",
		Date:   "2025-01-10",
	}, &result)

	assert.Equal(t, http.StatusCreated, status)
	require.Len(t, result.Payments, 1)
	assert.Equal(t, "0", result.Account.DueBalance)
	assert.Equal(t, "5000", result.Account.AccountBalance)
	assert.Equal(t, "Paid", result.Account.PaymentStatus)
}

func TestAPI_RecordPayment_ValidationMapsTo400(t *testing.T) {
	today := billing.NewDate(2025, time.January, 10)
	srv, mem := newTestServer(t, today)
	seedTenant(mem)

	var errResp api.ErrorResponse
	status := postJSON(t, srv, "/api/accounts/t-1/payments", api.RecordPaymentRequest{
		Amount: -5,
		Type:   "Rent",
		Date:   "2025-01-10",
	}, &errResp)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, errResp.Error)
}

func TestAPI_RecordPayment_UnknownAccountMapsTo404(t *testing.T) {
	srv, _ := newTestServer(t, billing.NewDate(2025, time.January, 10))

	status := postJSON(t, srv, "/api/accounts/nobody/payments", api.RecordPaymentRequest{
		Amount: 1_000,
		Type:   "Rent",
		Date:   "2025-01-10",
	}, nil)

	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_RecordPayment_AcceptsBatchArray(t *testing.T) {
	today := billing.NewDate(2025, time.January, 10)
	srv, mem := newTestServer(t, today)
	seedTenant(mem)

	var result struct {
		Payments []api.PaymentDTO `json:"payments"`
		Account  api.AccountDTO   `json:"account"`
	}
	status := postJSON(t, srv, "/api/accounts/t-1/payments", []api.RecordPaymentRequest{
		{Amount: 10_000, Type: "Rent", Date: "2025-01-10"},
		{Amount: 10_000, Type: "Rent", Date: "2025-01-10"},
	}, &result)

	assert.Equal(t, http.StatusCreated, status)
	assert.Len(t, result.Payments, 2)
	assert.Equal(t, "0", result.Account.DueBalance)
}

// =============================================================================
// RECONCILE AND LEDGER ENDPOINT TESTS
// =============================================================================

func TestAPI_Reconcile_AccruesToToday(t *testing.T) {
	today := billing.NewDate(2025, time.March, 10)
	srv, mem := newTestServer(t, today)
	seedTenant(mem)

	var result api.ReconcileResponse
	status := postJSON(t, srv, "/api/accounts/t-1/reconcile", struct{}{}, &result)

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, result.Mutated)
	assert.Equal(t, 2, result.MonthsAccrued)
	assert.Equal(t, "60000", result.Account.DueBalance)
	assert.Equal(t, "2025-03", result.Account.LastBilledPeriod)
}

func TestAPI_Ledger_ReturnsEntries(t *testing.T) {
	today := billing.NewDate(2025, time.February, 15)
	srv, mem := newTestServer(t, today)
	seedTenant(mem)

	var ledger api.LedgerDTO
	status := getJSON(t, srv, "/api/accounts/t-1/ledger", &ledger)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, ledger.Entries, 2) // Jan + Feb rent lines
	assert.Equal(t, "40000", ledger.DueBalance)
}

func TestAPI_VerifyAndRepair(t *testing.T) {
	today := billing.NewDate(2025, time.January, 20)
	srv, mem := newTestServer(t, today)
	seedTenant(mem)

	// Drift the stored balance.
	ctx := context.Background()
	account, err := mem.Account(ctx, "t-1")
	require.NoError(t, err)
	account.DueBalance = billing.NewMoney(99_000)
	require.NoError(t, mem.SaveAccount(ctx, account))

	var verify struct {
		Consistent       bool   `json:"consistent"`
		ReconstructedDue string `json:"reconstructed_due"`
	}
	status := getJSON(t, srv, "/api/accounts/t-1/verify", &verify)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, verify.Consistent)
	assert.Equal(t, "20000", verify.ReconstructedDue)

	var repaired api.AccountDTO
	status = postJSON(t, srv, "/api/accounts/t-1/repair", struct{}{}, &repaired)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "20000", repaired.DueBalance)

	status = getJSON(t, srv, "/api/accounts/t-1/verify", &verify)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, verify.Consistent)
}

// =============================================================================
// REPORT ENDPOINT TESTS
// =============================================================================

func TestAPI_ArrearsReport(t *testing.T) {
	today := billing.NewDate(2025, time.January, 20)
	srv, mem := newTestServer(t, today)
	seedTenant(mem)
	mem.PutWaterReading(billing.WaterMeterReading{
		ID: "w-1", TenantID: "t-1", Amount: billing.NewMoney(5_000),
		Date: billing.NewDate(2025, time.January, 15), Status: billing.WaterPending,
	})

	var rows []api.ArrearsRowDTO
	status := getJSON(t, srv, "/api/reports/arrears", &rows)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, rows, 1)
	assert.Equal(t, "t-1", rows[0].AccountID)
	assert.Equal(t, "15000", rows[0].RentArrears)
	assert.Equal(t, "5000", rows[0].PendingWater)
}

func TestAPI_LandlordArrears(t *testing.T) {
	today := billing.NewDate(2025, time.January, 20)
	srv, mem := newTestServer(t, today)
	seedTenant(mem)

	var breakdown api.LandlordArrearsDTO
	status := getJSON(t, srv, "/api/landlords/ll-1/arrears", &breakdown)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ll-1", breakdown.LandlordID)
	require.Len(t, breakdown.Units, 1)
	assert.Equal(t, "t-1", breakdown.Units[0].OccupantID)
	assert.Equal(t, "20000", breakdown.Units[0].TenantArrears)
}

func TestAPI_LandlordStatement_RequiresUnitParams(t *testing.T) {
	srv, _ := newTestServer(t, billing.NewDate(2025, time.January, 20))

	status := getJSON(t, srv, "/api/landlords/ll-1/statement", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_ServiceChargeReport(t *testing.T) {
	today := billing.NewDate(2025, time.June, 20)
	srv, mem := newTestServer(t, today)
	mem.PutUnit(billing.Unit{
		Name:             "B1",
		PropertyID:       "prop-1",
		ServiceCharge:    billing.NewMoney(2_500),
		HandoverDate:     billing.NewDate(2025, time.January, 5),
		HandoverStatus:   billing.HandedOver,
		ManagementStatus: billing.ManagedClientManaged,
		LandlordID:       "ll-2",
	})

	var groups []api.ServiceChargeGroupDTO
	status := getJSON(t, srv, "/api/reports/service-charge?month=2025-04", &groups)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, groups, 1)
	assert.Equal(t, "ll-2", groups[0].OwnerID)
	assert.Equal(t, "Pending", groups[0].Status)
	require.Len(t, groups[0].Units, 1)
	assert.Equal(t, "7500", groups[0].Units[0].Arrears) // Feb-Apr unpaid
}
