/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Amount/date validation is the engine's job (billing.ValidatePayment);
  handlers only parse and translate errors. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/rent-ledger/arrears"
	"github.com/warp/rent-ledger/billing"
	"github.com/warp/rent-ledger/commission"
	"github.com/warp/rent-ledger/servicecharge"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RecordPaymentRequest submits one payment against an account.
type RecordPaymentRequest struct {
	Amount       float64 `json:"amount"`
	Type         string  `json:"type"`
	Date         string  `json:"date"`
	RentForMonth string  `json:"rent_for_month,omitempty"`
}

// AccountDTO is the billing state returned after mutations.
type AccountDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	ResidentType     string `json:"resident_type"`
	DueBalance       string `json:"due_balance"`
	AccountBalance   string `json:"account_balance"`
	PaymentStatus    string `json:"payment_status"`
	LastBilledPeriod string `json:"last_billed_period,omitempty"`
	LastPaymentDate  string `json:"last_payment_date,omitempty"`
}

// PaymentDTO is a persisted payment record.
type PaymentDTO struct {
	ID           string `json:"id"`
	AccountID    string `json:"account_id"`
	Amount       string `json:"amount"`
	Type         string `json:"type"`
	Date         string `json:"date"`
	RentForMonth string `json:"rent_for_month,omitempty"`
	Status       string `json:"status,omitempty"`
}

// LedgerEntryDTO is one statement line.
type LedgerEntryDTO struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Charge      string `json:"charge,omitempty"`
	Payment     string `json:"payment,omitempty"`
	Balance     string `json:"balance"`
	ForMonth    string `json:"for_month,omitempty"`
}

// LedgerDTO is a reconstructed statement.
type LedgerDTO struct {
	Entries        []LedgerEntryDTO `json:"entries"`
	DueBalance     string           `json:"due_balance"`
	AccountBalance string           `json:"account_balance"`
}

// ReconcileResponse reports a reconciliation run.
type ReconcileResponse struct {
	Account       AccountDTO `json:"account"`
	MonthsAccrued int        `json:"months_accrued"`
	ChargeAccrued string     `json:"charge_accrued"`
	Mutated       bool       `json:"mutated"`
}

// ArrearsRowDTO is one row of the tenant arrears report.
type ArrearsRowDTO struct {
	AccountID    string `json:"account_id"`
	Name         string `json:"name,omitempty"`
	RentArrears  string `json:"rent_arrears"`
	PendingWater string `json:"pending_water"`
}

// LandlordArrearsDTO is the per-landlord exposure breakdown.
type LandlordArrearsDTO struct {
	LandlordID      string                   `json:"landlord_id"`
	Units           []LandlordArrearsUnitDTO `json:"units"`
	TotalDeductions string                   `json:"total_deductions"`
}

type LandlordArrearsUnitDTO struct {
	UnitName            string `json:"unit_name"`
	OccupantID          string `json:"occupant_id,omitempty"`
	TenantArrears       string `json:"tenant_arrears"`
	VacantServiceCharge string `json:"vacant_service_charge"`
}

// StatementDTO is the landlord commission statement.
type StatementDTO struct {
	LandlordID string            `json:"landlord_id"`
	UnitName   string            `json:"unit_name"`
	Rows       []StatementRowDTO `json:"rows"`

	TotalGross         string `json:"total_gross"`
	TotalServiceCharge string `json:"total_service_charge"`
	TotalFees          string `json:"total_fees"`
	TotalNet           string `json:"total_net"`
}

type StatementRowDTO struct {
	PaymentID     string `json:"payment_id"`
	PaymentDate   string `json:"payment_date"`
	ForMonth      string `json:"for_month"`
	Gross         string `json:"gross"`
	ServiceCharge string `json:"service_charge_deduction"`
	ManagementFee string `json:"management_fee"`
	NetToLandlord string `json:"net_to_landlord"`
}

// ServiceChargeGroupDTO is one owner group of the service-charge report.
type ServiceChargeGroupDTO struct {
	OwnerID      string                 `json:"owner_id"`
	Status       string                 `json:"status"`
	TotalArrears string                 `json:"total_arrears"`
	Units        []ServiceChargeUnitDTO `json:"units"`
}

type ServiceChargeUnitDTO struct {
	UnitName string   `json:"unit_name"`
	Status   string   `json:"status"`
	Charge   string   `json:"charge"`
	Arrears  string   `json:"arrears"`
	Unpaid   []string `json:"unpaid_months,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toAccountDTO(a billing.Account) AccountDTO {
	dto := AccountDTO{
		ID:             a.ID,
		Name:           a.Name,
		ResidentType:   string(a.ResidentType),
		DueBalance:     a.DueBalance.String(),
		AccountBalance: a.AccountBalance.String(),
		PaymentStatus:  string(a.Lease.PaymentStatus),
	}
	if !a.Lease.LastBilledPeriod.IsZero() {
		dto.LastBilledPeriod = a.Lease.LastBilledPeriod.String()
	}
	if !a.Lease.LastPaymentDate.IsZero() {
		dto.LastPaymentDate = a.Lease.LastPaymentDate.String()
	}
	return dto
}

func toPaymentDTO(p billing.Payment) PaymentDTO {
	return PaymentDTO{
		ID:           p.ID,
		AccountID:    p.TenantID,
		Amount:       p.Amount.String(),
		Type:         string(p.Type),
		Date:         p.Date.String(),
		RentForMonth: p.RentForMonth.String(),
		Status:       p.Status,
	}
}

func toLedgerDTO(result billing.LedgerResult) LedgerDTO {
	dto := LedgerDTO{
		Entries:        make([]LedgerEntryDTO, 0, len(result.Entries)),
		DueBalance:     result.DueBalance.String(),
		AccountBalance: result.AccountBalance.String(),
	}
	for _, e := range result.Entries {
		entry := LedgerEntryDTO{
			Date:        e.Date.String(),
			Description: e.Description,
			Balance:     e.Balance.String(),
			ForMonth:    e.ForMonth.String(),
		}
		if e.Charge.IsPositive() {
			entry.Charge = e.Charge.String()
		}
		if e.Payment.IsPositive() {
			entry.Payment = e.Payment.String()
		}
		dto.Entries = append(dto.Entries, entry)
	}
	return dto
}

func toArrearsDTOs(rows []arrears.TenantArrears) []ArrearsRowDTO {
	dtos := make([]ArrearsRowDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, ArrearsRowDTO{
			AccountID:    row.Account.ID,
			Name:         row.Account.Name,
			RentArrears:  row.RentArrears.String(),
			PendingWater: row.PendingWater.String(),
		})
	}
	return dtos
}

func toLandlordArrearsDTO(b arrears.LandlordBreakdown) LandlordArrearsDTO {
	dto := LandlordArrearsDTO{
		LandlordID:      b.LandlordID,
		TotalDeductions: b.TotalDeductions.String(),
	}
	for _, u := range b.Units {
		unit := LandlordArrearsUnitDTO{
			UnitName:            u.Unit.Name,
			TenantArrears:       u.TenantArrears.String(),
			VacantServiceCharge: u.VacantServiceCharge.String(),
		}
		if u.Occupant != nil {
			unit.OccupantID = u.Occupant.ID
		}
		dto.Units = append(dto.Units, unit)
	}
	return dto
}

func toStatementDTO(st commission.Statement) StatementDTO {
	dto := StatementDTO{
		LandlordID:         st.LandlordID,
		UnitName:           st.UnitName,
		TotalGross:         st.TotalGross.String(),
		TotalServiceCharge: st.TotalServiceCharge.String(),
		TotalFees:          st.TotalFees.String(),
		TotalNet:           st.TotalNet.String(),
	}
	for _, row := range st.Rows {
		dto.Rows = append(dto.Rows, StatementRowDTO{
			PaymentID:     row.PaymentID,
			PaymentDate:   row.PaymentDate.String(),
			ForMonth:      row.ForMonth.String(),
			Gross:         row.Gross.String(),
			ServiceCharge: row.ServiceChargeDeduction.String(),
			ManagementFee: row.ManagementFee.String(),
			NetToLandlord: row.NetToLandlord.String(),
		})
	}
	return dto
}

func toServiceChargeGroupDTOs(groups []servicecharge.OwnerGroup) []ServiceChargeGroupDTO {
	dtos := make([]ServiceChargeGroupDTO, 0, len(groups))
	for _, g := range groups {
		dto := ServiceChargeGroupDTO{
			OwnerID:      g.OwnerID,
			Status:       string(g.Status),
			TotalArrears: g.TotalArrears.String(),
		}
		for _, u := range g.Units {
			unit := ServiceChargeUnitDTO{
				UnitName: u.Unit.Name,
				Status:   string(u.Status),
				Charge:   u.Charge.String(),
				Arrears:  u.Arrears.String(),
			}
			for _, m := range u.UnpaidMonths {
				unit.Unpaid = append(unit.Unpaid, m.String())
			}
			dto.Units = append(dto.Units, unit)
		}
		dtos = append(dtos, dto)
	}
	return dtos
}
