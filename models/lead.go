package models

import (
	"encoding/json"
	"strconv"
)

// BusinessTypePackage marks a submission as a package order.
const BusinessTypePackage = "package"

// DefaultPaymentStatus is written for package orders that carry no status.
const DefaultPaymentStatus = "Pending Payment"

// Router action discriminants.
const (
	ActionCreateCheckout = "createStripeCheckout"
	ActionVerifyPayment  = "verifyStripePayment"
)

// Amount is an optional amount in major currency units. The zero value is unset.
type Amount struct {
	Value float64
	Valid bool
}

// NewAmount returns a set Amount.
func NewAmount(v float64) Amount {
	return Amount{Value: v, Valid: true}
}

// Cell renders the amount for a table cell: the number, or "" when unset.
func (a Amount) Cell() any {
	if !a.Valid {
		return ""
	}
	return a.Value
}

func (a Amount) String() string {
	if !a.Valid {
		return ""
	}
	return strconv.FormatFloat(a.Value, 'f', -1, 64)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte(`""`), nil
	}
	return json.Marshal(a.Value)
}

// LeadRecord is one normalised inbound submission. Every string field is
// empty rather than missing when the payload did not carry it.
type LeadRecord struct {
	BusinessName string `json:"businessName"`
	BusinessType string `json:"businessType"`
	ContactName  string `json:"contactName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	LineID       string `json:"lineId"`
	Timestamp    string `json:"timestamp"`

	Action    string `json:"action,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Currency  string `json:"currency,omitempty"`

	Package        string `json:"package"`
	PackageName    string `json:"packageName"`
	PackagePrice   Amount `json:"packagePrice"`
	Amount         Amount `json:"amount"`
	VerifiedAmount Amount `json:"verifiedAmount"`
	PaymentStatus  string `json:"paymentStatus"`
	Requirements   string `json:"requirements"`
	AdditionalInfo string `json:"additionalInfo"`
	SuccessURL     string `json:"successUrl,omitempty"`
	CancelURL      string `json:"cancelUrl,omitempty"`
}

// IsPackage reports whether the record is a package order: either the
// business type is "package" or a package code is present.
func (r LeadRecord) IsPackage() bool {
	return r.BusinessType == BusinessTypePackage || r.Package != ""
}

// Kind names the ingestion branch the record takes.
func (r LeadRecord) Kind() string {
	switch {
	case r.Action == ActionCreateCheckout:
		return "checkout"
	case r.Action == ActionVerifyPayment:
		return "verify"
	case r.IsPackage():
		return "package"
	default:
		return "lead"
	}
}

// EffectivePaymentStatus applies the package default.
func (r LeadRecord) EffectivePaymentStatus() string {
	if r.PaymentStatus != "" {
		return r.PaymentStatus
	}
	return DefaultPaymentStatus
}

// Price is the package price, falling back to the checkout amount.
func (r LeadRecord) Price() Amount {
	if r.PackagePrice.Valid {
		return r.PackagePrice
	}
	return r.Amount
}

// IngestResponse is the single JSON object every router call answers with.
type IngestResponse struct {
	Success               bool   `json:"success"`
	Message               string `json:"message,omitempty"`
	Row                   int    `json:"row,omitempty"`
	TemplateSpreadsheetID string `json:"templateSpreadsheetId,omitempty"`
	TemplateURL           string `json:"templateUrl,omitempty"`
	Error                 string `json:"error,omitempty"`
}

// HealthResponse answers read-only GET requests.
type HealthResponse struct {
	Message       string `json:"message"`
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	SpreadsheetID string `json:"spreadsheetId"`
}

// PaymentErrorResponse answers a failed checkout or verification. Paid is
// only set for verification failures.
type PaymentErrorResponse struct {
	Success bool   `json:"success"`
	Paid    *bool  `json:"paid,omitempty"`
	Error   string `json:"error"`
}
