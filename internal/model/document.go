package model

import (
	"github.com/shopspring/decimal"
)

// DocumentKind distinguishes the two supported UBL business documents
type DocumentKind string

const (
	KindInvoice    DocumentKind = "Invoice"
	KindCreditNote DocumentKind = "CreditNote"
)

// Default UNCL1001 type codes
const (
	TypeCodeInvoice    = "380"
	TypeCodeCreditNote = "381"
)

// Tax category codes (UNCL5305 subset used by EN 16931)
const (
	TaxCategoryStandard       = "S"
	TaxCategoryZero           = "Z"
	TaxCategoryExempt         = "E"
	TaxCategoryReverseCharge  = "AE"
	TaxCategoryIntraCommunity = "K"
	TaxCategoryExport         = "G"
	TaxCategoryOutOfScope     = "O"
	TaxCategoryCanaryIslands  = "L"
	TaxCategoryCeutaMelilla   = "M"
)

// TaxSchemeVAT is the only tax scheme Peppol BIS Billing uses
const TaxSchemeVAT = "VAT"

// Document is an invoice or credit note as the business layer sees it.
// It is treated as immutable once built; transformations return copies.
type Document struct {
	Kind            DocumentKind `json:"kind"`
	CustomizationID string       `json:"customization_id"`
	ProfileID       string       `json:"profile_id"`
	ID              string       `json:"id"`
	IssueDate       Date         `json:"issue_date"`
	DueDate         Date         `json:"due_date,omitempty"`
	TypeCode        string       `json:"type_code"`
	Notes           []string     `json:"notes,omitempty"`
	TaxPointDate    Date         `json:"tax_point_date,omitempty"`
	Currency        string       `json:"currency"`
	AccountingCost  string       `json:"accounting_cost,omitempty"`
	BuyerReference  string       `json:"buyer_reference,omitempty"`

	InvoicePeriod        *Period             `json:"invoice_period,omitempty"`
	OrderReference       string              `json:"order_reference,omitempty"`
	BillingReferences    []BillingReference  `json:"billing_references,omitempty"`
	ContractReference    string              `json:"contract_reference,omitempty"`
	AdditionalReferences []DocumentReference `json:"additional_references,omitempty"`
	ProjectReference     string              `json:"project_reference,omitempty"`

	Seller Party `json:"seller"`
	Buyer  Party `json:"buyer"`

	Delivery         *Delivery         `json:"delivery,omitempty"`
	PaymentMeans     *PaymentMeans     `json:"payment_means,omitempty"`
	PaymentTerms     string            `json:"payment_terms,omitempty"`
	AllowanceCharges []AllowanceCharge `json:"allowance_charges,omitempty"`

	TaxTotal TaxTotal      `json:"tax_total"`
	Totals   MonetaryTotal `json:"totals"`
	Lines    []Line        `json:"lines"`
}

// Identifier is a value qualified by an optional scheme (EAS, ICD, ...)
type Identifier struct {
	Value    string `json:"value"`
	SchemeID string `json:"scheme_id,omitempty"`
}

// IsZero reports whether the identifier carries no value
func (i Identifier) IsZero() bool {
	return i.Value == ""
}

// Period is a start/end date range; either end may be absent
type Period struct {
	Start Date `json:"start,omitempty"`
	End   Date `json:"end,omitempty"`
}

// IsZero reports whether neither bound is set
func (p *Period) IsZero() bool {
	return p == nil || (p.Start.IsZero() && p.End.IsZero())
}

// BillingReference points a credit note at the invoice it corrects
type BillingReference struct {
	InvoiceID string `json:"invoice_id"`
	IssueDate Date   `json:"issue_date,omitempty"`
}

// DocumentReference is an additional supporting document reference
type DocumentReference struct {
	ID          string `json:"id"`
	SchemeID    string `json:"scheme_id,omitempty"`
	TypeCode    string `json:"type_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Party is a seller or buyer block
type Party struct {
	EndpointID      Identifier   `json:"endpoint_id"`
	Identifications []Identifier `json:"identifications,omitempty"`
	Name            string       `json:"name"`
	Address         Address      `json:"address"`
	VATID           string       `json:"vat_id,omitempty"`
	LegalName       string       `json:"legal_name,omitempty"`
	CompanyID       Identifier   `json:"company_id,omitempty"`
	Contact         *Contact     `json:"contact,omitempty"`
}

// Address is a postal address
type Address struct {
	Street           string `json:"street,omitempty"`
	AdditionalStreet string `json:"additional_street,omitempty"`
	City             string `json:"city,omitempty"`
	PostalCode       string `json:"postal_code,omitempty"`
	Subdivision      string `json:"subdivision,omitempty"`
	CountryCode      string `json:"country_code"`
}

// Contact holds optional contact details
type Contact struct {
	Name      string `json:"name,omitempty"`
	Telephone string `json:"telephone,omitempty"`
	Email     string `json:"email,omitempty"`
}

// IsZero reports whether the contact carries no data
func (c *Contact) IsZero() bool {
	return c == nil || (c.Name == "" && c.Telephone == "" && c.Email == "")
}

// Delivery carries the actual delivery date and place
type Delivery struct {
	Date       Date       `json:"date,omitempty"`
	LocationID Identifier `json:"location_id,omitempty"`
	Address    *Address   `json:"address,omitempty"`
	PartyName  string     `json:"party_name,omitempty"`
}

// PaymentMeans describes how the invoice is to be paid
type PaymentMeans struct {
	Code      string            `json:"code"`
	PaymentID string            `json:"payment_id,omitempty"`
	Account   *FinancialAccount `json:"account,omitempty"`
}

// FinancialAccount is the payee account for credit transfers
type FinancialAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	BIC  string `json:"bic,omitempty"`
}

// TaxCategory classifies a line, subtotal or allowance for VAT
type TaxCategory struct {
	ID                  string          `json:"id"`
	Percent             decimal.Decimal `json:"percent"`
	ExemptionReasonCode string          `json:"exemption_reason_code,omitempty"`
	ExemptionReason     string          `json:"exemption_reason,omitempty"`
}

// HasRate reports whether the category carries a percentage in UBL
func (c TaxCategory) HasRate() bool {
	return c.ID != TaxCategoryOutOfScope
}

// AllowanceCharge is a discount (ChargeIndicator=false) or surcharge
type AllowanceCharge struct {
	ChargeIndicator bool            `json:"charge_indicator"`
	ReasonCode      string          `json:"reason_code,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	Percentage      decimal.Decimal `json:"percentage,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	BaseAmount      decimal.Decimal `json:"base_amount,omitempty"`
	TaxCategory     *TaxCategory    `json:"tax_category,omitempty"`
}

// TaxTotal is the document-level VAT total with its breakdown
type TaxTotal struct {
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Subtotals []TaxSubtotal   `json:"subtotals,omitempty"`
}

// TaxSubtotal is one VAT breakdown group
type TaxSubtotal struct {
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Category      TaxCategory     `json:"category"`
}

// MonetaryTotal is the UBL LegalMonetaryTotal block
type MonetaryTotal struct {
	LineExtensionAmount   decimal.Decimal `json:"line_extension_amount"`
	TaxExclusiveAmount    decimal.Decimal `json:"tax_exclusive_amount"`
	TaxInclusiveAmount    decimal.Decimal `json:"tax_inclusive_amount"`
	AllowanceTotalAmount  decimal.Decimal `json:"allowance_total_amount,omitempty"`
	ChargeTotalAmount     decimal.Decimal `json:"charge_total_amount,omitempty"`
	PrepaidAmount         decimal.Decimal `json:"prepaid_amount,omitempty"`
	PayableRoundingAmount decimal.Decimal `json:"payable_rounding_amount,omitempty"`
	PayableAmount         decimal.Decimal `json:"payable_amount"`
}

// Line is an invoice line or credit note line
type Line struct {
	ID                  string            `json:"id"`
	Note                string            `json:"note,omitempty"`
	Quantity            Quantity          `json:"quantity"`
	LineExtensionAmount decimal.Decimal   `json:"line_extension_amount"`
	AccountingCost      string            `json:"accounting_cost,omitempty"`
	Period              *Period           `json:"period,omitempty"`
	OrderLineReference  string            `json:"order_line_reference,omitempty"`
	AllowanceCharges    []AllowanceCharge `json:"allowance_charges,omitempty"`
	Item                Item              `json:"item"`
	Price               Price             `json:"price"`
}

// Quantity is a value with a UN/ECE Rec 20 unit code
type Quantity struct {
	Value    decimal.Decimal `json:"value"`
	UnitCode string          `json:"unit_code"`
}

// Item describes what is sold on a line
type Item struct {
	Name                  string      `json:"name"`
	Description           string      `json:"description,omitempty"`
	BuyersItemID          string      `json:"buyers_item_id,omitempty"`
	SellersItemID         string      `json:"sellers_item_id,omitempty"`
	StandardItemID        Identifier  `json:"standard_item_id,omitempty"`
	OriginCountry         string      `json:"origin_country,omitempty"`
	ClassifiedTaxCategory TaxCategory `json:"classified_tax_category"`
}

// Price is the item net price
type Price struct {
	Amount          decimal.Decimal  `json:"amount"`
	BaseQuantity    *Quantity        `json:"base_quantity,omitempty"`
	AllowanceCharge *AllowanceCharge `json:"allowance_charge,omitempty"`
}

// RootElement returns the UBL root element name for the document kind
func (d *Document) RootElement() string {
	if d.Kind == KindCreditNote {
		return "CreditNote"
	}
	return "Invoice"
}

// FindReference returns the index of the additional reference with the given scheme, or -1
func (d *Document) FindReference(schemeID string) int {
	for i, ref := range d.AdditionalReferences {
		if ref.SchemeID == schemeID {
			return i
		}
	}
	return -1
}

// HasTaxCategory reports whether any line is classified with the category
func (d *Document) HasTaxCategory(id string) bool {
	for _, l := range d.Lines {
		if l.Item.ClassifiedTaxCategory.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the document
func (d Document) Clone() Document {
	out := d
	out.Notes = append([]string(nil), d.Notes...)
	out.BillingReferences = append([]BillingReference(nil), d.BillingReferences...)
	out.AdditionalReferences = append([]DocumentReference(nil), d.AdditionalReferences...)
	if d.InvoicePeriod != nil {
		p := *d.InvoicePeriod
		out.InvoicePeriod = &p
	}
	out.Seller = d.Seller.clone()
	out.Buyer = d.Buyer.clone()
	if d.Delivery != nil {
		del := *d.Delivery
		if d.Delivery.Address != nil {
			a := *d.Delivery.Address
			del.Address = &a
		}
		out.Delivery = &del
	}
	if d.PaymentMeans != nil {
		pm := *d.PaymentMeans
		if d.PaymentMeans.Account != nil {
			acc := *d.PaymentMeans.Account
			pm.Account = &acc
		}
		out.PaymentMeans = &pm
	}
	out.AllowanceCharges = cloneAllowanceCharges(d.AllowanceCharges)
	out.TaxTotal.Subtotals = append([]TaxSubtotal(nil), d.TaxTotal.Subtotals...)
	if d.Lines != nil {
		out.Lines = make([]Line, len(d.Lines))
		for i, l := range d.Lines {
			out.Lines[i] = l.clone()
		}
	}
	return out
}

func (p Party) clone() Party {
	out := p
	out.Identifications = append([]Identifier(nil), p.Identifications...)
	if p.Contact != nil {
		c := *p.Contact
		out.Contact = &c
	}
	return out
}

func (l Line) clone() Line {
	out := l
	if l.Period != nil {
		p := *l.Period
		out.Period = &p
	}
	out.AllowanceCharges = cloneAllowanceCharges(l.AllowanceCharges)
	if l.Price.BaseQuantity != nil {
		q := *l.Price.BaseQuantity
		out.Price.BaseQuantity = &q
	}
	if l.Price.AllowanceCharge != nil {
		ac := l.Price.AllowanceCharge.clone()
		out.Price.AllowanceCharge = &ac
	}
	return out
}

func (a AllowanceCharge) clone() AllowanceCharge {
	out := a
	if a.TaxCategory != nil {
		c := *a.TaxCategory
		out.TaxCategory = &c
	}
	return out
}

func cloneAllowanceCharges(in []AllowanceCharge) []AllowanceCharge {
	if in == nil {
		return nil
	}
	out := make([]AllowanceCharge, len(in))
	for i, ac := range in {
		out[i] = ac.clone()
	}
	return out
}
