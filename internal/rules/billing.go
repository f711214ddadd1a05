package rules

import (
	"strings"

	"github.com/rezonia/peppol-connector/internal/decimal"
	"github.com/rezonia/peppol-connector/internal/model"
)

var invoiceTypeCodes = codeSet("71", "80", "82", "84", "102", "218", "219", "326", "331", "380", "382",
	"383", "384", "385", "386", "387", "388", "389", "390", "393", "394", "395", "456", "457", "527",
	"575", "623", "633", "751", "780", "875", "876", "877", "935")

var creditNoteTypeCodes = codeSet("81", "83", "261", "262", "296", "308", "381", "396", "420", "458", "532")

// InvoiceRules returns the Peppol BIS Billing 3.0 rule set for invoices
func InvoiceRules() RuleSet {
	return NewRuleSet(Profile, model.KindInvoice, sharedRules()...).With(
		Rule{
			ID:          "BR-04",
			Description: "An Invoice shall have an Invoice type code from the allowed code list",
			Severity:    model.SeverityError,
			Location:    "cbc:InvoiceTypeCode",
			Check:       func(d *model.Document) bool { return invoiceTypeCodes[d.TypeCode] },
		},
		Rule{
			ID:          "BR-CO-25",
			Description: "When the amount due for payment is positive, either the payment due date or the payment terms shall be present",
			Severity:    model.SeverityError,
			Location:    "cbc:DueDate",
			Check: func(d *model.Document) bool {
				if !decimal.IsPositive(d.Totals.PayableAmount) {
					return true
				}
				return !d.DueDate.IsZero() || strings.TrimSpace(d.PaymentTerms) != ""
			},
		},
	)
}

// CreditNoteRules returns the Peppol BIS Billing 3.0 rule set for credit notes.
// It shares the invoice rule ids; the reference to the corrected invoice is
// only a warning.
func CreditNoteRules() RuleSet {
	return NewRuleSet(Profile, model.KindCreditNote, sharedRules()...).With(
		Rule{
			ID:          "BR-04",
			Description: "A Credit note shall have a Credit note type code from the allowed code list",
			Severity:    model.SeverityError,
			Location:    "cbc:CreditNoteTypeCode",
			Check:       func(d *model.Document) bool { return creditNoteTypeCodes[d.TypeCode] },
		},
		Rule{
			ID:          "PEPPOL-CN-R001",
			Description: "A Credit note should reference the invoice it corrects",
			Severity:    model.SeverityWarning,
			Location:    "cac:BillingReference",
			Check:       func(d *model.Document) bool { return len(d.BillingReferences) > 0 },
		},
		Rule{
			ID:          "BR-55",
			Description: "Each Preceding Invoice reference shall contain a Preceding Invoice reference",
			Severity:    model.SeverityError,
			Location:    "cac:BillingReference/cac:InvoiceDocumentReference/cbc:ID",
			Check: func(d *model.Document) bool {
				for _, ref := range d.BillingReferences {
					if strings.TrimSpace(ref.InvoiceID) == "" {
						return false
					}
				}
				return true
			},
		},
	)
}

func sharedRules() []Rule {
	return []Rule{
		{
			ID:          "BR-01",
			Description: "A document shall have a Specification identifier",
			Severity:    model.SeverityError,
			Location:    "cbc:CustomizationID",
			Check:       func(d *model.Document) bool { return present(d.CustomizationID) },
		},
		{
			ID:          "PEPPOL-EN16931-R001",
			Description: "Business process MUST be provided",
			Severity:    model.SeverityError,
			Location:    "cbc:ProfileID",
			Check:       func(d *model.Document) bool { return present(d.ProfileID) },
		},
		{
			ID:          "BR-02",
			Description: "A document shall have a document number",
			Severity:    model.SeverityError,
			Location:    "cbc:ID",
			Check:       func(d *model.Document) bool { return present(d.ID) },
		},
		{
			ID:          "BR-03",
			Description: "A document shall have an issue date",
			Severity:    model.SeverityError,
			Location:    "cbc:IssueDate",
			Check:       func(d *model.Document) bool { return !d.IssueDate.IsZero() },
		},
		{
			ID:          "BR-04",
			Description: "A document shall have a type code",
			Severity:    model.SeverityError,
			Check:       func(d *model.Document) bool { return present(d.TypeCode) },
		},
		{
			ID:          "BR-05",
			Description: "A document shall have a three-letter document currency code",
			Severity:    model.SeverityError,
			Location:    "cbc:DocumentCurrencyCode",
			Check:       func(d *model.Document) bool { return isCurrencyCode(d.Currency) },
		},
		{
			ID:          "BR-06",
			Description: "A document shall contain the Seller name",
			Severity:    model.SeverityError,
			Location:    "cac:AccountingSupplierParty/cac:Party/cac:PartyLegalEntity/cbc:RegistrationName",
			Check:       func(d *model.Document) bool { return present(d.Seller.Name) || present(d.Seller.LegalName) },
		},
		{
			ID:          "BR-07",
			Description: "A document shall contain the Buyer name",
			Severity:    model.SeverityError,
			Location:    "cac:AccountingCustomerParty/cac:Party/cac:PartyLegalEntity/cbc:RegistrationName",
			Check:       func(d *model.Document) bool { return present(d.Buyer.Name) || present(d.Buyer.LegalName) },
		},
		{
			ID:          "BR-09",
			Description: "The Seller postal address shall contain a Seller country code",
			Severity:    model.SeverityError,
			Location:    "cac:AccountingSupplierParty/cac:Party/cac:PostalAddress/cac:Country/cbc:IdentificationCode",
			Check:       func(d *model.Document) bool { return isCountryCode(d.Seller.Address.CountryCode) },
		},
		{
			ID:          "BR-11",
			Description: "The Buyer postal address shall contain a Buyer country code",
			Severity:    model.SeverityError,
			Location:    "cac:AccountingCustomerParty/cac:Party/cac:PostalAddress/cac:Country/cbc:IdentificationCode",
			Check:       func(d *model.Document) bool { return isCountryCode(d.Buyer.Address.CountryCode) },
		},
		{
			ID:          "PEPPOL-EN16931-R020",
			Description: "Seller electronic address MUST be provided",
			Severity:    model.SeverityError,
			Location:    "cac:AccountingSupplierParty/cac:Party/cbc:EndpointID",
			Check:       func(d *model.Document) bool { return endpointPresent(d.Seller.EndpointID) },
		},
		{
			ID:          "PEPPOL-EN16931-R010",
			Description: "Buyer electronic address MUST be provided",
			Severity:    model.SeverityError,
			Location:    "cac:AccountingCustomerParty/cac:Party/cbc:EndpointID",
			Check:       func(d *model.Document) bool { return endpointPresent(d.Buyer.EndpointID) },
		},
		{
			ID:          "PEPPOL-EN16931-R003",
			Description: "A buyer reference or purchase order reference MUST be provided",
			Severity:    model.SeverityError,
			Location:    "cbc:BuyerReference",
			Check:       func(d *model.Document) bool { return present(d.BuyerReference) || present(d.OrderReference) },
		},
		{
			ID:          "BR-16",
			Description: "A document shall have at least one line",
			Severity:    model.SeverityError,
			Location:    "{line}",
			Check:       func(d *model.Document) bool { return len(d.Lines) > 0 },
		},
		{
			ID:          "BR-21",
			Description: "Each line shall have a line identifier",
			Severity:    model.SeverityError,
			Location:    "{line}/cbc:ID",
			Check:       everyLine(func(l model.Line) bool { return present(l.ID) }),
		},
		{
			ID:          "BR-23",
			Description: "Each line shall have a quantity unit of measure",
			Severity:    model.SeverityError,
			Location:    "{line}/@unitCode",
			Check:       everyLine(func(l model.Line) bool { return present(l.Quantity.UnitCode) }),
		},
		{
			ID:          "BR-25",
			Description: "Each line shall contain the Item name",
			Severity:    model.SeverityError,
			Location:    "{line}/cac:Item/cbc:Name",
			Check:       everyLine(func(l model.Line) bool { return present(l.Item.Name) }),
		},
		{
			ID:          "BR-27",
			Description: "The Item net price shall NOT be negative",
			Severity:    model.SeverityError,
			Location:    "{line}/cac:Price/cbc:PriceAmount",
			Check:       everyLine(func(l model.Line) bool { return decimal.IsNonNegative(l.Price.Amount) }),
		},
		{
			ID:          "BR-CO-04",
			Description: "Each line shall be categorized with an Invoiced item VAT category code",
			Severity:    model.SeverityError,
			Location:    "{line}/cac:Item/cac:ClassifiedTaxCategory/cbc:ID",
			Check:       everyLine(func(l model.Line) bool { return present(l.Item.ClassifiedTaxCategory.ID) }),
		},
		{
			ID:          "BR-CO-18",
			Description: "A document shall at least have one VAT breakdown group",
			Severity:    model.SeverityError,
			Location:    "cac:TaxTotal/cac:TaxSubtotal",
			Check:       func(d *model.Document) bool { return len(d.TaxTotal.Subtotals) > 0 },
		},
		{
			ID:          "BR-33",
			Description: "Each document level allowance shall have a reason or a reason code",
			Severity:    model.SeverityError,
			Location:    "cac:AllowanceCharge/cbc:AllowanceChargeReason",
			Check:       everyAllowanceCharge(false),
		},
		{
			ID:          "BR-38",
			Description: "Each document level charge shall have a reason or a reason code",
			Severity:    model.SeverityError,
			Location:    "cac:AllowanceCharge/cbc:AllowanceChargeReason",
			Check:       everyAllowanceCharge(true),
		},
		{
			ID:          "BR-49",
			Description: "A payment instruction shall specify the Payment means type code",
			Severity:    model.SeverityError,
			Location:    "cac:PaymentMeans/cbc:PaymentMeansCode",
			Check:       func(d *model.Document) bool { return d.PaymentMeans == nil || present(d.PaymentMeans.Code) },
		},
	}
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

func endpointPresent(id model.Identifier) bool {
	return present(id.Value) && present(id.SchemeID)
}

func isCurrencyCode(s string) bool {
	return len(s) == 3 && isUpperAlpha(s)
}

func isCountryCode(s string) bool {
	return len(s) == 2 && isUpperAlpha(s)
}

func isUpperAlpha(s string) bool {
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

func everyLine(pred func(model.Line) bool) Check {
	return func(d *model.Document) bool {
		for _, l := range d.Lines {
			if !pred(l) {
				return false
			}
		}
		return true
	}
}

func everyAllowanceCharge(charge bool) Check {
	return func(d *model.Document) bool {
		for _, ac := range d.AllowanceCharges {
			if ac.ChargeIndicator != charge {
				continue
			}
			if !present(ac.Reason) && !present(ac.ReasonCode) {
				return false
			}
		}
		return true
	}
}

func codeSet(codes ...string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}
