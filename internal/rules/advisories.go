package rules

import (
	"github.com/rezonia/peppol-connector/internal/model"
)

type advisory struct {
	id       string
	field    string
	location string
	missing  func(d *model.Document) bool
}

var advisories = []advisory{
	{
		id:       "ADV-SELLER-VAT",
		field:    "Seller VAT identifier",
		location: "cac:AccountingSupplierParty/cac:Party/cac:PartyTaxScheme/cbc:CompanyID",
		missing:  func(d *model.Document) bool { return !present(d.Seller.VATID) },
	},
	{
		id:       "ADV-SELLER-CONTACT",
		field:    "Seller contact",
		location: "cac:AccountingSupplierParty/cac:Party/cac:Contact",
		missing:  func(d *model.Document) bool { return d.Seller.Contact.IsZero() },
	},
	{
		id:       "ADV-BUYER-CONTACT",
		field:    "Buyer contact email",
		location: "cac:AccountingCustomerParty/cac:Party/cac:Contact/cbc:ElectronicMail",
		missing:  func(d *model.Document) bool { return d.Buyer.Contact == nil || !present(d.Buyer.Contact.Email) },
	},
	{
		id:       "ADV-PAYMENT-MEANS",
		field:    "Payment means",
		location: "cac:PaymentMeans",
		missing:  func(d *model.Document) bool { return d.PaymentMeans == nil },
	},
	{
		id:       "ADV-DUE-DATE",
		field:    "Payment due date",
		location: "cbc:DueDate",
		missing:  func(d *model.Document) bool { return d.Kind == model.KindInvoice && d.DueDate.IsZero() },
	},
}

// checkAdvisories appends info findings for recommended fields. They never
// affect validity.
func checkAdvisories(doc *model.Document, result *model.ValidationResult) {
	for _, a := range advisories {
		if !a.missing(doc) {
			continue
		}
		result.Add(model.Finding{
			Code:     CodeRecommendedMissing,
			Message:  a.field + " is recommended but missing",
			Severity: model.SeverityInfo,
			Location: "/" + doc.RootElement() + "/" + a.location,
			RuleID:   a.id,
		})
	}
}
