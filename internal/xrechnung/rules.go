package xrechnung

import (
	"strings"

	"github.com/ttacon/libphonenumber"

	"github.com/rezonia/peppol-connector/internal/model"
	"github.com/rezonia/peppol-connector/internal/rules"
)

// Validate checks doc against the Peppol base rules for its kind plus the
// XRechnung overlay
func Validate(doc *model.Document) model.ValidationResult {
	if doc == nil {
		return rules.Evaluate(nil, RuleSet(model.KindInvoice))
	}
	return rules.Evaluate(doc, RuleSet(doc.Kind))
}

// RuleSet returns the base rule set for kind extended with the BR-DE rules
func RuleSet(kind model.DocumentKind) rules.RuleSet {
	return rules.RuleSetFor(kind).Renamed(Profile).With(overlay()...)
}

func overlay() []rules.Rule {
	return []rules.Rule{
		{
			ID:          "BR-DE-3",
			Description: "The Seller city shall be provided",
			Severity:    model.SeverityError,
			Location:    "cac:AccountingSupplierParty/cac:Party/cac:PostalAddress/cbc:CityName",
			Check:       func(d *model.Document) bool { return present(d.Seller.Address.City) },
		},
		{
			ID:          "BR-DE-4",
			Description: "The Seller post code shall be provided",
			Severity:    model.SeverityError,
			Location:    "cac:AccountingSupplierParty/cac:Party/cac:PostalAddress/cbc:PostalZone",
			Check:       func(d *model.Document) bool { return present(d.Seller.Address.PostalCode) },
		},
		{
			ID:          "BR-DE-6",
			Description: "The Seller contact telephone number shall be provided",
			Severity:    model.SeverityError,
			Location:    "cac:AccountingSupplierParty/cac:Party/cac:Contact/cbc:Telephone",
			Check:       func(d *model.Document) bool { return d.Seller.Contact != nil && present(d.Seller.Contact.Telephone) },
		},
		{
			ID:          "BR-DE-7",
			Description: "The Seller contact email address shall be provided",
			Severity:    model.SeverityError,
			Location:    "cac:AccountingSupplierParty/cac:Party/cac:Contact/cbc:ElectronicMail",
			Check:       func(d *model.Document) bool { return d.Seller.Contact != nil && present(d.Seller.Contact.Email) },
		},
		{
			ID:          "BR-DE-8",
			Description: "The Buyer city shall be provided",
			Severity:    model.SeverityError,
			Location:    "cac:AccountingCustomerParty/cac:Party/cac:PostalAddress/cbc:CityName",
			Check:       func(d *model.Document) bool { return present(d.Buyer.Address.City) },
		},
		{
			ID:          "BR-DE-9",
			Description: "The Buyer post code shall be provided",
			Severity:    model.SeverityError,
			Location:    "cac:AccountingCustomerParty/cac:Party/cac:PostalAddress/cbc:PostalZone",
			Check:       func(d *model.Document) bool { return present(d.Buyer.Address.PostalCode) },
		},
		{
			ID:          "BR-DE-14",
			Description: "A VAT breakdown for the standard rate shall be provided when a line is standard rated",
			Severity:    model.SeverityError,
			Location:    "cac:TaxTotal/cac:TaxSubtotal",
			Check:       standardRateBreakdown,
		},
		{
			ID:          "BR-DE-15",
			Description: "The Buyer reference (Leitweg-ID) shall be provided and well formed",
			Severity:    model.SeverityError,
			Location:    "cbc:BuyerReference",
			Check:       buyerReference,
		},
		{
			ID:          "BR-DE-LW-CHECK",
			Description: "The Leitweg-ID check characters should match the MOD 97-10 checksum",
			Severity:    model.SeverityWarning,
			Location:    "cbc:BuyerReference",
			Check: func(d *model.Document) bool {
				id, ok := RoutingIdentifierOf(d)
				return !ok || id.ChecksumValid()
			},
		},
		{
			ID:          "BR-DE-27",
			Description: "The Seller contact telephone number should be a plausible phone number",
			Severity:    model.SeverityWarning,
			Location:    "cac:AccountingSupplierParty/cac:Party/cac:Contact/cbc:Telephone",
			Check:       plausibleTelephone,
		},
		{
			ID:          "BR-DE-28",
			Description: "The Seller contact email address should be syntactically valid",
			Severity:    model.SeverityWarning,
			Location:    "cac:AccountingSupplierParty/cac:Party/cac:Contact/cbc:ElectronicMail",
			Check: func(d *model.Document) bool {
				if d.Seller.Contact == nil || !present(d.Seller.Contact.Email) {
					return true
				}
				return model.Validator().Var(strings.TrimSpace(d.Seller.Contact.Email), "email") == nil
			},
		},
		{
			ID:          "BR-DE-INFO-DELIVERY",
			Description: "A delivery date or an invoicing period should be provided",
			Severity:    model.SeverityInfo,
			Location:    "cac:Delivery/cbc:ActualDeliveryDate",
			Check: func(d *model.Document) bool {
				if d.Delivery != nil && !d.Delivery.Date.IsZero() {
					return true
				}
				if !d.InvoicePeriod.IsZero() {
					return true
				}
				for _, l := range d.Lines {
					if !l.Period.IsZero() {
						return true
					}
				}
				return false
			},
		},
	}
}

func standardRateBreakdown(d *model.Document) bool {
	if !d.HasTaxCategory(model.TaxCategoryStandard) {
		return true
	}
	for _, st := range d.TaxTotal.Subtotals {
		if st.Category.ID == model.TaxCategoryStandard {
			return true
		}
	}
	return false
}

func buyerReference(d *model.Document) bool {
	ref := strings.TrimSpace(d.BuyerReference)
	if ref == "" {
		return false
	}
	if LooksLikeRoutingIdentifier(ref) {
		if _, err := ParseRoutingIdentifier(ref); err != nil {
			return false
		}
	}
	if i := d.FindReference(ReferenceScheme); i >= 0 {
		if _, err := ParseRoutingIdentifier(d.AdditionalReferences[i].ID); err != nil {
			return false
		}
	}
	return true
}

func plausibleTelephone(d *model.Document) bool {
	if d.Seller.Contact == nil || !present(d.Seller.Contact.Telephone) {
		return true
	}
	region := strings.ToUpper(d.Seller.Address.CountryCode)
	if region == "" {
		region = "DE"
	}
	num, err := libphonenumber.Parse(d.Seller.Contact.Telephone, region)
	if err != nil {
		return false
	}
	return libphonenumber.IsPossibleNumber(num)
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}
