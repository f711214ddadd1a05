package xrechnung_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/peppol-connector/internal/model"
	"github.com/rezonia/peppol-connector/internal/model/modeltest"
	"github.com/rezonia/peppol-connector/internal/xrechnung"
)

func TestParseRoutingIdentifier(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		valid  bool
		coarse string
		fine   string
		check  string
	}{
		{"canonical", "04011000-12345-67", true, "04011000", "12345", "67"},
		{"lower case fine routing", "992-abc-45", true, "992", "ABC", "45"},
		{"surrounding whitespace", "  991-33333-35 ", true, "991", "33333", "35"},
		{"invalid", "invalid", false, "", "", ""},
		{"empty", "", false, "", "", ""},
		{"coarse too short", "1-12345-67", false, "", "", ""},
		{"coarse too long", "1234567890123-1-67", false, "", "", ""},
		{"alpha in coarse", "04A11000-12345-67", false, "", "", ""},
		{"check too long", "04011000-12345-678", false, "", "", ""},
		{"missing part", "04011000-67", false, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := xrechnung.ParseRoutingIdentifier(tt.input)
			if !tt.valid {
				require.Error(t, err)
				var verr *model.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "leitweg_id", verr.Field)
				assert.True(t, id.IsZero(), "no partially populated identifier")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.coarse, id.Coarse)
			assert.Equal(t, tt.fine, id.Fine)
			assert.Equal(t, tt.check, id.Check)
		})
	}
}

func TestRoutingIdentifier_Checksum(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"04011000-12345-03", true},
		{"991-33333-35", false},
		{"992-ABC-45", true},
		{"04011000-12345-67", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id := xrechnung.MustParseRoutingIdentifier(tt.input)
			assert.Equal(t, tt.valid, id.ChecksumValid())
			assert.Len(t, id.ExpectedCheck(), 2)
		})
	}
}

func TestRoutingIdentifier_String(t *testing.T) {
	id := xrechnung.MustParseRoutingIdentifier("04011000-abc-03")
	assert.Equal(t, "04011000-ABC-03", id.String())
	assert.Equal(t, "", xrechnung.RoutingIdentifier{}.String())
}

func TestLooksLikeRoutingIdentifier(t *testing.T) {
	assert.True(t, xrechnung.LooksLikeRoutingIdentifier("04011000-12345-67"))
	assert.True(t, xrechnung.LooksLikeRoutingIdentifier("04011000-"))
	assert.False(t, xrechnung.LooksLikeRoutingIdentifier("PO-4711"))
	assert.False(t, xrechnung.LooksLikeRoutingIdentifier(""))
}

func TestExtend(t *testing.T) {
	id := xrechnung.MustParseRoutingIdentifier("04011000-12345-03")
	doc := modeltest.Invoice()
	doc.BuyerReference = ""

	out := xrechnung.Extend(doc, id)

	assert.Equal(t, xrechnung.CustomizationID, out.CustomizationID)
	assert.Equal(t, "04011000-12345-03", out.BuyerReference)
	require.Len(t, out.AdditionalReferences, 1)
	assert.Equal(t, xrechnung.ReferenceScheme, out.AdditionalReferences[0].SchemeID)
	assert.Equal(t, "04011000-12345-03", out.AdditionalReferences[0].ID)

	assert.Equal(t, model.CustomizationBISBilling, doc.CustomizationID, "input must not change")
	assert.Empty(t, doc.BuyerReference)
	assert.Empty(t, doc.AdditionalReferences)
}

func TestExtend_Idempotent(t *testing.T) {
	id := xrechnung.MustParseRoutingIdentifier("04011000-12345-03")
	once := xrechnung.Extend(modeltest.Invoice(), id)
	twice := xrechnung.Extend(once, id)

	assert.Equal(t, once, twice)
	assert.Len(t, twice.AdditionalReferences, 1)
}

func TestExtend_KeepsBuyerReferenceAndUpdatesRouting(t *testing.T) {
	doc := modeltest.Invoice()
	doc.AdditionalReferences = []model.DocumentReference{{ID: "contract.pdf", Description: "Contract"}}

	first := xrechnung.Extend(doc, xrechnung.MustParseRoutingIdentifier("04011000-12345-03"))
	second := xrechnung.Extend(first, xrechnung.MustParseRoutingIdentifier("992-ABC-45"))

	assert.Equal(t, "PO-4711", second.BuyerReference)
	require.Len(t, second.AdditionalReferences, 2)
	assert.Equal(t, "contract.pdf", second.AdditionalReferences[0].ID)
	assert.Equal(t, "992-ABC-45", second.AdditionalReferences[1].ID)
	assert.Equal(t, "04011000-12345-03", first.AdditionalReferences[1].ID)
}

func TestValidate_ExtendedInvoice(t *testing.T) {
	doc := xrechnung.Extend(modeltest.Invoice(), xrechnung.MustParseRoutingIdentifier("04011000-12345-03"))

	result := xrechnung.Validate(&doc)
	assert.True(t, result.Valid, "unexpected errors: %+v", result.Errors)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.Infos)
	assert.Equal(t, xrechnung.Profile, result.Profile)
}

func TestValidate_OverlayRules(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(d *model.Document)
		ruleID   string
		severity model.Severity
	}{
		{"seller telephone", func(d *model.Document) { d.Seller.Contact.Telephone = "" }, "BR-DE-6", model.SeverityError},
		{"seller email", func(d *model.Document) { d.Seller.Contact.Email = "" }, "BR-DE-7", model.SeverityError},
		{"no seller contact", func(d *model.Document) { d.Seller.Contact = nil }, "BR-DE-6", model.SeverityError},
		{"seller city", func(d *model.Document) { d.Seller.Address.City = "" }, "BR-DE-3", model.SeverityError},
		{"seller post code", func(d *model.Document) { d.Seller.Address.PostalCode = "" }, "BR-DE-4", model.SeverityError},
		{"buyer city", func(d *model.Document) { d.Buyer.Address.City = " " }, "BR-DE-8", model.SeverityError},
		{"buyer post code", func(d *model.Document) { d.Buyer.Address.PostalCode = "" }, "BR-DE-9", model.SeverityError},
		{"standard rate breakdown", func(d *model.Document) {
			d.TaxTotal.Subtotals[0].Category = model.TaxCategory{ID: model.TaxCategoryZero}
		}, "BR-DE-14", model.SeverityError},
		{"malformed routing id in buyer reference", func(d *model.Document) { d.BuyerReference = "04011000-" }, "BR-DE-15", model.SeverityError},
		{"missing buyer reference", func(d *model.Document) { d.BuyerReference = "" }, "BR-DE-15", model.SeverityError},
		{"bad check digits", func(d *model.Document) { d.AdditionalReferences[0].ID = "04011000-12345-67" }, "BR-DE-LW-CHECK", model.SeverityWarning},
		{"implausible telephone", func(d *model.Document) { d.Seller.Contact.Telephone = "12" }, "BR-DE-27", model.SeverityWarning},
		{"malformed email", func(d *model.Document) { d.Seller.Contact.Email = "billing-at-seller" }, "BR-DE-28", model.SeverityWarning},
		{"no delivery information", func(d *model.Document) { d.Delivery = nil }, "BR-DE-INFO-DELIVERY", model.SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := xrechnung.Extend(modeltest.Invoice(), xrechnung.MustParseRoutingIdentifier("04011000-12345-03"))
			tt.mutate(&doc)

			result := xrechnung.Validate(&doc)
			var found *model.Finding
			for _, f := range result.All() {
				if f.RuleID == tt.ruleID {
					f := f
					found = &f
					break
				}
			}
			require.NotNil(t, found, "expected %s in %+v", tt.ruleID, result.All())
			assert.Equal(t, tt.severity, found.Severity)
			if tt.severity == model.SeverityError {
				assert.False(t, result.Valid)
			}
		})
	}
}

func TestValidate_DeliveryPeriodSatisfiesAdvisory(t *testing.T) {
	doc := xrechnung.Extend(modeltest.Invoice(), xrechnung.MustParseRoutingIdentifier("04011000-12345-03"))
	doc.Delivery = nil
	doc.InvoicePeriod = &model.Period{Start: model.NewDate(2024, 2, 1), End: model.NewDate(2024, 2, 29)}

	result := xrechnung.Validate(&doc)
	assert.False(t, result.HasCode("BR-DE-INFO-DELIVERY"))
}

func TestValidate_IncludesBaseRules(t *testing.T) {
	doc := xrechnung.Extend(modeltest.Invoice(), xrechnung.MustParseRoutingIdentifier("04011000-12345-03"))
	doc.Lines = nil

	result := xrechnung.Validate(&doc)
	assert.False(t, result.Valid)
	assert.True(t, result.HasCode("BR-16"))
}

func TestValidate_CreditNote(t *testing.T) {
	doc := xrechnung.Extend(modeltest.CreditNote(), xrechnung.MustParseRoutingIdentifier("04011000-12345-03"))

	result := xrechnung.Validate(&doc)
	assert.True(t, result.Valid, "unexpected errors: %+v", result.Errors)

	set := xrechnung.RuleSet(model.KindCreditNote)
	assert.Equal(t, model.KindCreditNote, set.Kind)
	assert.Contains(t, set.IDs(), "PEPPOL-CN-R001")
	assert.Contains(t, set.IDs(), "BR-DE-15")
}

func TestRoutingIdentifierOf(t *testing.T) {
	doc := modeltest.Invoice()
	_, ok := xrechnung.RoutingIdentifierOf(&doc)
	assert.False(t, ok)

	doc.BuyerReference = "991-33333-35"
	id, ok := xrechnung.RoutingIdentifierOf(&doc)
	require.True(t, ok)
	assert.Equal(t, "991", id.Coarse)

	extended := xrechnung.Extend(doc, xrechnung.MustParseRoutingIdentifier("992-ABC-45"))
	id, ok = xrechnung.RoutingIdentifierOf(&extended)
	require.True(t, ok)
	assert.Equal(t, "992-ABC-45", id.String())
}
