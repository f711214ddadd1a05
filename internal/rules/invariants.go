package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/peppol-connector/internal/decimal"
	"github.com/rezonia/peppol-connector/internal/model"
)

// categoryRule pins the allowed VAT rate of a tax category
type categoryRule struct {
	ruleID  string
	allowed func(percent decimal.Decimal) bool
	expect  string
}

var categoryRules = map[string]categoryRule{
	model.TaxCategoryStandard:       {"BR-S-05", money.IsNonNegative, "zero or greater"},
	model.TaxCategoryZero:           {"BR-Z-05", decimal.Decimal.IsZero, "0"},
	model.TaxCategoryExempt:         {"BR-E-05", decimal.Decimal.IsZero, "0"},
	model.TaxCategoryReverseCharge:  {"BR-AE-05", decimal.Decimal.IsZero, "0"},
	model.TaxCategoryIntraCommunity: {"BR-IC-05", decimal.Decimal.IsZero, "0"},
	model.TaxCategoryExport:         {"BR-G-05", decimal.Decimal.IsZero, "0"},
	model.TaxCategoryOutOfScope:     {"BR-O-05", decimal.Decimal.IsZero, "absent"},
	model.TaxCategoryCanaryIslands:  {"BR-AF-05", money.IsNonNegative, "zero or greater"},
	model.TaxCategoryCeutaMelilla:   {"BR-AG-05", money.IsNonNegative, "zero or greater"},
}

func checkInvariants(doc *model.Document, result *model.ValidationResult) {
	checkDuplicateLineIDs(doc, result)
	checkMonetaryTotals(doc, result)
	checkSubtotalAmounts(doc, result)
	checkTaxCategories(doc, result)
}

func checkDuplicateLineIDs(doc *model.Document, result *model.ValidationResult) {
	seen := make(map[string]int, len(doc.Lines))
	var order []string
	for _, l := range doc.Lines {
		if l.ID == "" {
			continue
		}
		if seen[l.ID] == 0 {
			order = append(order, l.ID)
		}
		seen[l.ID]++
	}
	for _, id := range order {
		if seen[id] > 1 {
			result.Add(model.Finding{
				Code:     CodeDuplicateLineID,
				Message:  fmt.Sprintf("line identifier %q is used %d times", id, seen[id]),
				Severity: model.SeverityError,
				Location: lineLocation(doc) + "/cbc:ID",
				RuleID:   "PEPPOL-EN16931-R-LINE-ID",
			})
		}
	}
}

func checkMonetaryTotals(doc *model.Document, result *model.ValidationResult) {
	t := doc.Totals
	totalPath := "/" + doc.RootElement() + "/cac:LegalMonetaryTotal/"

	lineAmounts := make([]decimal.Decimal, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		lineAmounts = append(lineAmounts, l.LineExtensionAmount)
	}
	lineSum := money.Sum(lineAmounts)
	if !money.WithinTolerance(lineSum, t.LineExtensionAmount) {
		result.Add(mismatch(CodeLineExtensionMismatch, "BR-CO-10", totalPath+"cbc:LineExtensionAmount",
			"Sum of line net amounts", lineSum, t.LineExtensionAmount))
	}

	var allowanceAmounts, chargeAmounts []decimal.Decimal
	for _, ac := range doc.AllowanceCharges {
		if ac.ChargeIndicator {
			chargeAmounts = append(chargeAmounts, ac.Amount)
		} else {
			allowanceAmounts = append(allowanceAmounts, ac.Amount)
		}
	}
	allowances, charges := money.Sum(allowanceAmounts), money.Sum(chargeAmounts)
	if !money.WithinTolerance(allowances, t.AllowanceTotalAmount) {
		result.Add(mismatch(CodeAllowanceTotal, "BR-CO-11", totalPath+"cbc:AllowanceTotalAmount",
			"Sum of document level allowances", allowances, t.AllowanceTotalAmount))
	}
	if !money.WithinTolerance(charges, t.ChargeTotalAmount) {
		result.Add(mismatch(CodeChargeTotal, "BR-CO-12", totalPath+"cbc:ChargeTotalAmount",
			"Sum of document level charges", charges, t.ChargeTotalAmount))
	}

	expectedExclusive := t.LineExtensionAmount.Sub(t.AllowanceTotalAmount).Add(t.ChargeTotalAmount)
	if !money.WithinTolerance(expectedExclusive, t.TaxExclusiveAmount) {
		result.Add(mismatch(CodeTaxExclusiveMismatch, "BR-CO-13", totalPath+"cbc:TaxExclusiveAmount",
			"Line extension minus allowances plus charges", expectedExclusive, t.TaxExclusiveAmount))
	}

	subtotalAmounts := make([]decimal.Decimal, 0, len(doc.TaxTotal.Subtotals))
	for _, st := range doc.TaxTotal.Subtotals {
		subtotalAmounts = append(subtotalAmounts, st.TaxAmount)
	}
	subtotalTax := money.Sum(subtotalAmounts)
	if len(doc.TaxTotal.Subtotals) > 0 && !money.WithinTolerance(subtotalTax, doc.TaxTotal.TaxAmount) {
		result.Add(mismatch(CodeTaxSubtotalMismatch, "BR-CO-14", "/"+doc.RootElement()+"/cac:TaxTotal/cbc:TaxAmount",
			"Sum of VAT breakdown amounts", subtotalTax, doc.TaxTotal.TaxAmount))
	}

	expectedInclusive := t.TaxExclusiveAmount.Add(doc.TaxTotal.TaxAmount)
	if !money.WithinTolerance(expectedInclusive, t.TaxInclusiveAmount) {
		result.Add(mismatch(CodeTaxInclusiveMismatch, "BR-CO-15", totalPath+"cbc:TaxInclusiveAmount",
			"Tax exclusive amount plus VAT", expectedInclusive, t.TaxInclusiveAmount))
	}

	expectedPayable := t.TaxInclusiveAmount.Sub(t.PrepaidAmount).Add(t.PayableRoundingAmount)
	if !money.WithinTolerance(expectedPayable, t.PayableAmount) {
		result.Add(mismatch(CodePayableMismatch, "BR-CO-16", totalPath+"cbc:PayableAmount",
			"Tax inclusive amount minus prepaid plus rounding", expectedPayable, t.PayableAmount))
	}
}

// checkSubtotalAmounts requires each rated VAT breakdown amount to equal
// taxable amount times rate, rounded to two places
func checkSubtotalAmounts(doc *model.Document, result *model.ValidationResult) {
	for i, st := range doc.TaxTotal.Subtotals {
		if !st.Category.HasRate() {
			continue
		}
		expected := money.Percentage(st.TaxableAmount, st.Category.Percent)
		if money.WithinTolerance(expected, money.Round2(st.TaxAmount)) {
			continue
		}
		loc := fmt.Sprintf("/%s/cac:TaxTotal/cac:TaxSubtotal[%d]/cbc:TaxAmount", doc.RootElement(), i+1)
		result.Add(mismatch(CodeSubtotalAmountMismatch, "BR-CO-17", loc,
			"Taxable amount times VAT rate", expected, st.TaxAmount))
	}
}

func mismatch(code, ruleID, location, what string, expected, stated decimal.Decimal) model.Finding {
	return model.Finding{
		Code:     code,
		Message:  fmt.Sprintf("%s (%s) does not match the stated amount (%s)", what, money.FormatAmount(expected), money.FormatAmount(stated)),
		Severity: model.SeverityError,
		Location: location,
		RuleID:   ruleID,
	}
}

func checkTaxCategories(doc *model.Document, result *model.ValidationResult) {
	for i, l := range doc.Lines {
		loc := fmt.Sprintf("%s[%d]/cac:Item/cac:ClassifiedTaxCategory", lineLocation(doc), i+1)
		checkTaxCategory(l.Item.ClassifiedTaxCategory, loc, result)
	}
	for i, st := range doc.TaxTotal.Subtotals {
		loc := fmt.Sprintf("/%s/cac:TaxTotal/cac:TaxSubtotal[%d]/cac:TaxCategory", doc.RootElement(), i+1)
		checkTaxCategory(st.Category, loc, result)
	}
	for i, ac := range doc.AllowanceCharges {
		if ac.TaxCategory == nil {
			continue
		}
		loc := fmt.Sprintf("/%s/cac:AllowanceCharge[%d]/cac:TaxCategory", doc.RootElement(), i+1)
		checkTaxCategory(*ac.TaxCategory, loc, result)
	}
}

func checkTaxCategory(cat model.TaxCategory, location string, result *model.ValidationResult) {
	// An empty category is reported by BR-CO-04.
	if cat.ID == "" {
		return
	}
	rule, ok := categoryRules[cat.ID]
	if !ok {
		result.Add(model.Finding{
			Code:     CodeTaxCategoryUnknown,
			Message:  fmt.Sprintf("VAT category code %q is not in the allowed code list", cat.ID),
			Severity: model.SeverityError,
			Location: location + "/cbc:ID",
			RuleID:   "BR-CL-18",
		})
		return
	}
	if !rule.allowed(cat.Percent) {
		result.Add(model.Finding{
			Code:     CodeTaxRateInvalid,
			Message:  fmt.Sprintf("VAT category %s requires a rate that is %s, got %s", cat.ID, rule.expect, money.FormatQuantity(cat.Percent)),
			Severity: model.SeverityError,
			Location: location + "/cbc:Percent",
			RuleID:   rule.ruleID,
		})
	}
}

func lineLocation(doc *model.Document) string {
	if doc.Kind == model.KindCreditNote {
		return "/CreditNote/cac:CreditNoteLine"
	}
	return "/Invoice/cac:InvoiceLine"
}
