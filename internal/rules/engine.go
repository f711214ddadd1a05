package rules

import (
	"fmt"

	"github.com/rezonia/peppol-connector/internal/model"
)

// Profile is the result label for the base rule sets
const Profile = "peppol-bis-billing-3.0"

// Finding codes produced outside the declarative rule tables
const (
	CodeValidationError        = "VALIDATION_ERROR"
	CodeDocumentMissing        = "DOCUMENT_MISSING"
	CodeDuplicateLineID        = "DUPLICATE_LINE_ID"
	CodeLineExtensionMismatch  = "LINE_EXTENSION_MISMATCH"
	CodeTaxExclusiveMismatch   = "TAX_EXCLUSIVE_MISMATCH"
	CodeTaxInclusiveMismatch   = "TAX_INCLUSIVE_MISMATCH"
	CodePayableMismatch        = "PAYABLE_MISMATCH"
	CodeAllowanceTotal         = "ALLOWANCE_TOTAL_MISMATCH"
	CodeChargeTotal            = "CHARGE_TOTAL_MISMATCH"
	CodeTaxSubtotalMismatch    = "TAX_SUBTOTAL_MISMATCH"
	CodeSubtotalAmountMismatch = "SUBTOTAL_AMOUNT_MISMATCH"
	CodeTaxRateInvalid         = "TAX_RATE_INVALID"
	CodeTaxCategoryUnknown     = "TAX_CATEGORY_UNKNOWN"
	CodeRecommendedMissing     = "RECOMMENDED_FIELD_MISSING"
)

// Evaluate runs the declarative rules of set, then the numeric invariants and
// advisories. A panicking predicate becomes a VALIDATION_ERROR finding and
// never stops evaluation of the remaining rules.
func Evaluate(doc *model.Document, set RuleSet) model.ValidationResult {
	result := model.NewValidationResult(set.Name)
	if doc == nil {
		result.Add(model.Finding{
			Code:     CodeDocumentMissing,
			Message:  "no document to validate",
			Severity: model.SeverityError,
		})
		return result
	}

	for _, rule := range set.Rules {
		evaluateRule(doc, rule, &result)
	}
	checkInvariants(doc, &result)
	checkAdvisories(doc, &result)
	return result
}

// Validate evaluates doc against the base rule set for its kind
func Validate(doc *model.Document) model.ValidationResult {
	if doc == nil {
		return Evaluate(nil, InvoiceRules())
	}
	return Evaluate(doc, RuleSetFor(doc.Kind))
}

// RuleSetFor returns the base rule set for a document kind
func RuleSetFor(kind model.DocumentKind) RuleSet {
	if kind == model.KindCreditNote {
		return CreditNoteRules()
	}
	return InvoiceRules()
}

func evaluateRule(doc *model.Document, rule Rule, result *model.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			result.Add(model.Finding{
				Code:     CodeValidationError,
				Message:  fmt.Sprintf("rule %s could not be evaluated: %v", rule.ID, r),
				Severity: model.SeverityError,
				Location: rule.location(doc),
				RuleID:   rule.ID,
			})
		}
	}()

	if rule.Check == nil || rule.Check(doc) {
		return
	}
	severity := rule.Severity
	if severity == "" {
		severity = model.SeverityError
	}
	result.Add(model.Finding{
		Code:     rule.ID,
		Message:  rule.Description,
		Severity: severity,
		Location: rule.location(doc),
		RuleID:   rule.ID,
	})
}
