// Package rules evaluates Peppol BIS Billing business rules against
// invoices and credit notes.
//
// Rules come in two layers. Declarative rules are small values
// (id, description, severity, predicate) collected in a RuleSet, so profile
// overlays can share, override or drop entries by id. Numeric invariants
// (monetary consistency, duplicate line ids, tax-rate constraints) and
// advisories always run after the declarative pass.
package rules

import (
	"strings"

	"github.com/rezonia/peppol-connector/internal/model"
)

// Check is a rule predicate; returning false produces one finding
type Check func(doc *model.Document) bool

// Rule is a declarative business rule
type Rule struct {
	ID          string
	Description string
	Severity    model.Severity
	// Location is relative to the document root; {line} expands to the
	// line element name of the document kind.
	Location string
	Check    Check
}

// RuleSet is an ordered list of rules for one profile and document kind
type RuleSet struct {
	Name  string
	Kind  model.DocumentKind
	Rules []Rule
}

// NewRuleSet creates a rule set from rules in evaluation order
func NewRuleSet(name string, kind model.DocumentKind, rules ...Rule) RuleSet {
	return RuleSet{
		Name:  name,
		Kind:  kind,
		Rules: append([]Rule(nil), rules...),
	}
}

// With returns a copy where rules replace same-id entries in place and
// unknown ids are appended
func (s RuleSet) With(rules ...Rule) RuleSet {
	out := NewRuleSet(s.Name, s.Kind, s.Rules...)
	for _, r := range rules {
		if i := out.index(r.ID); i >= 0 {
			out.Rules[i] = r
			continue
		}
		out.Rules = append(out.Rules, r)
	}
	return out
}

// Without returns a copy with the given rule ids removed
func (s RuleSet) Without(ids ...string) RuleSet {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := RuleSet{Name: s.Name, Kind: s.Kind, Rules: make([]Rule, 0, len(s.Rules))}
	for _, r := range s.Rules {
		if _, ok := drop[r.ID]; !ok {
			out.Rules = append(out.Rules, r)
		}
	}
	return out
}

// Renamed returns a copy with a different profile label
func (s RuleSet) Renamed(name string) RuleSet {
	return NewRuleSet(name, s.Kind, s.Rules...)
}

// Lookup returns the rule with the given id
func (s RuleSet) Lookup(id string) (Rule, bool) {
	if i := s.index(id); i >= 0 {
		return s.Rules[i], true
	}
	return Rule{}, false
}

// IDs lists rule ids in evaluation order
func (s RuleSet) IDs() []string {
	ids := make([]string, len(s.Rules))
	for i, r := range s.Rules {
		ids[i] = r.ID
	}
	return ids
}

func (s RuleSet) index(id string) int {
	for i, r := range s.Rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (r Rule) location(doc *model.Document) string {
	if r.Location == "" {
		return ""
	}
	root := "Invoice"
	line := "cac:InvoiceLine"
	if doc != nil && doc.Kind == model.KindCreditNote {
		root = "CreditNote"
		line = "cac:CreditNoteLine"
	}
	return "/" + root + "/" + strings.ReplaceAll(r.Location, "{line}", line)
}
