package model

// Severity classifies a validation finding
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one diagnostic produced by the rule engine
type Finding struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Location string   `json:"location,omitempty"`
	RuleID   string   `json:"rule_id"`
}

// ValidationResult aggregates findings by severity
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
	Infos    []Finding `json:"infos"`
	Profile  string    `json:"profile"`
}

// NewValidationResult creates an empty, valid result for a profile
func NewValidationResult(profile string) ValidationResult {
	return ValidationResult{
		Valid:    true,
		Errors:   []Finding{},
		Warnings: []Finding{},
		Infos:    []Finding{},
		Profile:  profile,
	}
}

// Add files a finding under its severity bucket and recomputes Valid
func (r *ValidationResult) Add(f Finding) {
	switch f.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, f)
	case SeverityWarning:
		r.Warnings = append(r.Warnings, f)
	default:
		f.Severity = SeverityInfo
		r.Infos = append(r.Infos, f)
	}
	r.Valid = len(r.Errors) == 0
}

// Merge appends every finding of other to r
func (r *ValidationResult) Merge(other ValidationResult) {
	for _, f := range other.Errors {
		r.Add(f)
	}
	for _, f := range other.Warnings {
		r.Add(f)
	}
	for _, f := range other.Infos {
		r.Add(f)
	}
}

// HasCode reports whether any finding carries the code
func (r ValidationResult) HasCode(code string) bool {
	for _, bucket := range [][]Finding{r.Errors, r.Warnings, r.Infos} {
		for _, f := range bucket {
			if f.Code == code {
				return true
			}
		}
	}
	return false
}

// All returns errors, warnings and infos in that order
func (r ValidationResult) All() []Finding {
	out := make([]Finding, 0, len(r.Errors)+len(r.Warnings)+len(r.Infos))
	out = append(out, r.Errors...)
	out = append(out, r.Warnings...)
	return append(out, r.Infos...)
}
