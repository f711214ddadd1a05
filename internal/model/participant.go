package model

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ParticipantScheme is the Peppol participant identifier scheme
const ParticipantScheme = "iso6523-actorid-upis"

// Common ICD / EAS codes
const (
	SchemeGLN        = "0088"
	SchemeDUNS       = "0060"
	SchemeLeitwegID  = "0204"
	SchemeGermanVAT  = "9930"
	SchemeNorwayOrg  = "0192"
	SchemeDanishCVR  = "0184"
	SchemeBelgianCBE = "0208"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared struct validator
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Participant identifies a network endpoint as (scheme, identifier)
type Participant struct {
	Scheme     string `json:"scheme" validate:"required,len=4,number"`
	Identifier string `json:"identifier" validate:"required"`
}

// NewParticipant creates a participant, trimming surrounding whitespace
func NewParticipant(scheme, identifier string) Participant {
	return Participant{
		Scheme:     strings.TrimSpace(scheme),
		Identifier: strings.TrimSpace(identifier),
	}
}

// ParseParticipant parses "scheme:identifier", optionally prefixed with
// "iso6523-actorid-upis::"
func ParseParticipant(s string) (Participant, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, ParticipantScheme+"::")
	scheme, id, ok := strings.Cut(raw, ":")
	if !ok {
		return Participant{}, NewValidationError("participant", s, "format", "expected scheme:identifier")
	}
	p := NewParticipant(scheme, id)
	if err := p.Validate(); err != nil {
		return Participant{}, err
	}
	return p, nil
}

// Validate checks that the scheme is four digits and the identifier is present
func (p Participant) Validate() error {
	err := Validator().Struct(p)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return NewValidationError("participant."+strings.ToLower(fe.Field()), fe.Value(), fe.Tag(), "invalid participant identifier")
	}
	return NewValidationError("participant", p.String(), "struct", err.Error())
}

// IsValid reports whether Validate succeeds
func (p Participant) IsValid() bool {
	return p.Validate() == nil
}

// String formats the participant as scheme:identifier
func (p Participant) String() string {
	return p.Scheme + ":" + p.Identifier
}

// URN formats the participant with the Peppol identifier scheme
func (p Participant) URN() string {
	return ParticipantScheme + "::" + p.String()
}

// Equal compares two participants; identifiers are case-insensitive
func (p Participant) Equal(o Participant) bool {
	return p.Scheme == o.Scheme && strings.EqualFold(p.Identifier, o.Identifier)
}

// ParticipantFromEndpoint builds a participant from a party endpoint id
func ParticipantFromEndpoint(id Identifier) Participant {
	return NewParticipant(id.SchemeID, id.Value)
}
