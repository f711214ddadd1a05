// Package xrechnung overlays the German XRechnung CIUS on top of Peppol BIS
// Billing: it rewrites documents for the profile and validates them with the
// additional BR-DE rules.
package xrechnung

import (
	"strings"

	"github.com/rezonia/peppol-connector/internal/model"
)

const (
	// CustomizationID identifies XRechnung 3.0 documents
	CustomizationID = "urn:cen.eu:en16931:2017#compliant#urn:xeinkauf.de:kosit:xrechnung_3.0"
	// ReferenceScheme tags the additional document reference carrying the routing id
	ReferenceScheme = "LEITWEG-ID"
	// Profile is the result label of Validate
	Profile = "xrechnung-3.0"
)

// Extend returns a copy of doc adapted to XRechnung. It is idempotent: the
// routing reference is looked up by scheme and updated rather than appended
// a second time.
func Extend(doc model.Document, id RoutingIdentifier) model.Document {
	out := doc.Clone()
	out.CustomizationID = CustomizationID
	routing := id.String()
	if routing == "" {
		return out
	}

	if strings.TrimSpace(out.BuyerReference) == "" {
		out.BuyerReference = routing
	}

	if i := out.FindReference(ReferenceScheme); i >= 0 {
		out.AdditionalReferences[i].ID = routing
		return out
	}
	out.AdditionalReferences = append(out.AdditionalReferences, model.DocumentReference{
		ID:       routing,
		SchemeID: ReferenceScheme,
	})
	return out
}

// RoutingIdentifierOf returns the routing id recorded on doc, preferring the
// LEITWEG-ID reference over the buyer reference
func RoutingIdentifierOf(doc *model.Document) (RoutingIdentifier, bool) {
	if i := doc.FindReference(ReferenceScheme); i >= 0 {
		if id, err := ParseRoutingIdentifier(doc.AdditionalReferences[i].ID); err == nil {
			return id, true
		}
	}
	if id, err := ParseRoutingIdentifier(doc.BuyerReference); err == nil {
		return id, true
	}
	return RoutingIdentifier{}, false
}
