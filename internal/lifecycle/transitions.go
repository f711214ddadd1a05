package lifecycle

import "github.com/rezonia/peppol-connector/internal/model"

// transitions lists the legal targets of every state. ACCEPTED is terminal.
var transitions = map[model.Status][]model.Status{
	model.StatusDraft:     {model.StatusValidated, model.StatusFailed},
	model.StatusValidated: {model.StatusSigned, model.StatusSubmitted, model.StatusFailed},
	model.StatusSigned:    {model.StatusSubmitted, model.StatusFailed},
	model.StatusSubmitted: {model.StatusDelivered, model.StatusRejected, model.StatusFailed},
	model.StatusDelivered: {model.StatusAccepted, model.StatusRejected},
	model.StatusAccepted:  nil,
	model.StatusRejected:  {model.StatusDraft},
	model.StatusFailed:    {model.StatusDraft},
}

// CanTransition reports whether from -> to is in the transition table
func CanTransition(from, to model.Status) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the states reachable from s in one step
func AllowedTargets(s model.Status) []model.Status {
	return append([]model.Status(nil), transitions[s]...)
}

// IsTerminal reports whether no transition leaves s
func IsTerminal(s model.Status) bool {
	return s.IsKnown() && len(transitions[s]) == 0
}

// mapExternal maps an Access Point status onto the lifecycle. pending and
// sent are both still in flight and map to SUBMITTED.
func mapExternal(status string) (model.Status, bool) {
	switch status {
	case "pending", "sent":
		return model.StatusSubmitted, true
	case "delivered":
		return model.StatusDelivered, true
	case "rejected":
		return model.StatusRejected, true
	case "failed":
		return model.StatusFailed, true
	}
	return "", false
}
