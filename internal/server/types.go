package server

import (
	"github.com/rezonia/peppol-connector/internal/model"
)

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// RoutingIDResponse is the response for the routing identifier endpoint
type RoutingIDResponse struct {
	Input         string `json:"input"`
	Valid         bool   `json:"valid"`
	Coarse        string `json:"coarse,omitempty"`
	Fine          string `json:"fine,omitempty"`
	Check         string `json:"check,omitempty"`
	ChecksumValid bool   `json:"checksum_valid"`
	ExpectedCheck string `json:"expected_check,omitempty"`
	Error         string `json:"error,omitempty"`
}

// SMLResponse lists the DNS names used to locate a participant's SMP
type SMLResponse struct {
	Participant   string `json:"participant"`
	Hash          string `json:"hash"`
	Hostname      string `json:"hostname"`
	NAPTRHostname string `json:"naptr_hostname"`
}

// XMLResponse is the response for storing or generating a payload
type XMLResponse struct {
	DocumentID string `json:"document_id"`
	Size       int    `json:"size"`
	Generated  bool   `json:"generated"`
}

// TransitionRequest is the body of the manual transition endpoint
type TransitionRequest struct {
	Status  model.Status `json:"status" binding:"required"`
	Message string       `json:"message"`
	Actor   string       `json:"actor"`
}

// ListResponse wraps a document listing
type ListResponse struct {
	Documents []*model.PeppolDocument `json:"documents"`
	Count     int                     `json:"count"`
}
