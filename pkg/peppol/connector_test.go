package peppol_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/peppol-connector/internal/model/modeltest"
	"github.com/rezonia/peppol-connector/internal/network"
	"github.com/rezonia/peppol-connector/pkg/peppol"
)

func TestValidate(t *testing.T) {
	doc := modeltest.Invoice()
	result := peppol.Validate(&doc)
	assert.True(t, result.Valid, "%v", result.Errors)
}

func TestRenderParseRoundTrip(t *testing.T) {
	doc := modeltest.Invoice()
	xml, err := peppol.Render(&doc)
	require.NoError(t, err)

	parsed, err := peppol.Parse(context.Background(), bytes.NewReader(xml))
	require.NoError(t, err)
	assert.Equal(t, doc.ID, parsed.ID)
	assert.Equal(t, peppol.KindInvoice, parsed.Kind)
	assert.Len(t, parsed.Lines, len(doc.Lines))
}

func TestExtendAndValidateXRechnung(t *testing.T) {
	id, err := peppol.ParseRoutingIdentifier("04011000-12345-03")
	require.NoError(t, err)
	assert.True(t, id.ChecksumValid())

	doc := modeltest.Invoice()
	extended := peppol.Extend(doc, id)
	assert.NotEqual(t, doc.CustomizationID, extended.CustomizationID)

	result := peppol.ValidateXRechnung(&extended)
	assert.NotEmpty(t, result.Profile)
}

func TestParseRoutingIdentifier_Invalid(t *testing.T) {
	_, err := peppol.ParseRoutingIdentifier("not-a-routing-id")
	require.Error(t, err)
}

func TestNewManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	gateway := network.NewMemoryGateway()
	m := peppol.NewManager(nil, peppol.WithTransmitter(gateway))

	created, err := m.CreateDocument(ctx, peppol.CreateRequest{DocumentID: "doc-1", Document: modeltest.Invoice()})
	require.NoError(t, err)
	assert.Equal(t, peppol.StatusDraft, created.Status)

	result, err := m.ValidateDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.True(t, result.Valid)

	_, err = m.GenerateXML(ctx, "doc-1")
	require.NoError(t, err)

	submitted, err := m.SubmitDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, submitted.Success)

	doc, err := m.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, peppol.StatusSubmitted, doc.Status)
	assert.Len(t, gateway.Sent(), 1)
}

func TestValidateBatch(t *testing.T) {
	good := modeltest.Invoice()
	bad := modeltest.Invoice()
	bad.Lines = nil

	results, err := peppol.ValidateBatch(context.Background(), "peppol", []*peppol.Document{&good, &bad})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Valid)
	assert.False(t, results[1].Valid)
}

func TestValidateBatch_Errors(t *testing.T) {
	_, err := peppol.ValidateBatch(context.Background(), "unknown", nil)
	require.Error(t, err)

	doc := modeltest.Invoice()
	_, err = peppol.ValidateBatch(context.Background(), "", []*peppol.Document{&doc, nil})
	require.Error(t, err)
}
