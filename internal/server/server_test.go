package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/peppol-connector/internal/lifecycle"
	"github.com/rezonia/peppol-connector/internal/model"
	"github.com/rezonia/peppol-connector/internal/model/modeltest"
	"github.com/rezonia/peppol-connector/internal/network"
	"github.com/rezonia/peppol-connector/internal/registry"
	"github.com/rezonia/peppol-connector/internal/server"
	"github.com/rezonia/peppol-connector/internal/ubl"
	"github.com/rezonia/peppol-connector/internal/xrechnung"
)

func newTestServer(t *testing.T, opts ...lifecycle.Option) *server.Server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts = append([]lifecycle.Option{lifecycle.WithLogger(logger)}, opts...)
	manager := lifecycle.NewManager(registry.NewMemoryStore(), opts...)
	config := &server.Config{
		Address: ":8080",
		Debug:   true,
	}
	return server.NewServer(config, manager, logger)
}

func do(t *testing.T, srv *server.Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.NotEmpty(t, response["time"])
}

func TestRenderEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/api/v1/render", mustJSON(t, modeltest.Invoice()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")

	inv := modeltest.Invoice()
	want, err := ubl.Render(&inv)
	require.NoError(t, err)
	assert.Equal(t, string(want), w.Body.String())
}

func TestRenderEndpoint_BadInput(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/v1/render", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/v1/render", []byte("{not json")).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/v1/render", []byte("<Order/>")).Code)
}

func TestValidateEndpoint(t *testing.T) {
	srv := newTestServer(t)
	inv := modeltest.Invoice()
	xml, err := ubl.Render(&inv)
	require.NoError(t, err)

	tests := []struct {
		name  string
		path  string
		body  []byte
		valid bool
	}{
		{"json invoice", "/api/v1/validate", mustJSON(t, inv), true},
		{"ubl invoice", "/api/v1/validate", xml, true},
		{"xrechnung without routing id", "/api/v1/validate?profile=xrechnung", mustJSON(t, func() model.Document {
			d := modeltest.Invoice()
			d.BuyerReference = ""
			return d
		}()), false},
		{"zero lines", "/api/v1/validate", mustJSON(t, func() model.Document {
			d := modeltest.Invoice()
			d.Lines = nil
			return d
		}()), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusOK, w.Code)

			var response model.ValidationResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.valid, response.Valid)
		})
	}
}

func TestValidateEndpoint_UnknownProfile(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodPost, "/api/v1/validate?profile=facturx", mustJSON(t, modeltest.Invoice()))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtendEndpoint(t *testing.T) {
	srv := newTestServer(t)
	body := mustJSON(t, modeltest.Invoice())

	w := do(t, srv, http.MethodPost, "/api/v1/xrechnung/extend?routing_id=04011000-12345-03", body)
	require.Equal(t, http.StatusOK, w.Code)

	var doc model.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, xrechnung.CustomizationID, doc.CustomizationID)
	assert.Equal(t, 0, doc.FindReference(xrechnung.ReferenceScheme))

	w = do(t, srv, http.MethodPost, "/api/v1/xrechnung/extend?routing_id=04011000-12345-03&format=xml", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "xrechnung_3.0")

	w = do(t, srv, http.MethodPost, "/api/v1/xrechnung/extend?routing_id=invalid", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutingIDEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/api/v1/routing-ids/04011000-12345-67", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ok server.RoutingIDResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	assert.True(t, ok.Valid)
	assert.Equal(t, "04011000", ok.Coarse)
	assert.Equal(t, "12345", ok.Fine)
	assert.Equal(t, "67", ok.Check)
	assert.False(t, ok.ChecksumValid)
	assert.Equal(t, "03", ok.ExpectedCheck)

	w = do(t, srv, http.MethodGet, "/api/v1/routing-ids/invalid", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var bad server.RoutingIDResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bad))
	assert.False(t, bad.Valid)
	assert.NotEmpty(t, bad.Error)
}

func TestSMLEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/api/v1/participants/0088:7300010000001/sml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var response server.SMLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "B-43421276b6b314e616e2a8d409fb98a2", response.Hash)
	assert.True(t, strings.HasPrefix(response.Hostname, "B-43421276b6b314e616e2a8d409fb98a2.iso6523-actorid-upis."))
	assert.True(t, strings.HasSuffix(response.Hostname, network.SMLZoneProduction))

	w = do(t, srv, http.MethodGet, "/api/v1/participants/0088:7300010000001/sml?zone="+network.SMLZoneTest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, strings.HasSuffix(response.Hostname, network.SMLZoneTest))

	w = do(t, srv, http.MethodGet, "/api/v1/participants/bogus/sml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentLifecycleEndpoints(t *testing.T) {
	gw := network.NewMemoryGateway()
	srv := newTestServer(t, lifecycle.WithTransmitter(gw))

	w := do(t, srv, http.MethodPost, "/api/v1/documents", mustJSON(t, lifecycle.CreateRequest{
		DocumentID: "inv-1",
		Document:   modeltest.Invoice(),
	}))
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/documents", mustJSON(t, lifecycle.CreateRequest{
		DocumentID: "inv-1",
		Document:   modeltest.Invoice(),
	}))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/documents/inv-1/submit", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/documents/inv-1/validate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodPost, "/api/v1/documents/inv-1/xml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var xmlResp server.XMLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &xmlResp))
	assert.True(t, xmlResp.Generated)
	assert.Positive(t, xmlResp.Size)

	w = do(t, srv, http.MethodPost, "/api/v1/documents/inv-1/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var submit lifecycle.SubmitResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submit))
	assert.True(t, submit.Success)

	_, err := gw.Deliver(submit.MessageID)
	require.NoError(t, err)

	w = do(t, srv, http.MethodPost, "/api/v1/documents/inv-1/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc model.PeppolDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, model.StatusDelivered, doc.Status)
	require.NotNil(t, doc.Receipt)
	assert.Len(t, doc.StatusHistory, 4)

	w = do(t, srv, http.MethodPost, "/api/v1/documents/inv-1/transition", mustJSON(t, server.TransitionRequest{Status: "accepted", Actor: "buyer"}))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, model.StatusAccepted, doc.Status)

	w = do(t, srv, http.MethodPost, "/api/v1/documents/inv-1/transition", mustJSON(t, server.TransitionRequest{Status: model.StatusDraft}))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, srv, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats lifecycle.Statistics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[model.StatusAccepted])
}

func TestDocumentEndpoints_ListGetDelete(t *testing.T) {
	srv := newTestServer(t)
	for _, id := range []string{"a", "b"} {
		w := do(t, srv, http.MethodPost, "/api/v1/documents", mustJSON(t, lifecycle.CreateRequest{DocumentID: id, Document: modeltest.Invoice()}))
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := do(t, srv, http.MethodPost, "/api/v1/documents", mustJSON(t, lifecycle.CreateRequest{DocumentID: "c", Document: modeltest.CreditNote()}))
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, srv, http.MethodGet, "/api/v1/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list server.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Count)

	w = do(t, srv, http.MethodGet, "/api/v1/documents?type=CreditNote&status=draft", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	w = do(t, srv, http.MethodGet, "/api/v1/documents/a", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodDelete, "/api/v1/documents/a", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, srv, http.MethodGet, "/api/v1/documents/a", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var errResp server.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, lifecycle.ErrCodeNotFound, errResp.Code)
}

func TestDocumentEndpoints_Errors(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/v1/documents",
		mustJSON(t, lifecycle.CreateRequest{DocumentID: "inv-1", Document: modeltest.Invoice()})).Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   []byte
		status int
	}{
		{"create bad json", http.MethodPost, "/api/v1/documents", []byte("{"), http.StatusBadRequest},
		{"create bad participant", http.MethodPost, "/api/v1/documents", mustJSON(t, lifecycle.CreateRequest{
			Sender: model.NewParticipant("x", "1"), Document: modeltest.Invoice(),
		}), http.StatusUnprocessableEntity},
		{"submit without transmitter", http.MethodPost, "/api/v1/documents/inv-1/submit", nil, http.StatusServiceUnavailable},
		{"refresh without transmitter", http.MethodPost, "/api/v1/documents/inv-1/refresh", nil, http.StatusServiceUnavailable},
		{"transition unknown doc", http.MethodPost, "/api/v1/documents/nope/transition", mustJSON(t, server.TransitionRequest{Status: model.StatusValidated}), http.StatusNotFound},
		{"transition missing status", http.MethodPost, "/api/v1/documents/inv-1/transition", []byte(`{}`), http.StatusBadRequest},
		{"validate unknown doc", http.MethodPost, "/api/v1/documents/nope/validate", nil, http.StatusNotFound},
		{"delete unknown doc", http.MethodDelete, "/api/v1/documents/nope", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestSubmitEndpoint_Rejected(t *testing.T) {
	gw := network.NewMemoryGateway(network.WithRejection(func(network.SendRequest) string { return "receiver unknown" }))
	srv := newTestServer(t, lifecycle.WithTransmitter(gw))
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/v1/documents",
		mustJSON(t, lifecycle.CreateRequest{DocumentID: "inv-1", Document: modeltest.Invoice()})).Code)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/v1/documents/inv-1/validate", nil).Code)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/v1/documents/inv-1/xml", []byte("<Invoice/>")).Code)

	w := do(t, srv, http.MethodPost, "/api/v1/documents/inv-1/submit", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	var result lifecycle.SubmitResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, "receiver unknown", result.Error)

	w = do(t, srv, http.MethodGet, "/api/v1/documents/inv-1", nil)
	var doc model.PeppolDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, model.StatusFailed, doc.Status)
}
