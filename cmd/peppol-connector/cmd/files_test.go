package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/peppol-connector/internal/model"
	"github.com/rezonia/peppol-connector/internal/model/modeltest"
	"github.com/rezonia/peppol-connector/internal/ubl"
)

func TestDecodeDocument(t *testing.T) {
	doc := modeltest.Invoice()
	asJSON, err := json.Marshal(doc)
	require.NoError(t, err)
	asXML, err := ubl.Render(&doc)
	require.NoError(t, err)

	tests := []struct {
		name  string
		data  []byte
		input string
	}{
		{"json", asJSON, inputJSON},
		{"ubl", asXML, inputUBL},
		{"ubl with leading whitespace", append([]byte("\n  "), asXML...), inputUBL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, input, err := decodeDocument(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.input, input)
			assert.Equal(t, doc.ID, got.ID)
			assert.Equal(t, model.KindInvoice, got.Kind)
		})
	}
}

func TestDecodeDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "   "},
		{"bad json", "{not json"},
		{"unknown root", "<Order/>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeDocument([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestDecodeDocument_DefaultsKind(t *testing.T) {
	doc, _, err := decodeDocument([]byte(`{"id":"INV-1"}`))
	require.NoError(t, err)
	assert.Equal(t, model.KindInvoice, doc.Kind)
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.xml", "b.json", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := collectFiles([]string{dir})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.xml"), filepath.Join(dir, "b.json")}, files)

	files, err = collectFiles([]string{filepath.Join(dir, "*.xml")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.xml")}, files)

	_, err = collectFiles([]string{filepath.Join(dir, "missing.xml")})
	assert.Error(t, err)
}

func TestCheckRoutingID(t *testing.T) {
	ok := checkRoutingID("04011000-12345-03")
	assert.True(t, ok.Valid)
	assert.True(t, ok.ChecksumValid)
	assert.Equal(t, "04011000", ok.Coarse)

	mismatch := checkRoutingID("04011000-12345-67")
	assert.True(t, mismatch.Valid)
	assert.False(t, mismatch.ChecksumValid)
	assert.Equal(t, "03", mismatch.ExpectedCheck)

	bad := checkRoutingID("nope")
	assert.False(t, bad.Valid)
	assert.NotEmpty(t, bad.Error)
}
