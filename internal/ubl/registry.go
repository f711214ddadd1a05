package ubl

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"

	"github.com/rezonia/peppol-connector/internal/model"
)

// Reader decodes one UBL document type into a Document
type Reader interface {
	// Read parses XML content into a Document
	Read(ctx context.Context, r io.Reader) (*model.Document, error)

	// CanRead returns true if the reader handles this content
	CanRead(content []byte) bool

	// Kind returns the document kind the reader produces
	Kind() model.DocumentKind
}

// Registry holds the registered readers
type Registry struct {
	readers []Reader
}

// NewRegistry creates a registry with the invoice and credit note readers
func NewRegistry() *Registry {
	return &Registry{
		readers: []Reader{
			NewInvoiceReader(),
			NewCreditNoteReader(),
		},
	}
}

// Detect picks the reader for the content's root element
func (r *Registry) Detect(content []byte) (Reader, error) {
	for _, rd := range r.readers {
		if rd.CanRead(content) {
			return rd, nil
		}
	}
	return nil, model.NewParseError("", "root", "unknown XML document, no matching reader found", nil)
}

// Parse parses content with the matching reader
func (r *Registry) Parse(ctx context.Context, content []byte) (*model.Document, error) {
	rd, err := r.Detect(content)
	if err != nil {
		return nil, err
	}
	return rd.Read(ctx, bytes.NewReader(content))
}

// RegisterReader adds a custom reader that takes priority over the built-in ones
func (r *Registry) RegisterReader(rd Reader) {
	r.readers = append([]Reader{rd}, r.readers...)
}

// GetReader returns the reader for a document kind
func (r *Registry) GetReader(kind model.DocumentKind) Reader {
	for _, rd := range r.readers {
		if rd.Kind() == kind {
			return rd
		}
	}
	return nil
}

var defaultRegistry = NewRegistry()

// Parse reads an invoice or credit note with the default registry
func Parse(content []byte) (*model.Document, error) {
	return defaultRegistry.Parse(context.Background(), content)
}

// rootElement returns the namespace and local name of the first element,
// without building a tree
func rootElement(content []byte) (xml.Name, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.Name{}, errors.New("no root element")
			}
			return xml.Name{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name, nil
		}
	}
}
