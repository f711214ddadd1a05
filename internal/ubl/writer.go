package ubl

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/peppol-connector/internal/decimal"
	"github.com/rezonia/peppol-connector/internal/model"
)

const (
	xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
	indent    = "  "
)

// attr is an attribute; attributes with an empty value are not written
type attr struct {
	name  string
	value string
}

// writer emits indented XML in call order. Output depends only on the
// sequence of calls, which keeps rendering deterministic.
type writer struct {
	buf   bytes.Buffer
	depth int
}

func newWriter() *writer {
	w := &writer{}
	w.buf.WriteString(xmlHeader)
	return w
}

func (w *writer) bytes() []byte {
	return w.buf.Bytes()
}

func (w *writer) startTag(name string, attrs []attr) {
	w.buf.WriteString(strings.Repeat(indent, w.depth))
	w.buf.WriteByte('<')
	w.buf.WriteString(name)
	for _, a := range attrs {
		if a.value == "" {
			continue
		}
		w.buf.WriteByte(' ')
		w.buf.WriteString(a.name)
		w.buf.WriteString(`="`)
		w.buf.WriteString(Escape(a.value))
		w.buf.WriteByte('"')
	}
	w.buf.WriteByte('>')
}

// open starts a container element
func (w *writer) open(name string, attrs ...attr) {
	w.startTag(name, attrs)
	w.buf.WriteByte('\n')
	w.depth++
}

// close ends the container element opened last
func (w *writer) close(name string) {
	w.depth--
	w.buf.WriteString(strings.Repeat(indent, w.depth))
	w.buf.WriteString("</")
	w.buf.WriteString(name)
	w.buf.WriteString(">\n")
}

// element writes a leaf element, even when text is empty. Surrounding
// whitespace is dropped.
func (w *writer) element(name, text string, attrs ...attr) {
	w.startTag(name, attrs)
	w.buf.WriteString(Escape(strings.TrimSpace(text)))
	w.buf.WriteString("</")
	w.buf.WriteString(name)
	w.buf.WriteString(">\n")
}

// optional writes a leaf element only when text is not blank
func (w *writer) optional(name, text string, attrs ...attr) {
	if strings.TrimSpace(text) == "" {
		return
	}
	w.element(name, text, attrs...)
}

func (w *writer) date(name string, d model.Date) {
	if d.IsZero() {
		return
	}
	w.element(name, d.String())
}

// amount writes a monetary amount with two decimals and its currency
func (w *writer) amount(name string, v decimal.Decimal, currency string) {
	w.element(name, money.FormatAmount(v), attr{"currencyID", currency})
}

// optionalAmount omits zero amounts
func (w *writer) optionalAmount(name string, v decimal.Decimal, currency string) {
	if v.IsZero() {
		return
	}
	w.amount(name, v, currency)
}

func (w *writer) quantity(name string, q model.Quantity) {
	w.element(name, money.FormatQuantity(q.Value), attr{"unitCode", q.UnitCode})
}

// wrapped writes <outer><inner>text</inner></outer> when text is not blank
func (w *writer) wrapped(outer, inner, text string, attrs ...attr) {
	if strings.TrimSpace(text) == "" {
		return
	}
	w.open(outer)
	w.element(inner, text, attrs...)
	w.close(outer)
}
