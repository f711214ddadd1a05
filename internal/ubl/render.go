// Package ubl renders documents as UBL 2.1 XML and reads them back.
//
// Rendering is pure: the output depends only on the document, elements
// appear in schema order, and optional blocks without content are left out.
package ubl

import (
	"errors"
	"fmt"
	"strconv"

	money "github.com/rezonia/peppol-connector/internal/decimal"
	"github.com/rezonia/peppol-connector/internal/model"
)

// UBL 2.1 namespaces
const (
	NamespaceInvoice    = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NamespaceCreditNote = "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2"
	NamespaceCAC        = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NamespaceCBC        = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
)

// ErrUnsupportedKind is returned for documents that are neither invoices nor credit notes
var ErrUnsupportedKind = errors.New("unsupported document kind")

// vocabulary holds the element names that differ between invoice and credit note
type vocabulary struct {
	kind      model.DocumentKind
	root      string
	namespace string
	typeCode  string
	line      string
	quantity  string
}

var (
	invoiceVocabulary = vocabulary{
		kind:      model.KindInvoice,
		root:      "Invoice",
		namespace: NamespaceInvoice,
		typeCode:  "cbc:InvoiceTypeCode",
		line:      "cac:InvoiceLine",
		quantity:  "cbc:InvoicedQuantity",
	}
	creditNoteVocabulary = vocabulary{
		kind:      model.KindCreditNote,
		root:      "CreditNote",
		namespace: NamespaceCreditNote,
		typeCode:  "cbc:CreditNoteTypeCode",
		line:      "cac:CreditNoteLine",
		quantity:  "cbc:CreditedQuantity",
	}
)

func vocabularyFor(kind model.DocumentKind) (vocabulary, error) {
	switch kind {
	case model.KindInvoice:
		return invoiceVocabulary, nil
	case model.KindCreditNote:
		return creditNoteVocabulary, nil
	default:
		return vocabulary{}, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
}

// Render renders doc as UBL XML according to its kind
func Render(doc *model.Document) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("ubl: nil document")
	}
	v, err := vocabularyFor(doc.Kind)
	if err != nil {
		return nil, err
	}
	return render(doc, v), nil
}

// RenderInvoice renders doc with the invoice vocabulary regardless of its kind
func RenderInvoice(doc *model.Document) []byte {
	return render(doc, invoiceVocabulary)
}

// RenderCreditNote renders doc with the credit note vocabulary regardless of its kind
func RenderCreditNote(doc *model.Document) []byte {
	return render(doc, creditNoteVocabulary)
}

type renderer struct {
	w        *writer
	v        vocabulary
	currency string
}

func render(doc *model.Document, v vocabulary) []byte {
	r := &renderer{w: newWriter(), v: v, currency: doc.Currency}
	r.document(doc)
	return r.w.bytes()
}

func (r *renderer) document(doc *model.Document) {
	w := r.w
	w.open(r.v.root,
		attr{"xmlns", r.v.namespace},
		attr{"xmlns:cac", NamespaceCAC},
		attr{"xmlns:cbc", NamespaceCBC},
	)

	w.optional("cbc:CustomizationID", doc.CustomizationID)
	w.optional("cbc:ProfileID", doc.ProfileID)
	w.element("cbc:ID", doc.ID)
	w.date("cbc:IssueDate", doc.IssueDate)
	// CreditNote-2 places TaxPointDate before the type code, Invoice-2 after the notes
	if r.v.kind == model.KindInvoice {
		w.date("cbc:DueDate", doc.DueDate)
	} else {
		w.date("cbc:TaxPointDate", doc.TaxPointDate)
	}
	w.optional(r.v.typeCode, doc.TypeCode)
	for _, note := range doc.Notes {
		w.optional("cbc:Note", note)
	}
	if r.v.kind == model.KindInvoice {
		w.date("cbc:TaxPointDate", doc.TaxPointDate)
	}
	w.element("cbc:DocumentCurrencyCode", doc.Currency)
	w.optional("cbc:AccountingCost", doc.AccountingCost)
	w.optional("cbc:BuyerReference", doc.BuyerReference)

	r.period("cac:InvoicePeriod", doc.InvoicePeriod)
	w.wrapped("cac:OrderReference", "cbc:ID", doc.OrderReference)
	r.billingReferences(doc)
	w.wrapped("cac:ContractDocumentReference", "cbc:ID", doc.ContractReference)
	for _, ref := range doc.AdditionalReferences {
		r.additionalReference(ref)
	}
	if r.v.kind == model.KindInvoice {
		w.wrapped("cac:ProjectReference", "cbc:ID", doc.ProjectReference)
	}

	w.open("cac:AccountingSupplierParty")
	r.party(doc.Seller)
	w.close("cac:AccountingSupplierParty")
	w.open("cac:AccountingCustomerParty")
	r.party(doc.Buyer)
	w.close("cac:AccountingCustomerParty")

	r.delivery(doc.Delivery)
	r.paymentMeans(doc)
	w.wrapped("cac:PaymentTerms", "cbc:Note", doc.PaymentTerms)
	for _, ac := range doc.AllowanceCharges {
		r.allowanceCharge(ac, true)
	}
	r.taxTotal(doc.TaxTotal)
	r.monetaryTotal(doc.Totals)
	for _, line := range doc.Lines {
		r.line(line)
	}

	w.close(r.v.root)
}

func (r *renderer) period(name string, p *model.Period) {
	if p.IsZero() {
		return
	}
	r.w.open(name)
	r.w.date("cbc:StartDate", p.Start)
	r.w.date("cbc:EndDate", p.End)
	r.w.close(name)
}

func (r *renderer) billingReferences(doc *model.Document) {
	for _, ref := range doc.BillingReferences {
		if ref.InvoiceID == "" && ref.IssueDate.IsZero() {
			continue
		}
		r.w.open("cac:BillingReference")
		r.w.open("cac:InvoiceDocumentReference")
		r.w.element("cbc:ID", ref.InvoiceID)
		r.w.date("cbc:IssueDate", ref.IssueDate)
		r.w.close("cac:InvoiceDocumentReference")
		r.w.close("cac:BillingReference")
	}
}

func (r *renderer) additionalReference(ref model.DocumentReference) {
	if ref.ID == "" {
		return
	}
	r.w.open("cac:AdditionalDocumentReference")
	r.w.element("cbc:ID", ref.ID, attr{"schemeID", ref.SchemeID})
	r.w.optional("cbc:DocumentTypeCode", ref.TypeCode)
	r.w.optional("cbc:DocumentDescription", ref.Description)
	r.w.close("cac:AdditionalDocumentReference")
}

func (r *renderer) party(p model.Party) {
	w := r.w
	w.open("cac:Party")
	w.optional("cbc:EndpointID", p.EndpointID.Value, attr{"schemeID", p.EndpointID.SchemeID})
	for _, id := range p.Identifications {
		w.wrapped("cac:PartyIdentification", "cbc:ID", id.Value, attr{"schemeID", id.SchemeID})
	}
	w.wrapped("cac:PartyName", "cbc:Name", p.Name)
	r.address("cac:PostalAddress", p.Address)

	if p.VATID != "" {
		w.open("cac:PartyTaxScheme")
		w.element("cbc:CompanyID", p.VATID)
		r.taxScheme()
		w.close("cac:PartyTaxScheme")
	}

	registration := p.LegalName
	if registration == "" {
		registration = p.Name
	}
	if registration != "" || !p.CompanyID.IsZero() {
		w.open("cac:PartyLegalEntity")
		w.optional("cbc:RegistrationName", registration)
		w.optional("cbc:CompanyID", p.CompanyID.Value, attr{"schemeID", p.CompanyID.SchemeID})
		w.close("cac:PartyLegalEntity")
	}

	if !p.Contact.IsZero() {
		w.open("cac:Contact")
		w.optional("cbc:Name", p.Contact.Name)
		w.optional("cbc:Telephone", p.Contact.Telephone)
		w.optional("cbc:ElectronicMail", p.Contact.Email)
		w.close("cac:Contact")
	}
	w.close("cac:Party")
}

func (r *renderer) address(name string, a model.Address) {
	if a == (model.Address{}) {
		return
	}
	w := r.w
	w.open(name)
	w.optional("cbc:StreetName", a.Street)
	w.optional("cbc:AdditionalStreetName", a.AdditionalStreet)
	w.optional("cbc:CityName", a.City)
	w.optional("cbc:PostalZone", a.PostalCode)
	w.optional("cbc:CountrySubentity", a.Subdivision)
	w.wrapped("cac:Country", "cbc:IdentificationCode", a.CountryCode)
	w.close(name)
}

func (r *renderer) taxScheme() {
	r.w.open("cac:TaxScheme")
	r.w.element("cbc:ID", model.TaxSchemeVAT)
	r.w.close("cac:TaxScheme")
}

func (r *renderer) delivery(d *model.Delivery) {
	if d == nil {
		return
	}
	hasAddress := d.Address != nil && *d.Address != (model.Address{})
	hasLocation := !d.LocationID.IsZero() || hasAddress
	if d.Date.IsZero() && !hasLocation && d.PartyName == "" {
		return
	}
	w := r.w
	w.open("cac:Delivery")
	w.date("cbc:ActualDeliveryDate", d.Date)
	if hasLocation {
		w.open("cac:DeliveryLocation")
		w.optional("cbc:ID", d.LocationID.Value, attr{"schemeID", d.LocationID.SchemeID})
		if hasAddress {
			r.address("cac:Address", *d.Address)
		}
		w.close("cac:DeliveryLocation")
	}
	if d.PartyName != "" {
		w.open("cac:DeliveryParty")
		w.wrapped("cac:PartyName", "cbc:Name", d.PartyName)
		w.close("cac:DeliveryParty")
	}
	w.close("cac:Delivery")
}

func (r *renderer) paymentMeans(doc *model.Document) {
	pm := doc.PaymentMeans
	if pm == nil {
		return
	}
	w := r.w
	w.open("cac:PaymentMeans")
	w.element("cbc:PaymentMeansCode", pm.Code)
	if r.v.kind == model.KindCreditNote {
		w.date("cbc:PaymentDueDate", doc.DueDate)
	}
	w.optional("cbc:PaymentID", pm.PaymentID)
	if acc := pm.Account; acc != nil && acc.ID != "" {
		w.open("cac:PayeeFinancialAccount")
		w.element("cbc:ID", acc.ID)
		w.optional("cbc:Name", acc.Name)
		w.wrapped("cac:FinancialInstitutionBranch", "cbc:ID", acc.BIC)
		w.close("cac:PayeeFinancialAccount")
	}
	w.close("cac:PaymentMeans")
}

// allowanceCharge writes a document or line level allowance/charge; only
// document level entries carry a tax category
func (r *renderer) allowanceCharge(ac model.AllowanceCharge, withCategory bool) {
	w := r.w
	w.open("cac:AllowanceCharge")
	w.element("cbc:ChargeIndicator", strconv.FormatBool(ac.ChargeIndicator))
	w.optional("cbc:AllowanceChargeReasonCode", ac.ReasonCode)
	w.optional("cbc:AllowanceChargeReason", ac.Reason)
	if !ac.Percentage.IsZero() {
		w.element("cbc:MultiplierFactorNumeric", money.FormatQuantity(ac.Percentage))
	}
	w.amount("cbc:Amount", ac.Amount, r.currency)
	w.optionalAmount("cbc:BaseAmount", ac.BaseAmount, r.currency)
	if withCategory && ac.TaxCategory != nil {
		r.taxCategory("cac:TaxCategory", *ac.TaxCategory, false)
	}
	w.close("cac:AllowanceCharge")
}

func (r *renderer) taxCategory(name string, c model.TaxCategory, exemption bool) {
	w := r.w
	w.open(name)
	w.element("cbc:ID", c.ID)
	if c.HasRate() {
		w.element("cbc:Percent", money.FormatQuantity(c.Percent))
	}
	if exemption {
		w.optional("cbc:TaxExemptionReasonCode", c.ExemptionReasonCode)
		w.optional("cbc:TaxExemptionReason", c.ExemptionReason)
	}
	r.taxScheme()
	w.close(name)
}

func (r *renderer) taxTotal(t model.TaxTotal) {
	w := r.w
	w.open("cac:TaxTotal")
	w.amount("cbc:TaxAmount", t.TaxAmount, r.currency)
	for _, st := range t.Subtotals {
		w.open("cac:TaxSubtotal")
		w.amount("cbc:TaxableAmount", st.TaxableAmount, r.currency)
		w.amount("cbc:TaxAmount", st.TaxAmount, r.currency)
		r.taxCategory("cac:TaxCategory", st.Category, true)
		w.close("cac:TaxSubtotal")
	}
	w.close("cac:TaxTotal")
}

func (r *renderer) monetaryTotal(t model.MonetaryTotal) {
	w := r.w
	w.open("cac:LegalMonetaryTotal")
	w.amount("cbc:LineExtensionAmount", t.LineExtensionAmount, r.currency)
	w.amount("cbc:TaxExclusiveAmount", t.TaxExclusiveAmount, r.currency)
	w.amount("cbc:TaxInclusiveAmount", t.TaxInclusiveAmount, r.currency)
	w.optionalAmount("cbc:AllowanceTotalAmount", t.AllowanceTotalAmount, r.currency)
	w.optionalAmount("cbc:ChargeTotalAmount", t.ChargeTotalAmount, r.currency)
	w.optionalAmount("cbc:PrepaidAmount", t.PrepaidAmount, r.currency)
	w.optionalAmount("cbc:PayableRoundingAmount", t.PayableRoundingAmount, r.currency)
	w.amount("cbc:PayableAmount", t.PayableAmount, r.currency)
	w.close("cac:LegalMonetaryTotal")
}

func (r *renderer) line(l model.Line) {
	w := r.w
	w.open(r.v.line)
	w.element("cbc:ID", l.ID)
	w.optional("cbc:Note", l.Note)
	w.quantity(r.v.quantity, l.Quantity)
	w.amount("cbc:LineExtensionAmount", l.LineExtensionAmount, r.currency)
	w.optional("cbc:AccountingCost", l.AccountingCost)
	r.period("cac:InvoicePeriod", l.Period)
	w.wrapped("cac:OrderLineReference", "cbc:LineID", l.OrderLineReference)
	for _, ac := range l.AllowanceCharges {
		r.allowanceCharge(ac, false)
	}
	r.item(l.Item)
	r.price(l.Price)
	w.close(r.v.line)
}

func (r *renderer) item(it model.Item) {
	w := r.w
	w.open("cac:Item")
	w.optional("cbc:Description", it.Description)
	w.element("cbc:Name", it.Name)
	w.wrapped("cac:BuyersItemIdentification", "cbc:ID", it.BuyersItemID)
	w.wrapped("cac:SellersItemIdentification", "cbc:ID", it.SellersItemID)
	w.wrapped("cac:StandardItemIdentification", "cbc:ID", it.StandardItemID.Value, attr{"schemeID", it.StandardItemID.SchemeID})
	w.wrapped("cac:OriginCountry", "cbc:IdentificationCode", it.OriginCountry)
	r.taxCategory("cac:ClassifiedTaxCategory", it.ClassifiedTaxCategory, false)
	w.close("cac:Item")
}

func (r *renderer) price(p model.Price) {
	w := r.w
	w.open("cac:Price")
	w.amount("cbc:PriceAmount", p.Amount, r.currency)
	if p.BaseQuantity != nil {
		w.quantity("cbc:BaseQuantity", *p.BaseQuantity)
	}
	if p.AllowanceCharge != nil {
		r.allowanceCharge(*p.AllowanceCharge, false)
	}
	w.close("cac:Price")
}
