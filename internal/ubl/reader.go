package ubl

import (
	"context"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	money "github.com/rezonia/peppol-connector/internal/decimal"
	"github.com/rezonia/peppol-connector/internal/model"
)

// DocumentReader reads UBL invoices or credit notes with etree. Paths use
// local names so any namespace prefix is accepted.
type DocumentReader struct {
	v vocabulary
}

// NewInvoiceReader creates a reader for UBL invoices
func NewInvoiceReader() *DocumentReader {
	return &DocumentReader{v: invoiceVocabulary}
}

// NewCreditNoteReader creates a reader for UBL credit notes
func NewCreditNoteReader() *DocumentReader {
	return &DocumentReader{v: creditNoteVocabulary}
}

// Kind returns the document kind
func (r *DocumentReader) Kind() model.DocumentKind {
	return r.v.kind
}

// CanRead checks the root element name and namespace
func (r *DocumentReader) CanRead(content []byte) bool {
	name, err := rootElement(content)
	if err != nil {
		return false
	}
	return name.Local == r.v.root && (name.Space == "" || name.Space == r.v.namespace)
}

// Read parses UBL XML into a Document
func (r *DocumentReader) Read(ctx context.Context, in io.Reader) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree := etree.NewDocument()
	if _, err := tree.ReadFrom(in); err != nil {
		return nil, model.NewParseError(r.v.kind, "xml", "failed to parse XML", err)
	}
	root := tree.Root()
	if root == nil {
		return nil, model.NewParseError(r.v.kind, "root", "document has no root element", nil)
	}
	if root.Tag != r.v.root {
		return nil, model.NewParseError(r.v.kind, "root", "unexpected root element "+root.Tag, nil)
	}

	d := &decoder{kind: r.v.kind}
	doc := d.document(root, r.v)
	if d.err != nil {
		return nil, d.err
	}
	return doc, nil
}

// decoder keeps the first conversion error so field extraction stays linear
type decoder struct {
	kind model.DocumentKind
	err  error
}

func (d *decoder) fail(field, message string, cause error) {
	if d.err == nil {
		d.err = model.NewParseError(d.kind, field, message, cause)
	}
}

func text(e *etree.Element, path string) string {
	if e == nil {
		return ""
	}
	el := e.FindElement(path)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

func identifier(e *etree.Element, path string) model.Identifier {
	if e == nil {
		return model.Identifier{}
	}
	el := e.FindElement(path)
	if el == nil {
		return model.Identifier{}
	}
	return model.Identifier{
		Value:    strings.TrimSpace(el.Text()),
		SchemeID: el.SelectAttrValue("schemeID", ""),
	}
}

func (d *decoder) decimal(e *etree.Element, path string) decimal.Decimal {
	s := text(e, path)
	if s == "" {
		return decimal.Zero
	}
	v, err := money.FromString(s)
	if err != nil {
		d.fail(path, "invalid number "+s, err)
		return decimal.Zero
	}
	return v
}

func (d *decoder) date(e *etree.Element, path string) model.Date {
	s := text(e, path)
	if s == "" {
		return model.Date{}
	}
	v, err := model.ParseDate(s)
	if err != nil {
		d.fail(path, "invalid date "+s, err)
		return model.Date{}
	}
	return v
}

func (d *decoder) quantity(e *etree.Element, path string) model.Quantity {
	q := model.Quantity{Value: d.decimal(e, path)}
	if el := e.FindElement(path); el != nil {
		q.UnitCode = el.SelectAttrValue("unitCode", "")
	}
	return q
}

func (d *decoder) document(root *etree.Element, v vocabulary) *model.Document {
	doc := &model.Document{
		Kind:            v.kind,
		CustomizationID: text(root, "CustomizationID"),
		ProfileID:       text(root, "ProfileID"),
		ID:              text(root, "ID"),
		IssueDate:       d.date(root, "IssueDate"),
		TypeCode:        text(root, localName(v.typeCode)),
		TaxPointDate:    d.date(root, "TaxPointDate"),
		Currency:        text(root, "DocumentCurrencyCode"),
		AccountingCost:  text(root, "AccountingCost"),
		BuyerReference:  text(root, "BuyerReference"),
		InvoicePeriod:   d.period(root.SelectElement("InvoicePeriod")),
		OrderReference:  text(root, "OrderReference/ID"),
		PaymentTerms:    text(root, "PaymentTerms/Note"),
	}
	if v.kind == model.KindInvoice {
		doc.DueDate = d.date(root, "DueDate")
		doc.ProjectReference = text(root, "ProjectReference/ID")
	} else {
		doc.DueDate = d.date(root, "PaymentMeans/PaymentDueDate")
	}
	for _, n := range root.SelectElements("Note") {
		doc.Notes = append(doc.Notes, strings.TrimSpace(n.Text()))
	}
	for _, br := range root.SelectElements("BillingReference") {
		ref := br.SelectElement("InvoiceDocumentReference")
		doc.BillingReferences = append(doc.BillingReferences, model.BillingReference{
			InvoiceID: text(ref, "ID"),
			IssueDate: d.date(ref, "IssueDate"),
		})
	}
	doc.ContractReference = text(root, "ContractDocumentReference/ID")
	for _, ar := range root.SelectElements("AdditionalDocumentReference") {
		id := identifier(ar, "ID")
		doc.AdditionalReferences = append(doc.AdditionalReferences, model.DocumentReference{
			ID:          id.Value,
			SchemeID:    id.SchemeID,
			TypeCode:    text(ar, "DocumentTypeCode"),
			Description: text(ar, "DocumentDescription"),
		})
	}

	doc.Seller = d.party(root.FindElement("AccountingSupplierParty/Party"))
	doc.Buyer = d.party(root.FindElement("AccountingCustomerParty/Party"))
	doc.Delivery = d.delivery(root.SelectElement("Delivery"))
	doc.PaymentMeans = d.paymentMeans(root.SelectElement("PaymentMeans"))
	for _, ac := range root.SelectElements("AllowanceCharge") {
		doc.AllowanceCharges = append(doc.AllowanceCharges, d.allowanceCharge(ac))
	}

	if tt := root.SelectElement("TaxTotal"); tt != nil {
		doc.TaxTotal.TaxAmount = d.decimal(tt, "TaxAmount")
		for _, st := range tt.SelectElements("TaxSubtotal") {
			doc.TaxTotal.Subtotals = append(doc.TaxTotal.Subtotals, model.TaxSubtotal{
				TaxableAmount: d.decimal(st, "TaxableAmount"),
				TaxAmount:     d.decimal(st, "TaxAmount"),
				Category:      d.taxCategory(st.SelectElement("TaxCategory")),
			})
		}
	}

	if mt := root.SelectElement("LegalMonetaryTotal"); mt != nil {
		doc.Totals = model.MonetaryTotal{
			LineExtensionAmount:   d.decimal(mt, "LineExtensionAmount"),
			TaxExclusiveAmount:    d.decimal(mt, "TaxExclusiveAmount"),
			TaxInclusiveAmount:    d.decimal(mt, "TaxInclusiveAmount"),
			AllowanceTotalAmount:  d.decimal(mt, "AllowanceTotalAmount"),
			ChargeTotalAmount:     d.decimal(mt, "ChargeTotalAmount"),
			PrepaidAmount:         d.decimal(mt, "PrepaidAmount"),
			PayableRoundingAmount: d.decimal(mt, "PayableRoundingAmount"),
			PayableAmount:         d.decimal(mt, "PayableAmount"),
		}
	}

	for _, le := range root.SelectElements(localName(v.line)) {
		doc.Lines = append(doc.Lines, d.line(le, v))
	}
	return doc
}

func (d *decoder) period(e *etree.Element) *model.Period {
	if e == nil {
		return nil
	}
	p := &model.Period{Start: d.date(e, "StartDate"), End: d.date(e, "EndDate")}
	if p.IsZero() {
		return nil
	}
	return p
}

func (d *decoder) party(e *etree.Element) model.Party {
	if e == nil {
		return model.Party{}
	}
	p := model.Party{
		EndpointID: identifier(e, "EndpointID"),
		Name:       text(e, "PartyName/Name"),
		Address:    address(e.SelectElement("PostalAddress")),
		VATID:      text(e, "PartyTaxScheme/CompanyID"),
		LegalName:  text(e, "PartyLegalEntity/RegistrationName"),
		CompanyID:  identifier(e, "PartyLegalEntity/CompanyID"),
	}
	for _, pi := range e.SelectElements("PartyIdentification") {
		p.Identifications = append(p.Identifications, identifier(pi, "ID"))
	}
	if c := e.SelectElement("Contact"); c != nil {
		contact := &model.Contact{
			Name:      text(c, "Name"),
			Telephone: text(c, "Telephone"),
			Email:     text(c, "ElectronicMail"),
		}
		if !contact.IsZero() {
			p.Contact = contact
		}
	}
	return p
}

func address(e *etree.Element) model.Address {
	if e == nil {
		return model.Address{}
	}
	return model.Address{
		Street:           text(e, "StreetName"),
		AdditionalStreet: text(e, "AdditionalStreetName"),
		City:             text(e, "CityName"),
		PostalCode:       text(e, "PostalZone"),
		Subdivision:      text(e, "CountrySubentity"),
		CountryCode:      text(e, "Country/IdentificationCode"),
	}
}

func (d *decoder) delivery(e *etree.Element) *model.Delivery {
	if e == nil {
		return nil
	}
	del := &model.Delivery{
		Date:      d.date(e, "ActualDeliveryDate"),
		PartyName: text(e, "DeliveryParty/PartyName/Name"),
	}
	if loc := e.SelectElement("DeliveryLocation"); loc != nil {
		del.LocationID = identifier(loc, "ID")
		if a := loc.SelectElement("Address"); a != nil {
			addr := address(a)
			del.Address = &addr
		}
	}
	return del
}

func (d *decoder) paymentMeans(e *etree.Element) *model.PaymentMeans {
	if e == nil {
		return nil
	}
	pm := &model.PaymentMeans{
		Code:      text(e, "PaymentMeansCode"),
		PaymentID: text(e, "PaymentID"),
	}
	if acc := e.SelectElement("PayeeFinancialAccount"); acc != nil {
		pm.Account = &model.FinancialAccount{
			ID:   text(acc, "ID"),
			Name: text(acc, "Name"),
			BIC:  text(acc, "FinancialInstitutionBranch/ID"),
		}
	}
	return pm
}

func (d *decoder) allowanceCharge(e *etree.Element) model.AllowanceCharge {
	ac := model.AllowanceCharge{
		ChargeIndicator: strings.EqualFold(text(e, "ChargeIndicator"), "true"),
		ReasonCode:      text(e, "AllowanceChargeReasonCode"),
		Reason:          text(e, "AllowanceChargeReason"),
		Percentage:      d.decimal(e, "MultiplierFactorNumeric"),
		Amount:          d.decimal(e, "Amount"),
		BaseAmount:      d.decimal(e, "BaseAmount"),
	}
	if tc := e.SelectElement("TaxCategory"); tc != nil {
		cat := d.taxCategory(tc)
		ac.TaxCategory = &cat
	}
	return ac
}

func (d *decoder) taxCategory(e *etree.Element) model.TaxCategory {
	if e == nil {
		return model.TaxCategory{}
	}
	return model.TaxCategory{
		ID:                  text(e, "ID"),
		Percent:             d.decimal(e, "Percent"),
		ExemptionReasonCode: text(e, "TaxExemptionReasonCode"),
		ExemptionReason:     text(e, "TaxExemptionReason"),
	}
}

func (d *decoder) line(e *etree.Element, v vocabulary) model.Line {
	l := model.Line{
		ID:                  text(e, "ID"),
		Note:                text(e, "Note"),
		Quantity:            d.quantity(e, localName(v.quantity)),
		LineExtensionAmount: d.decimal(e, "LineExtensionAmount"),
		AccountingCost:      text(e, "AccountingCost"),
		Period:              d.period(e.SelectElement("InvoicePeriod")),
		OrderLineReference:  text(e, "OrderLineReference/LineID"),
	}
	for _, ac := range e.SelectElements("AllowanceCharge") {
		l.AllowanceCharges = append(l.AllowanceCharges, d.allowanceCharge(ac))
	}
	if it := e.SelectElement("Item"); it != nil {
		l.Item = model.Item{
			Name:                  text(it, "Name"),
			Description:           text(it, "Description"),
			BuyersItemID:          text(it, "BuyersItemIdentification/ID"),
			SellersItemID:         text(it, "SellersItemIdentification/ID"),
			StandardItemID:        identifier(it, "StandardItemIdentification/ID"),
			OriginCountry:         text(it, "OriginCountry/IdentificationCode"),
			ClassifiedTaxCategory: d.taxCategory(it.SelectElement("ClassifiedTaxCategory")),
		}
	}
	if pr := e.SelectElement("Price"); pr != nil {
		l.Price.Amount = d.decimal(pr, "PriceAmount")
		if pr.SelectElement("BaseQuantity") != nil {
			q := d.quantity(pr, "BaseQuantity")
			l.Price.BaseQuantity = &q
		}
		if ac := pr.SelectElement("AllowanceCharge"); ac != nil {
			pac := d.allowanceCharge(ac)
			l.Price.AllowanceCharge = &pac
		}
	}
	return l
}

// localName strips the namespace prefix from a vocabulary element name
func localName(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}
