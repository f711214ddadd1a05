// Package modeltest provides ready-made documents for tests.
package modeltest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/peppol-connector/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Invoice returns a consistent single-line invoice: net 1000.00, VAT 25%
// (250.00), payable 1250.00.
func Invoice() model.Document {
	return model.Document{
		Kind:            model.KindInvoice,
		CustomizationID: model.CustomizationBISBilling,
		ProfileID:       model.ProfileBISBilling,
		ID:              "INV-2024-001",
		IssueDate:       model.NewDate(2024, time.March, 1),
		DueDate:         model.NewDate(2024, time.March, 31),
		TypeCode:        model.TypeCodeInvoice,
		Currency:        "EUR",
		BuyerReference:  "PO-4711",
		Seller: model.Party{
			EndpointID: model.Identifier{Value: "7300010000001", SchemeID: model.SchemeGLN},
			Name:       "Seller AB",
			Address: model.Address{
				Street:      "Main Street 1",
				City:        "Berlin",
				PostalCode:  "10115",
				CountryCode: "DE",
			},
			VATID:     "DE123456789",
			LegalName: "Seller AB GmbH",
			Contact: &model.Contact{
				Name:      "Anna Seller",
				Telephone: "+49 30 901820",
				Email:     "billing@seller.example",
			},
		},
		Buyer: model.Party{
			EndpointID: model.Identifier{Value: "7300010000002", SchemeID: model.SchemeGLN},
			Name:       "Buyer Ltd",
			Address: model.Address{
				Street:      "Harbour Road 5",
				City:        "Hamburg",
				PostalCode:  "20095",
				CountryCode: "DE",
			},
			LegalName: "Buyer Ltd",
			Contact:   &model.Contact{Email: "ap@buyer.example"},
		},
		Delivery: &model.Delivery{
			Date: model.NewDate(2024, time.February, 28),
		},
		PaymentMeans: &model.PaymentMeans{
			Code:      "58",
			PaymentID: "INV-2024-001",
			Account:   &model.FinancialAccount{ID: "DE89370400440532013000", Name: "Seller AB"},
		},
		PaymentTerms: "30 days net",
		TaxTotal: model.TaxTotal{
			TaxAmount: d("250.00"),
			Subtotals: []model.TaxSubtotal{{
				TaxableAmount: d("1000.00"),
				TaxAmount:     d("250.00"),
				Category:      model.TaxCategory{ID: model.TaxCategoryStandard, Percent: d("25")},
			}},
		},
		Totals: model.MonetaryTotal{
			LineExtensionAmount: d("1000.00"),
			TaxExclusiveAmount:  d("1000.00"),
			TaxInclusiveAmount:  d("1250.00"),
			PayableAmount:       d("1250.00"),
		},
		Lines: []model.Line{{
			ID:                  "1",
			Quantity:            model.Quantity{Value: d("10"), UnitCode: "EA"},
			LineExtensionAmount: d("1000.00"),
			Item: model.Item{
				Name:                  "Consulting hour",
				SellersItemID:         "CH-01",
				ClassifiedTaxCategory: model.TaxCategory{ID: model.TaxCategoryStandard, Percent: d("25")},
			},
			Price: model.Price{Amount: d("100.00")},
		}},
	}
}

// CreditNote returns a credit note correcting Invoice in full.
func CreditNote() model.Document {
	doc := Invoice()
	doc.Kind = model.KindCreditNote
	doc.ID = "CN-2024-001"
	doc.TypeCode = model.TypeCodeCreditNote
	doc.DueDate = model.Date{}
	doc.BillingReferences = []model.BillingReference{{
		InvoiceID: "INV-2024-001",
		IssueDate: model.NewDate(2024, time.March, 1),
	}}
	return doc
}

// WithAllowanceAndCharge returns Invoice with a 100.00 discount and a
// 20.00 freight charge, totals adjusted accordingly.
func WithAllowanceAndCharge() model.Document {
	doc := Invoice()
	std := model.TaxCategory{ID: model.TaxCategoryStandard, Percent: d("25")}
	allowanceCat, chargeCat := std, std
	doc.AllowanceCharges = []model.AllowanceCharge{
		{ChargeIndicator: false, ReasonCode: "95", Reason: "Discount", Amount: d("100.00"), TaxCategory: &allowanceCat},
		{ChargeIndicator: true, ReasonCode: "FC", Reason: "Freight", Amount: d("20.00"), TaxCategory: &chargeCat},
	}
	doc.TaxTotal = model.TaxTotal{
		TaxAmount: d("230.00"),
		Subtotals: []model.TaxSubtotal{{
			TaxableAmount: d("920.00"),
			TaxAmount:     d("230.00"),
			Category:      std,
		}},
	}
	doc.Totals = model.MonetaryTotal{
		LineExtensionAmount:  d("1000.00"),
		TaxExclusiveAmount:   d("920.00"),
		TaxInclusiveAmount:   d("1150.00"),
		AllowanceTotalAmount: d("100.00"),
		ChargeTotalAmount:    d("20.00"),
		PayableAmount:        d("1150.00"),
	}
	return doc
}
