package render

import (
	"context"
	"strings"
	"testing"
	"time"

	invoicedomain "github.com/civicgrid/civicbill/internal/invoice/domain"
	"go.uber.org/zap"
)

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		minor    int64
		currency string
		want     string
	}{
		{250000, "INR", "INR 2500.00"},
		{50000, "inr", "INR 500.00"},
		{5, "INR", "INR 0.05"},
		{0, "", "INR 0.00"},
		{-150000, "INR", "INR -1500.00"},
	}
	for _, tc := range cases {
		if got := FormatMoney(tc.minor, tc.currency); got != tc.want {
			t.Errorf("FormatMoney(%d, %q) = %q, want %q", tc.minor, tc.currency, got, tc.want)
		}
	}
}

func TestRenderInvoiceHTML(t *testing.T) {
	renderer, err := NewHTMLRenderer(zap.NewNop())
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	created := time.Date(2024, time.July, 10, 12, 0, 0, 0, time.UTC)
	invoice := &invoicedomain.Invoice{
		ID:         12345,
		CustomerID: 67890,
		Period:     "2024-06",
		Status:     invoicedomain.InvoiceStatusPending,
		Currency:   "INR",
		TotalPaise: 250000,
		CreatedAt:  created,
		DueAt:      created.AddDate(0, 0, 30),
		LineItems: []invoicedomain.LineItem{
			{Description: "ambulance bookings", Quantity: 3, Unit: "booking", UnitPricePaise: 50000, AmountPaise: 150000},
			{Description: "fire bookings", Quantity: 2, Unit: "booking", UnitPricePaise: 50000, AmountPaise: 100000},
		},
	}

	body, contentType, err := renderer.Render(context.Background(), invoice)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if contentType != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", contentType)
	}

	html := string(body)
	for _, want := range []string{
		"Invoice 12345",
		"Period: 2024-06",
		"ambulance bookings",
		"INR 1500.00",
		"INR 1000.00",
		"INR 2500.00",
		"09 Aug 2024",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered html missing %q", want)
		}
	}
}

func TestRenderZeroUsageInvoice(t *testing.T) {
	renderer, err := NewHTMLRenderer(zap.NewNop())
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	invoice := &invoicedomain.Invoice{
		ID:         1,
		CustomerID: 2,
		Period:     "2024-06",
		Status:     invoicedomain.InvoiceStatusPending,
		Currency:   "INR",
		CreatedAt:  time.Now(),
		DueAt:      time.Now(),
	}
	body, _, err := renderer.Render(context.Background(), invoice)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(body), "No billable usage this period.") {
		t.Fatal("zero-usage invoice should render the empty row")
	}
}
