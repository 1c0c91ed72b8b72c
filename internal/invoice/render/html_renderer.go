package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	invoicedomain "github.com/civicgrid/civicbill/internal/invoice/domain"
	"go.uber.org/zap"
)

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Invoice {{.InvoiceID}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #1a1a1a; }
table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
th, td { border: 1px solid #ccc; padding: 0.5rem; text-align: left; }
td.amount, th.amount { text-align: right; }
tfoot td { font-weight: bold; }
.status { text-transform: uppercase; letter-spacing: 0.05em; }
</style>
</head>
<body>
<h1>Invoice {{.InvoiceID}}</h1>
<p>
Customer: {{.CustomerID}}<br>
Period: {{.Period}}<br>
Status: <span class="status">{{.Status}}</span>{{if .Provisional}} (provisional){{end}}<br>
Issued: {{.IssuedOn}}<br>
Due: {{.DueOn}}
</p>
<table>
<thead>
<tr><th>Description</th><th class="amount">Quantity</th><th class="amount">Unit price</th><th class="amount">Amount</th></tr>
</thead>
<tbody>
{{range .Lines}}
<tr><td>{{.Description}}</td><td class="amount">{{.Quantity}} {{.Unit}}</td><td class="amount">{{.UnitPrice}}</td><td class="amount">{{.Amount}}</td></tr>
{{else}}
<tr><td colspan="4">No billable usage this period.</td></tr>
{{end}}
</tbody>
<tfoot>
<tr><td colspan="3">Total</td><td class="amount">{{.Total}}</td></tr>
</tfoot>
</table>
</body>
</html>
`

type templateLine struct {
	Description string
	Quantity    int64
	Unit        string
	UnitPrice   string
	Amount      string
}

type templateData struct {
	InvoiceID   string
	CustomerID  string
	Period      string
	Status      string
	Provisional bool
	IssuedOn    string
	DueOn       string
	Lines       []templateLine
	Total       string
}

// HTMLRenderer renders invoices as self-contained HTML pages.
type HTMLRenderer struct {
	log *zap.Logger
	tpl *template.Template
}

func NewHTMLRenderer(log *zap.Logger) (*HTMLRenderer, error) {
	tpl, err := template.New("invoice").Parse(invoiceTemplate)
	if err != nil {
		return nil, err
	}
	return &HTMLRenderer{
		log: log.Named("invoice.render"),
		tpl: tpl,
	}, nil
}

func (r *HTMLRenderer) Render(_ context.Context, invoice *invoicedomain.Invoice) ([]byte, string, error) {
	if invoice == nil {
		return nil, "", invoicedomain.ErrInvoiceNotFound
	}

	data := templateData{
		InvoiceID:   invoice.ID.String(),
		CustomerID:  invoice.CustomerID.String(),
		Period:      invoice.Period,
		Status:      string(invoice.Status),
		Provisional: invoice.Provisional,
		IssuedOn:    invoice.CreatedAt.Format("02 Jan 2006"),
		DueOn:       invoice.DueAt.Format("02 Jan 2006"),
		Total:       FormatMoney(invoice.TotalPaise, invoice.Currency),
	}
	for _, item := range invoice.LineItems {
		data.Lines = append(data.Lines, templateLine{
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   FormatMoney(item.UnitPricePaise, invoice.Currency),
			Amount:      FormatMoney(item.AmountPaise, invoice.Currency),
		})
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, data); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "text/html; charset=utf-8", nil
}

// FormatMoney renders minor units as a decimal amount with its currency code,
// for example 250000 paise as "INR 2500.00".
func FormatMoney(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "INR"
	}
	return fmt.Sprintf("%s %s%d.%02d", currency, sign, minor/100, minor%100)
}
