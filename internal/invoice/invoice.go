package invoice

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const ContentTypeHTML = "text/html; charset=utf-8"

// Data is everything printed on an invoice
type Data struct {
	Number       string
	AuctionID    string
	AuctionTitle string
	WinnerID     string
	WinnerName   string
	Amount       int64
	IssuedAt     time.Time
}

// Renderer turns invoice data into a stored document
type Renderer interface {
	Render(data Data) (document []byte, contentType string, err error)
}

// Number builds the invoice number for an auction's winner
func Number(auctionID, winnerID string, at time.Time) string {
	return fmt.Sprintf("INV-%s-%s-%d", auctionID, winnerID, at.UnixMilli())
}

// FormatAmount prints minor units as a decimal amount
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

var page = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"amount": FormatAmount,
	"date":   func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 UTC") },
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Invoice {{.Number}}</title></head>
<body>
<h1>Invoice {{.Number}}</h1>
<p>Issued: {{date .IssuedAt}}</p>
<table>
<tr><th>Auction</th><td>{{.AuctionTitle}} ({{.AuctionID}})</td></tr>
<tr><th>Winner</th><td>{{if .WinnerName}}{{.WinnerName}}{{else}}{{.WinnerID}}{{end}}</td></tr>
<tr><th>Winning bid</th><td>{{amount .Amount}}</td></tr>
</table>
<h2>Payment instructions</h2>
<p>{{.Instructions}}</p>
<p>Reference the invoice number {{.Number}} with your payment and upload the proof of transfer.</p>
</body>
</html>
`))

// HTMLRenderer renders invoices as standalone HTML pages
type HTMLRenderer struct {
	instructions string
}

func NewHTMLRenderer(instructions string) *HTMLRenderer {
	return &HTMLRenderer{instructions: instructions}
}

func (r *HTMLRenderer) Render(data Data) ([]byte, string, error) {
	if data.Number == "" {
		return nil, "", fmt.Errorf("render invoice: empty invoice number")
	}

	view := struct {
		Data
		Instructions string
	}{Data: data, Instructions: r.instructions}

	var buf bytes.Buffer
	if err := page.Execute(&buf, view); err != nil {
		return nil, "", fmt.Errorf("render invoice %s: %w", data.Number, err)
	}
	return buf.Bytes(), ContentTypeHTML, nil
}
