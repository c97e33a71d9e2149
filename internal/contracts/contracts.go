// Package contracts renders the legally required sale documents. The rendered
// HTML is embedded into the order's audit trail so the exact text the buyer
// accepted stays reproducible even after catalog data changes.
package contracts

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

type Buyer struct {
	Name  string
	Email string
}

type Line struct {
	Name      string
	Quantity  uint
	UnitPrice float64
	Subtotal  float64
}

type Totals struct {
	Subtotal   float64
	Shipping   float64
	Discount   float64
	GrandTotal float64
}

type Input struct {
	OrderNumber string
	Buyer       Buyer
	Lines       []Line
	Totals      Totals
	AcceptedAt  time.Time
}

type Documents struct {
	TermsHTML         string
	DistanceSalesHTML string
}

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f TL", v) },
	"date":  func(t time.Time) string { return t.Format("02.01.2006 15:04") },
}

var termsTmpl = template.Must(template.New("terms").Funcs(funcs).Parse(`<section class="contract">
<h2>Ön Bilgilendirme Formu</h2>
<p>Sipariş No: {{.OrderNumber}}</p>
<p>Alıcı: {{.Buyer.Name}} ({{.Buyer.Email}})</p>
<p>Tarih: {{date .AcceptedAt}}</p>
<table>
{{range .Lines}}<tr><td>{{.Name}}</td><td>{{.Quantity}} adet</td><td>{{money .UnitPrice}}</td><td>{{money .Subtotal}}</td></tr>
{{end}}</table>
<p>Ara Toplam: {{money .Totals.Subtotal}}</p>
<p>Kargo: {{money .Totals.Shipping}}</p>
<p>İndirim: {{money .Totals.Discount}}</p>
<p>Genel Toplam: {{money .Totals.GrandTotal}}</p>
<p>İşbu form, 6502 sayılı Tüketicinin Korunması Hakkında Kanun uyarınca alıcıya satış öncesinde sunulmuştur.</p>
</section>`))

var distanceSalesTmpl = template.Must(template.New("distance_sales").Funcs(funcs).Parse(`<section class="contract">
<h2>Mesafeli Satış Sözleşmesi</h2>
<p>Sipariş No: {{.OrderNumber}}</p>
<p>ALICI: {{.Buyer.Name}} ({{.Buyer.Email}})</p>
<p>SATICI: FusionMarkt</p>
<p>Sözleşme Tarihi: {{date .AcceptedAt}}</p>
<h3>Sözleşme Konusu Ürünler</h3>
<table>
{{range .Lines}}<tr><td>{{.Name}}</td><td>{{.Quantity}} adet</td><td>{{money .Subtotal}}</td></tr>
{{end}}</table>
<p>Toplam Satış Bedeli: {{money .Totals.GrandTotal}}</p>
<p>Alıcı, sözleşme konusu ürünlerin temel nitelikleri, satış fiyatı ve ödeme şekli ile teslimata ilişkin ön bilgileri okuyup bilgi sahibi olduğunu ve elektronik ortamda gerekli teyidi verdiğini kabul eder.</p>
</section>`))

// Render is a pure function of its input: identical input, including the
// timestamp, yields identical documents.
func Render(in Input) (*Documents, error) {
	var terms bytes.Buffer
	if err := termsTmpl.Execute(&terms, in); err != nil {
		return nil, fmt.Errorf("contracts: render terms: %w", err)
	}
	var distance bytes.Buffer
	if err := distanceSalesTmpl.Execute(&distance, in); err != nil {
		return nil, fmt.Errorf("contracts: render distance sales: %w", err)
	}
	return &Documents{
		TermsHTML:         terms.String(),
		DistanceSalesHTML: distance.String(),
	}, nil
}
