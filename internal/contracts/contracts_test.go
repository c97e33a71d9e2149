package contracts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleInput() Input {
	return Input{
		OrderNumber: "FM-20260830-000042",
		Buyer:       Buyer{Name: "Ayşe Y", Email: "ayse@example.com"},
		Lines: []Line{
			{Name: "Kupa", Quantity: 2, UnitPrice: 500, Subtotal: 1000},
		},
		Totals:     Totals{Subtotal: 1000, Shipping: 50, Discount: 0, GrandTotal: 1050},
		AcceptedAt: time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC),
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	first, err := Render(sampleInput())
	require.NoError(t, err)
	second, err := Render(sampleInput())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRenderEmbedsOrderDetails(t *testing.T) {
	docs, err := Render(sampleInput())
	require.NoError(t, err)

	require.Contains(t, docs.TermsHTML, "FM-20260830-000042")
	require.Contains(t, docs.TermsHTML, "Ayşe Y")
	require.Contains(t, docs.TermsHTML, "Kupa")
	require.Contains(t, docs.TermsHTML, "1050.00 TL")
	require.Contains(t, docs.TermsHTML, "30.08.2026 14:30")

	require.Contains(t, docs.DistanceSalesHTML, "Mesafeli Satış Sözleşmesi")
	require.Contains(t, docs.DistanceSalesHTML, "ayse@example.com")
	require.Contains(t, docs.DistanceSalesHTML, "1050.00 TL")
}

func TestRenderEscapesBuyerInput(t *testing.T) {
	in := sampleInput()
	in.Buyer.Name = `<script>alert("x")</script>`
	docs, err := Render(in)
	require.NoError(t, err)
	require.False(t, strings.Contains(docs.TermsHTML, "<script>"))
}
