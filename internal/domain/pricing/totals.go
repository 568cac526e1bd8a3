// Package pricing はカート金額・注文番号・ロイヤルティポイントの純粋な計算を持つ。
// DBには触らない。
package pricing

import (
	"reweave/internal/domain/model"

	"github.com/shopspring/decimal"
)

var (
	// 税率 6%
	TaxRate = decimal.RequireFromString("0.06")

	// この金額を「超えたら」送料無料（ちょうど200は有料）
	FreeShippingThreshold = decimal.NewFromInt(200)

	FlatShippingFee = decimal.NewFromInt(15)
)

type Line struct {
	Price    decimal.Decimal
	Quantity int64
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// ZeroTotals は空カートの金額。
func ZeroTotals() Totals {
	return Totals{
		Subtotal: decimal.Zero,
		Tax:      decimal.Zero,
		Shipping: decimal.Zero,
		Total:    decimal.Zero,
	}
}

// CalculateTotals は明細だけから金額を出す。同じ入力なら必ず同じ結果。
// 明細が無いカートは送料も含めて全部0。
func CalculateTotals(lines []Line) Totals {
	if len(lines) == 0 {
		return ZeroTotals()
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Price.Mul(decimal.NewFromInt(l.Quantity)))
	}

	tax := subtotal.Mul(TaxRate).Round(2)

	shipping := FlatShippingFee
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// カート明細から計算する
func TotalsForItems(items []model.CartItem) Totals {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{Price: it.Price, Quantity: it.Quantity})
	}
	return CalculateTotals(lines)
}

// Equal は保存済みの金額と再計算結果の比較に使う。
func (t Totals) Equal(o Totals) bool {
	return t.Subtotal.Equal(o.Subtotal) &&
		t.Tax.Equal(o.Tax) &&
		t.Shipping.Equal(o.Shipping) &&
		t.Total.Equal(o.Total)
}

// カートに保存されている金額
func FromCart(c model.Cart) Totals {
	return Totals{Subtotal: c.Subtotal, Tax: c.Tax, Shipping: c.Shipping, Total: c.Total}
}
