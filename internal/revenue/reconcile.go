package revenue

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/taplab/salesdash/internal/enum"
	"github.com/taplab/salesdash/internal/pos"
)

var one = decimal.NewFromInt(1)

// Line is one reconciled product line of a receipt.
type Line struct {
	SKU      string
	Name     string
	Revenue  decimal.Decimal
	Quantity decimal.Decimal
}

// Receipt is a transaction after reconciliation: its authoritative net total
// and the product lines rescaled so that they add up to it.
type Receipt struct {
	NetTotal decimal.Decimal
	Lines    []Line
}

type baseLine struct {
	seq      int64
	sku      string
	name     string
	revenue  decimal.Decimal
	quantity decimal.Decimal
	tax      pos.Number
}

// NetTotal sums taxSalesNetAmount over the summary lines of tx.
func NetTotal(tx pos.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, li := range tx.LineItems {
		if string(li.TypeCode) == enum.LineTypeSummary {
			total = total.Add(li.Amounts.TaxSalesNetAmount.Thousandths())
		}
	}
	return total
}

// NetFromGross strips tax from a ×1000 gross amount using a ×100000 tax percent.
func NetFromGross(gross, taxPercent pos.Number) decimal.Decimal {
	return gross.Thousandths().Div(one.Add(taxPercent.TaxRate()))
}

// ExtractLines returns the surviving product lines of tx with overlays
// applied, before rescaling. Lines are ordered by sequence number.
func ExtractLines(tx pos.Transaction) []Line {
	voided := make(map[int64]bool)
	for i, li := range tx.LineItems {
		if seq, ok := li.Extras.VoidedLineItemSequenceNumber.Int(); ok {
			voided[seq] = true
		}
		if li.Flags.IsVoidFlag {
			voided[li.Sequence(i)] = true
		}
	}

	bases := make(map[int64]*baseLine)
	for i, li := range tx.LineItems {
		if string(li.TypeCode) != enum.LineTypeProduct || li.Flags.IsVoidFlag {
			continue
		}
		seq := li.Sequence(i)
		if voided[seq] {
			continue
		}
		sku, ok := parseSKU(li.Related.ItemSku)
		if !ok {
			continue
		}
		a := li.Amounts
		qty := a.Quantity
		if !qty.Valid {
			qty = a.Units
		}
		var net decimal.Decimal
		switch {
		case a.ActualNetAmount.Valid:
			net = a.ActualNetAmount.Thousandths()
		case a.RegularNetAmount.Valid:
			net = a.RegularNetAmount.Thousandths()
		default:
			net = NetFromGross(a.RegularAmount, a.TaxPercent)
		}
		bases[seq] = &baseLine{
			seq:      seq,
			sku:      sku,
			name:     li.Extras.DisplayName(),
			revenue:  net,
			quantity: qty.Thousandths(),
			tax:      a.TaxPercent,
		}
	}

	for _, li := range tx.LineItems {
		if string(li.TypeCode) != enum.LineTypeOverlay {
			continue
		}
		target, ok := li.Extras.AssociatedLineItemSequenceNumber.Int()
		if !ok {
			continue
		}
		base, ok := bases[target]
		if !ok || !li.Amounts.NewAmount.Valid {
			continue
		}
		tax := li.Amounts.TaxPercent
		if !tax.Valid {
			tax = base.tax
		}
		if !tax.Valid {
			continue
		}
		base.revenue = NetFromGross(li.Amounts.NewAmount, tax)
	}

	seqs := make([]int64, 0, len(bases))
	for seq := range bases {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	lines := make([]Line, 0, len(seqs))
	for _, seq := range seqs {
		b := bases[seq]
		if !b.revenue.IsPositive() {
			continue
		}
		lines = append(lines, Line{SKU: b.sku, Name: b.name, Revenue: b.revenue, Quantity: b.quantity})
	}
	return lines
}

// Reconcile computes the net total of tx and rescales its product lines to
// match it. ok is false when the net total is not positive.
//
// When the extracted lines add up to zero the scale is zero, so the receipt
// still carries its net total but no lines.
func Reconcile(tx pos.Transaction) (Receipt, bool) {
	net := NetTotal(tx)
	if !net.IsPositive() {
		return Receipt{}, false
	}

	extracted := ExtractLines(tx)
	base := decimal.Zero
	for _, l := range extracted {
		base = base.Add(l.Revenue)
	}
	scale := decimal.Zero
	if base.IsPositive() {
		scale = net.Div(base)
	}

	r := Receipt{NetTotal: net}
	for _, l := range extracted {
		l.Revenue = l.Revenue.Mul(scale)
		if !l.Revenue.IsPositive() {
			continue
		}
		r.Lines = append(r.Lines, l)
	}
	return r, true
}

func parseSKU(raw pos.Text) (string, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return "", false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}
