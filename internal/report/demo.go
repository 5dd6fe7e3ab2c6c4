package report

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/taplab/salesdash/internal/enum"
	"github.com/taplab/salesdash/internal/pos"
)

type demoProduct struct {
	sku   string
	name  string
	price int64 // net price ×1000
}

var demoProducts = []demoProduct{
	{"1", "Pils 0.5", 79200},
	{"2", "IPA 0.5", 95200},
	{"3", "Cider", 71200},
}

const demoReceipts = 5

// DemoTransactions returns synthetic POS transactions for q. The same query
// always yields the same transactions.
func DemoTransactions(q Query, loc *time.Location) []pos.Transaction {
	if loc == nil {
		loc = time.UTC
	}
	day := q.Date
	if day == "" {
		day = q.To
	}
	if _, err := time.Parse(DateLayout, day); err != nil {
		day = time.Now().In(loc).Format(DateLayout)
	}

	h := fnv.New32a()
	h.Write([]byte(day))
	seed := int64(h.Sum32() % 97)

	txs := make([]pos.Transaction, 0, demoReceipts)
	for i := int64(0); i < demoReceipts; i++ {
		var lines []pos.LineItem
		var net int64
		for j, p := range demoProducts {
			qty := 1 + (seed+i*7+int64(j)*3)%5
			amount := qty * p.price
			net += amount
			lines = append(lines, pos.LineItem{
				TypeCode:       enum.LineTypeProduct,
				SequenceNumber: pos.NewNumber(int64(j + 1)),
				Related:        pos.Related{ItemSku: pos.Text(p.sku)},
				Extras:         pos.Extras{ItemName: p.name},
				Amounts: pos.Amounts{
					Quantity:        pos.NewNumber(qty * 1000),
					ActualNetAmount: pos.NewNumber(amount),
					TaxPercent:      pos.NewNumber(2500000),
				},
			})
		}
		lines = append(lines, pos.LineItem{
			TypeCode:       enum.LineTypeSummary,
			SequenceNumber: pos.NewNumber(int64(len(lines) + 1)),
			Amounts:        pos.Amounts{TaxSalesNetAmount: pos.NewNumber(net)},
		})

		start, _ := time.ParseInLocation(DateLayout, day, loc)
		at := start.Add(time.Duration(16+i) * time.Hour).Add(time.Duration(seed%60) * time.Minute)
		txs = append(txs, pos.Transaction{
			Head: pos.Head{
				UUID:            pos.Text(fmt.Sprintf("demo-%s-%d", day, i+1)),
				TypeCode:        enum.TransactionTypeSale,
				BusinessDay:     pos.Text(day),
				GuestCount:      pos.NewNumber(1 + (seed+i)%4),
				FinishTimestamp: pos.Text(at.Format(time.RFC3339)),
			},
			LineItems: lines,
		})
	}
	return txs
}
