package pos

import "strings"

// Transaction is one upstream POS record: a sale, a void, or a training entry.
type Transaction struct {
	Head      Head       `json:"head"`
	LineItems []LineItem `json:"lineItems"`
}

// Head carries the transaction-level attributes. Upstream is inconsistent about
// field names for guests and time, so every known candidate is decoded.
type Head struct {
	UUID         Text `json:"uuid"`
	TypeCode     Code `json:"typeCode"`
	TrainingFlag Flag `json:"trainingFlag"`
	VoidedTrUUID Text `json:"voidedTrUuid"`
	BusinessDay  Text `json:"businessDay"`

	GuestCount     Number `json:"guestCount"`
	NumberOfGuests Number `json:"numberOfGuests"`
	Guests         Number `json:"guests"`
	Covers         Number `json:"covers"`
	CoverCount     Number `json:"coverCount"`

	FinishTimestamp      Text `json:"finishTimestamp"`
	Timestamp            Text `json:"timestamp"`
	TransactionTimestamp Text `json:"transactionTimestamp"`
	CreationTimestamp    Text `json:"creationTimestamp"`

	FinishTime      Text `json:"finishTime"`
	Time            Text `json:"time"`
	TransactionTime Text `json:"transactionTime"`
}

// LineItem is one line of a transaction.
type LineItem struct {
	TypeCode       Code    `json:"typeCode"`
	SequenceNumber Number  `json:"sequenceNumber"`
	Amounts        Amounts `json:"amounts"`
	Related        Related `json:"related"`
	Extras         Extras  `json:"extras"`
	Flags          Flags   `json:"flags"`
}

// Amounts are fixed-point encoded: quantities and money ×1000, tax ×100000.
type Amounts struct {
	Quantity          Number `json:"quantity"`
	Units             Number `json:"units"`
	ActualNetAmount   Number `json:"actualNetAmount"`
	RegularNetAmount  Number `json:"regularNetAmount"`
	RegularAmount     Number `json:"regularAmount"`
	TaxPercent        Number `json:"taxPercent"`
	TaxSalesNetAmount Number `json:"taxSalesNetAmount"`
	NewAmount         Number `json:"newAmount"`
}

type Related struct {
	ItemSku Text `json:"itemSku"`
}

type Extras struct {
	ItemName    string `json:"itemName"`
	Name        string `json:"name"`
	ProductName string `json:"productName"`
	ArticleName string `json:"articleName"`

	AssociatedLineItemSequenceNumber Number `json:"associatedLineItemSequenceNumber"`
	VoidedLineItemSequenceNumber     Number `json:"voidedLineItemSequenceNumber"`
}

type Flags struct {
	IsVoidFlag Flag `json:"isVoidFlag"`
}

// WithBusinessDay returns a copy annotated with day unless the record
// already carries a business day. The receiver is never modified.
func (t Transaction) WithBusinessDay(day string) Transaction {
	if strings.TrimSpace(string(t.Head.BusinessDay)) != "" || day == "" {
		return t
	}
	out := t
	out.Head.BusinessDay = Text(day)
	return out
}

// Sequence returns the line's 1-based sequence number, defaulting to index+1.
func (l LineItem) Sequence(index int) int64 {
	if n, ok := l.SequenceNumber.Int(); ok {
		return n
	}
	return int64(index + 1)
}

// DisplayName returns the first non-empty product name found in extras.
func (e Extras) DisplayName() string {
	for _, s := range []string{e.ItemName, e.Name, e.ProductName, e.ArticleName} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// GuestTotal returns the first positive guest/cover count among the candidates.
func (h Head) GuestTotal() int64 {
	for _, n := range []Number{h.GuestCount, h.NumberOfGuests, h.Guests, h.Covers, h.CoverCount} {
		if v, ok := n.Int(); ok && v > 0 {
			return v
		}
	}
	return 0
}
