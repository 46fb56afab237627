// Package models defines the data structures that flow through the ingestion pipeline.
package models

// RecordKind tags the two variants a classification can be parsed into.
type RecordKind int

const (
	RecordNote RecordKind = iota
	RecordTransaction
)

// String returns the string representation of the kind.
func (k RecordKind) String() string {
	switch k {
	case RecordNote:
		return "note"
	case RecordTransaction:
		return "transaction"
	default:
		return "unknown"
	}
}

// TransactionType is the direction of a money movement.
type TransactionType string

const (
	TypeIncome  TransactionType = "INGRESO"
	TypeExpense TransactionType = "GASTO"
)

// Well-known transaction contexts. Any other label is carried through as-is.
const (
	ContextHousehold = "HOGAR"
	ContextFactory   = "FABRICA"
)

// Record is a validated classification: either a *Note or a *Transaction.
type Record interface {
	Kind() RecordKind
}

// Note is free text the submitter wants kept.
type Note struct {
	Content string
}

// Kind implements Record.
func (*Note) Kind() RecordKind { return RecordNote }

// Transaction is a structured money movement.
type Transaction struct {
	Type        TransactionType
	Context     string
	Category    string
	Amount      int64
	Description string
	// Invoice is empty when the submitter did not dictate one.
	Invoice string
	// HasInvoiceField is true when the active contract carries an invoice column,
	// in which case the stored row always includes it (possibly empty).
	HasInvoiceField bool
}

// Kind implements Record.
func (*Transaction) Kind() RecordKind { return RecordTransaction }

// StoredRow is one append-only row destined for a single tab.
type StoredRow struct {
	Tab    string
	Values []string
}
