// Package schema defines the pipe-delimited output contract between the
// classifier and the pipeline, and the strict parser that validates it.
package schema

import (
	"fmt"
	"strings"
)

// Delimiter separates fields in a classification.
const Delimiter = "|"

// Tags and placeholder tokens used by the contract's own format description.
// A live value equal to one of these means the classifier echoed the template.
const (
	NoteTag        = "NOTA"
	TransactionTag = "TRANSACCION"

	PlaceholderType        = "TIPO"
	PlaceholderContext     = "CONTEXTO"
	PlaceholderCategory    = "CATEGORIA"
	PlaceholderAmount      = "MONTO"
	PlaceholderDescription = "DESCRIPCION"
	PlaceholderInvoice     = "FACTURA"
	PlaceholderContent     = "CONTENIDO"
)

// Version selects one fixed contract per deployment.
type Version string

const (
	// V1 prefixes transactions with TRANSACCION and allows the generic fallback category.
	V1 Version = "v1"
	// V2 drops the prefix, adds the invoice field and moves magnitude
	// inference into the classifier.
	V2 Version = "v2"
)

// Contract describes one version of the classifier output format.
type Contract struct {
	Version Version
	// Tag prefixes transaction lines; empty when the first field is the type.
	Tag string
	// Fields lists the placeholder of each transaction field, in order.
	Fields []string
	// Invoice is true when the last field carries an invoice number.
	Invoice bool
	// AllowFallback is true when the classifier may answer with the generic category.
	AllowFallback bool
}

// ContractFor returns the contract for a version.
func ContractFor(v Version) (Contract, error) {
	switch Version(strings.ToLower(string(v))) {
	case V1:
		return Contract{
			Version:       V1,
			Tag:           TransactionTag,
			Fields:        []string{PlaceholderType, PlaceholderContext, PlaceholderCategory, PlaceholderAmount, PlaceholderDescription},
			AllowFallback: true,
		}, nil
	case V2:
		return Contract{
			Version: V2,
			Fields:  []string{PlaceholderType, PlaceholderContext, PlaceholderCategory, PlaceholderAmount, PlaceholderDescription, PlaceholderInvoice},
			Invoice: true,
		}, nil
	default:
		return Contract{}, fmt.Errorf("schema: unknown contract version %q", v)
	}
}

// Arity is the exact number of delimited parts a transaction line must have.
func (c Contract) Arity() int {
	if c.Tag != "" {
		return len(c.Fields) + 1
	}
	return len(c.Fields)
}

// TransactionFormat renders the transaction line as shown to the classifier.
func (c Contract) TransactionFormat() string {
	parts := c.Fields
	if c.Tag != "" {
		parts = append([]string{c.Tag}, c.Fields...)
	}
	return strings.Join(parts, Delimiter)
}

// NoteFormat renders the note line as shown to the classifier.
func (c Contract) NoteFormat() string {
	return NoteTag + Delimiter + PlaceholderContent
}
