package schema

import (
	"fmt"
	"strings"

	"voice-ledger-service/internal/models"
	"voice-ledger-service/internal/service/amount"
	"voice-ledger-service/internal/service/normalize"
	"voice-ledger-service/internal/service/taxonomy"
)

// Parser validates raw classifications against one contract.
// It holds no mutable state and is safe for concurrent use.
type Parser struct {
	contract Contract
	taxonomy *taxonomy.Taxonomy
	amounts  amount.Interpreter
}

// NewParser creates a parser for the given contract. A nil interpreter
// selects the one matching the contract version.
func NewParser(c Contract, tax *taxonomy.Taxonomy, amounts amount.Interpreter) *Parser {
	if tax == nil {
		tax = taxonomy.Default()
	}
	if amounts == nil {
		amounts = InterpreterFor(c)
	}
	return &Parser{contract: c, taxonomy: tax, amounts: amounts}
}

// InterpreterFor returns the amount interpreter a contract version expects.
func InterpreterFor(c Contract) amount.Interpreter {
	if c.Version == V1 {
		return amount.Identity{}
	}
	return amount.Strict{}
}

// Contract returns the contract the parser enforces.
func (p *Parser) Contract() Contract {
	return p.contract
}

// Parse turns a raw classification into a *models.Note or *models.Transaction.
// Any failure is a *ParseError carrying the raw string.
func (p *Parser) Parse(raw string) (models.Record, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ParseError{Raw: raw, Reason: ReasonEmpty}
	}

	parts := strings.Split(raw, Delimiter)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	tag := strings.ToUpper(normalize.Text(parts[0]))
	if tag == NoteTag {
		return p.parseNote(raw, parts)
	}
	return p.parseTransaction(raw, tag, parts)
}

func (p *Parser) parseNote(raw string, parts []string) (models.Record, error) {
	if len(parts) != 2 {
		return nil, &ParseError{
			Raw:    raw,
			Reason: ReasonArity,
			Detail: fmt.Sprintf("note needs 2 fields, got %d", len(parts)),
		}
	}
	content := parts[1]
	if isPlaceholder(content, PlaceholderContent) {
		return nil, &ParseError{Raw: raw, Reason: ReasonTemplateEcho, Detail: PlaceholderContent}
	}
	if normalize.Text(content) == "" {
		return nil, &ParseError{Raw: raw, Reason: ReasonEmptyContent}
	}
	return &models.Note{Content: content}, nil
}

func (p *Parser) parseTransaction(raw, tag string, parts []string) (models.Record, error) {
	c := p.contract

	fields := parts
	if c.Tag != "" {
		if tag != c.Tag {
			return nil, &ParseError{Raw: raw, Reason: ReasonUnknownTag, Detail: parts[0]}
		}
		fields = parts[1:]
	} else {
		switch models.TransactionType(tag) {
		case models.TypeIncome, models.TypeExpense:
		case PlaceholderType:
			return nil, &ParseError{Raw: raw, Reason: ReasonTemplateEcho, Detail: PlaceholderType}
		default:
			return nil, &ParseError{Raw: raw, Reason: ReasonUnknownTag, Detail: parts[0]}
		}
	}

	if len(parts) != c.Arity() {
		return nil, &ParseError{
			Raw:    raw,
			Reason: ReasonArity,
			Detail: fmt.Sprintf("transaction needs %d fields, got %d", c.Arity(), len(parts)),
		}
	}

	for i, placeholder := range c.Fields {
		if isPlaceholder(fields[i], placeholder) {
			return nil, &ParseError{Raw: raw, Reason: ReasonTemplateEcho, Detail: placeholder}
		}
	}

	kindField, contextField, categoryField, amountField, descriptionField := fields[0], fields[1], fields[2], fields[3], fields[4]

	// Echoes such as "MONTO_EN_PESOS" are still template text, not data.
	if strings.Contains(strings.ToUpper(amountField), PlaceholderAmount) {
		return nil, &ParseError{Raw: raw, Reason: ReasonTemplateEcho, Detail: PlaceholderAmount}
	}

	typ := models.TransactionType(strings.ToUpper(normalize.Text(kindField)))
	if typ != models.TypeIncome && typ != models.TypeExpense {
		return nil, &ParseError{Raw: raw, Reason: ReasonInvalidKind, Detail: kindField}
	}

	context := strings.ToUpper(normalize.Text(contextField))
	category, _ := p.taxonomy.Resolve(typ, context, categoryField)

	value, err := p.amounts.Interpret(amountField, context, category)
	if err != nil {
		return nil, &ParseError{Raw: raw, Reason: ReasonInvalidAmount, Detail: err.Error()}
	}

	tx := &models.Transaction{
		Type:            typ,
		Context:         context,
		Category:        category,
		Amount:          value,
		Description:     descriptionField,
		HasInvoiceField: c.Invoice,
	}
	if c.Invoice && !normalize.IsNotApplicable(fields[5]) {
		tx.Invoice = fields[5]
	}
	return tx, nil
}

func isPlaceholder(field, placeholder string) bool {
	return strings.EqualFold(strings.TrimSpace(field), placeholder)
}
