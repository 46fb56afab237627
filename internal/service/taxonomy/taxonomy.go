// Package taxonomy holds the fixed category labels a transaction may be
// filed under.
package taxonomy

import (
	"strings"

	"github.com/antzucaro/matchr"

	"voice-ledger-service/internal/models"
	"voice-ledger-service/internal/service/normalize"
)

// FuzzyThreshold is the minimum Jaro-Winkler similarity for a spoken category
// to be snapped onto a taxonomy label.
const FuzzyThreshold = 0.9

// Taxonomy is immutable after construction and safe for concurrent use.
type Taxonomy struct {
	income    []string
	household []string
	factory   []string
	fallback  string
}

// Default returns the taxonomy used by the ledger.
func Default() *Taxonomy {
	return New(
		[]string{"Base cama", "Espaldar", "Sofa", "Mesas de noche", "Colchon", "Cama multifuncional", "Silleteria", "Refaccion"},
		[]string{"Comida", "Transporte", "Diversion", "Dulce", "Salidas", "Salud", "Vivienda"},
		[]string{"Materiales", "Onces", "Sueldos", "Arriendo", "Servicios", "Deudas", "Herramientas"},
		"Otros",
	)
}

// New builds a taxonomy from display labels.
func New(income, household, factory []string, fallback string) *Taxonomy {
	return &Taxonomy{
		income:    clone(income),
		household: clone(household),
		factory:   clone(factory),
		fallback:  fallback,
	}
}

// Income returns the income labels in display form.
func (t *Taxonomy) Income() []string { return clone(t.income) }

// Household returns the household expense labels in display form.
func (t *Taxonomy) Household() []string { return clone(t.household) }

// Factory returns the factory expense labels in display form.
func (t *Taxonomy) Factory() []string { return clone(t.factory) }

// Fallback returns the generic label in display form.
func (t *Taxonomy) Fallback() string { return t.fallback }

// Labels returns the labels permitted for a transaction type and context.
// An expense with a context other than household or factory may use either list.
func (t *Taxonomy) Labels(typ models.TransactionType, context string) []string {
	if typ == models.TypeIncome {
		return clone(t.income)
	}
	switch strings.ToUpper(normalize.Text(context)) {
	case models.ContextHousehold:
		return clone(t.household)
	case models.ContextFactory:
		return clone(t.factory)
	default:
		return append(clone(t.household), t.factory...)
	}
}

// Resolve maps a category produced by the classifier onto a normalized
// taxonomy label for the declared type and context, first exactly and then by
// Jaro-Winkler similarity. Labels of other contexts are never accepted. When
// nothing fits it returns the normalized fallback and false.
func (t *Taxonomy) Resolve(typ models.TransactionType, context, category string) (string, bool) {
	want := normalize.Text(category)
	fallback := normalize.Text(t.fallback)
	if want == "" {
		return fallback, false
	}
	if want == fallback {
		return fallback, true
	}

	labels := t.Labels(typ, context)
	for _, label := range labels {
		if normalize.Text(label) == want {
			return normalize.Text(label), true
		}
	}

	best, score := "", 0.0
	for _, label := range labels {
		s := matchr.JaroWinkler(want, normalize.Text(label), false)
		if s > score {
			best, score = label, s
		}
	}
	if score >= FuzzyThreshold {
		return normalize.Text(best), true
	}

	return fallback, false
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
