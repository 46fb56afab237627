// Package classify turns a transcript into a single pipe-delimited
// classification line using a language model.
package classify

import (
	"context"
	"fmt"
	"strings"

	"voice-ledger-service/internal/schema"
	"voice-ledger-service/internal/service/taxonomy"
)

// Classifier returns the raw classification line for a transcript.
// Implementations make exactly one model call per invocation.
type Classifier interface {
	Classify(ctx context.Context, transcript string, tax *taxonomy.Taxonomy) (string, error)
	Name() string
}

// Clean trims surrounding whitespace and removes every double quote.
func Clean(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, `"`, ""))
}

// BuildPrompt renders the Spanish instruction text for the contract version.
func BuildPrompt(transcript string, tax *taxonomy.Taxonomy, c schema.Contract) string {
	var b strings.Builder

	b.WriteString("Eres un contador experto e inteligente. Tu trabajo es clasificar gastos e ingresos.\n\n")
	fmt.Fprintf(&b, "TEXTO DEL USUARIO: %q\n\n", transcript)

	b.WriteString("CATEGORIAS PERMITIDAS:\n")
	fmt.Fprintf(&b, "- SI ES INGRESO, ELIGE DE: [%s]\n", labelList(tax.Income(), tax, c))
	fmt.Fprintf(&b, "- SI ES GASTO (HOGAR), ELIGE DE: [%s]\n", labelList(tax.Household(), tax, c))
	fmt.Fprintf(&b, "- SI ES GASTO (FABRICA), ELIGE DE: [%s]\n\n", labelList(tax.Factory(), tax, c))

	b.WriteString("INSTRUCCIONES:\n")
	if c.AllowFallback {
		fmt.Fprintf(&b, "1. NO uses %q si existe una categoria relacionada. Haz un esfuerzo por clasificar.\n", tax.Fallback())
	} else {
		b.WriteString("1. Usa siempre una categoria de la lista. Nunca inventes una categoria nueva.\n")
	}
	b.WriteString("   - \"Compre tornillos y telas\" -> Contexto: FABRICA, Categoria: Materiales.\n")
	b.WriteString("   - \"Pague el recibo de la luz\" -> Categoria: Servicios.\n")
	b.WriteString("   - \"Me comi una hamburguesa\" -> Categoria: Comida.\n")
	b.WriteString("2. Identifica el contexto (HOGAR o FABRICA) por las palabras clave.\n")
	b.WriteString("   - Telas, madera, pegante, nomina -> FABRICA.\n")
	b.WriteString("   - Mercado, cine, medicina -> HOGAR.\n")

	if c.Version == schema.V2 {
		b.WriteString("3. Si el texto menciona dinero, pago, compra, gasto, abono, saldo, venta o cobro es una transaccion, NUNCA una nota.\n")
		b.WriteString("4. El MONTO va en pesos, solo digitos, sin puntos, comas ni signo $.\n")
		b.WriteString("   Si dicen un numero pequeno para una compra grande (\"madera 280\") entiende miles: 280000.\n")
		b.WriteString("5. Si dictan un numero de factura, une los digitos dictados (\"tres uno cinco siete\" -> 3157).\n")
		fmt.Fprintf(&b, "   Si no hay factura escribe %s.\n", "N/A")
	}
	b.WriteString("No uses comillas en la respuesta. Responde una sola linea.\n\n")

	b.WriteString("FORMATO DE RESPUESTA OBLIGATORIO:\n")
	b.WriteString(c.TransactionFormat())
	b.WriteString("\n")
	if c.Version == schema.V2 {
		fmt.Fprintf(&b, "TIPO es %s o %s.\n", "INGRESO", "GASTO")
	}
	fmt.Fprintf(&b, "(Si es solo una nota: %s)\n", c.NoteFormat())

	return b.String()
}

func labelList(labels []string, tax *taxonomy.Taxonomy, c schema.Contract) string {
	if c.AllowFallback {
		labels = append(labels, tax.Fallback())
	}
	return strings.Join(labels, ", ")
}
