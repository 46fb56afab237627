package pipeline

import (
	"strings"
	"testing"
	"time"

	"voice-ledger-service/internal/models"
)

func TestBuildRow(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tabs := Tabs{Notes: "Notas", Records: "Registros"}

	tests := []struct {
		name string
		rec  models.Record
		tab  string
		want []string
	}{
		{
			name: "note",
			rec:  &models.Note{Content: "Llamar a Ñusta mañana"},
			tab:  "Notas",
			want: []string{"2025-01-02 03:04:05", "llamar a nusta manana"},
		},
		{
			name: "transaction without invoice column",
			rec: &models.Transaction{
				Type: models.TypeIncome, Context: "FABRICA", Category: "base cama",
				Amount: 800000, Description: "Venta",
			},
			tab:  "Registros",
			want: []string{"2025-01-02 03:04:05", "ingreso", "fabrica", "base cama", "800000", "venta"},
		},
		{
			name: "transaction with empty invoice",
			rec: &models.Transaction{
				Type: models.TypeExpense, Context: "HOGAR", Category: "comida",
				Amount: 25000, Description: "almuerzo", HasInvoiceField: true,
			},
			tab:  "Registros",
			want: []string{"2025-01-02 03:04:05", "gasto", "hogar", "comida", "25000", "almuerzo", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := BuildRow(tt.rec, tabs, at)
			if row.Tab != tt.tab {
				t.Errorf("Tab = %q, want %q", row.Tab, tt.tab)
			}
			if strings.Join(row.Values, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Values = %q, want %q", row.Values, tt.want)
			}
		})
	}
}

func TestTransactionReply(t *testing.T) {
	row := models.StoredRow{Values: []string{"ts", "gasto", "hogar", "comida", "25000", "almuerzo", ""}}
	got := TransactionReply(row)
	want := "✅ GASTO\nContexto: hogar\nCat: comida\nValor: $25000\nDesc: almuerzo"
	if got != want {
		t.Errorf("TransactionReply() = %q, want %q", got, want)
	}
}

func TestStructuringFailedReply(t *testing.T) {
	if got := StructuringFailedReply("NOTA"); !strings.HasSuffix(got, "Respuesta: NOTA") {
		t.Errorf("reply %q does not carry raw answer", got)
	}
}
