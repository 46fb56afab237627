package mock

import (
	"context"
	"errors"
	"testing"

	"voice-ledger-service/internal/service/taxonomy"
)

func TestClassifier(t *testing.T) {
	c := New(map[string]string{"gaste": `"GASTO|HOGAR|Comida|1000|almuerzo|N/A"`})
	tax := taxonomy.Default()

	got, err := c.Classify(context.Background(), "gaste", tax)
	if err != nil {
		t.Fatal(err)
	}
	if got != "GASTO|HOGAR|Comida|1000|almuerzo|N/A" {
		t.Errorf("got %q", got)
	}

	got, _ = c.Classify(context.Background(), "llamar al proveedor", tax)
	if got != "NOTA|llamar al proveedor" {
		t.Errorf("default got %q", got)
	}

	c.Default = "NOTA|CONTENIDO"
	got, _ = c.Classify(context.Background(), "otra cosa", tax)
	if got != "NOTA|CONTENIDO" {
		t.Errorf("custom default got %q", got)
	}

	if len(c.Calls()) != 3 {
		t.Errorf("calls = %d, want 3", len(c.Calls()))
	}
}

func TestClassifier_Error(t *testing.T) {
	c := New(nil)
	c.Err = errors.New("rate limited")

	if _, err := c.Classify(context.Background(), "x", taxonomy.Default()); !errors.Is(err, c.Err) {
		t.Errorf("expected configured error, got %v", err)
	}
}
