package amount

import (
	"errors"
	"testing"
)

func TestStrict(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr error
	}{
		{"280000", 280000, nil},
		{" 15000 ", 15000, nil},
		{"0", 0, nil},
		{"280.000", 0, ErrNotDigit},
		{"$280000", 0, ErrNotDigit},
		{"-5", 0, ErrNotDigit},
		{"MONTO", 0, ErrNotDigit},
		{"", 0, ErrEmpty},
		{"99999999999999999999", 0, ErrRange},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Strict{}.Interpret(tt.raw, "fabrica", "materiales")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Interpret(%q) err = %v, want %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Interpret(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIdentity(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr error
	}{
		{"280", 280, nil},
		{"$280.000", 280000, nil},
		{"1,500", 1500, nil},
		{"12 000", 12000, nil},
		{"1.500.000", 1500000, nil},
		{"280,50", 0, ErrNotDigit},
		{"1.500,50", 0, ErrNotDigit},
		{"$ 12.5", 0, ErrNotDigit},
		{"1500.000", 0, ErrNotDigit},
		{"280.", 0, ErrNotDigit},
		{".500", 0, ErrNotDigit},
		{"doce mil", 0, ErrNotDigit},
		{"$", 0, ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Identity{}.Interpret(tt.raw, "hogar", "comida")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Interpret(%q) err = %v, want %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Interpret(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}
