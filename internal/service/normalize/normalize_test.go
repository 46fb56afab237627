package normalize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"accents", "Fábrica", "fabrica"},
		{"enye", "Año Niño", "ano nino"},
		{"trim", "  Materiales  ", "materiales"},
		{"upper", "GASTO", "gasto"},
		{"not applicable", "N/A", ""},
		{"not applicable lower", " n/a ", ""},
		{"na token", "NA", ""},
		{"symbols dropped", "€ comida", "comida"},
		{"diaeresis", "pingüino", "pinguino"},
		{"ascii untouched", "compra de madera", "compra de madera"},
		{"na inside text", "nada", "nada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestText_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"N/A",
		"  Cama Multifuncional ",
		"Refacción de sofá",
		"€ n/a ",
		"Ñandú",
		"\tSalud\n",
		"Silletería · 3",
		"ﬁ ligature",
	}

	for _, in := range inputs {
		once := Text(in)
		twice := Text(once)
		if once != twice {
			t.Errorf("Text not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestIsNotApplicable(t *testing.T) {
	if !IsNotApplicable(" N/A") {
		t.Error("expected N/A to be not applicable")
	}
	if !IsNotApplicable("na") {
		t.Error("expected na to be not applicable")
	}
	if IsNotApplicable("3157") {
		t.Error("expected 3157 to be applicable")
	}
}
