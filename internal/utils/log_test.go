package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "non-positive limit hides the payload",
			input:  `{"message":"ok"}`,
			limit:  0,
			expect: "",
		},
		{
			name:   "short reply kept as is",
			input:  "Listo",
			limit:  10,
			expect: "Listo",
		},
		{
			name:   "long reply cut with ellipsis",
			input:  "He actualizado tu experiencia",
			limit:  12,
			expect: "He actualiza...",
		},
		{
			name:   "counts runes not bytes",
			input:  "Educación técnica",
			limit:  9,
			expect: "Educación...",
		},
		{
			name:   "surrounding whitespace ignored",
			input:  "\n  Añadí AWS  \n",
			limit:  20,
			expect: "Añadí AWS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
