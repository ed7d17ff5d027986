package dxcc

import "testing"

func TestPreprocess(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"K1ABC", "K1ABC"},
		{"K1ABC-5", "K1ABC"},
		{"K1ABC-#", "K1ABC"},
		{"K1ABC/P-1", "K1ABC"},
		{"K1ABC/P", "K1ABC"},
		{"K1ABC/M", "K1ABC"},
		{"K1ABC/QRP", "K1ABC"},
		{"K1ABC/B", "K1ABC"},
		{"K1ABC/P/QRP", "K1ABC"},
		{"VP2V/MM", "VP2V/MM"},
		{"DL/K1ABC/P", "DL/K1ABC"},
		{"K1ABC/PM", "K1ABC/PM"},
		{"K1ABCP", "K1ABCP"},
		{"k1abc/p", "k1abc/p"},
		{"-", ""},
		{"/P", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Preprocess(tt.in); got != tt.want {
				t.Errorf("Preprocess(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPreprocess_Idempotent(t *testing.T) {
	inputs := []string{
		"", "-", "/", "K1ABC", "K1ABC/P/P", "K1ABC/QRP/M/B", "VP2V/MM", "DL/K1ABC-3/P",
		"/P/P/P", "K1ABC//P", "A-B-C", "K1ABC/P-/M", "ÄÖ/P",
	}
	for _, in := range inputs {
		once := Preprocess(in)
		if twice := Preprocess(once); twice != once {
			t.Errorf("Preprocess not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
