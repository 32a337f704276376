package survey

import (
	"errors"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+79161234567", "+79161234567", false},
		{"79161234567", "+79161234567", false},  // shared contact without plus
		{"89161234567", "+79161234567", false},  // domestic prefix
		{" +79161234567 ", "+79161234567", false},
		{"9161234567", "", true},     // no country prefix
		{"+7916123456", "", true},    // too short
		{"+791612345678", "", true},  // too long
		{"+19161234567", "", true},   // wrong country code
		{"+7916123456a", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPhone) {
				t.Errorf("NormalizePhone(%q): expected ErrInvalidPhone, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizePhone(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
