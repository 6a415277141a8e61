package search

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want Query
		ok   bool
	}{
		{"", "", false},
		{"a", "", false},
		{"ab", "", false},
		{"   ab   ", "", false},
		{"\t\n", "", false},
		{"abc", "abc", true},
		{"  chick ", "chick", true},
		{"chicken   breast", "chicken breast", true},
		{"épi", "épi", true},
		{"é ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if tt.ok {
				if err != nil {
					t.Fatalf("Normalize(%q) error = %v", tt.raw, err)
				}
				if got != tt.want {
					t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
				}
				return
			}
			if !errors.Is(err, ErrInputRejected) {
				t.Errorf("Normalize(%q) error = %v, want ErrInputRejected", tt.raw, err)
			}
			if got != "" {
				t.Errorf("rejected input returned query %q", got)
			}
		})
	}
}
