package invitation

import (
	"strings"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken() error = %v", err)
		}
		if !wellFormed(token) {
			t.Fatalf("GenerateToken() = %q, not well formed", token)
		}
		if seen[token] {
			t.Fatalf("GenerateToken() repeated %q", token)
		}
		seen[token] = true
	}
}

func TestWellFormed(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{strings.Repeat("A", 43), true},
		{strings.Repeat("z", 42) + "_", true},
		{strings.Repeat("0", 42) + "-", true},
		{"", false},
		{strings.Repeat("A", 42), false},
		{strings.Repeat("A", 44), false},
		{strings.Repeat("A", 42) + "=", false},
		{strings.Repeat("A", 42) + "/", false},
		{strings.Repeat("A", 42) + " ", false},
	}

	for _, tt := range tests {
		if got := wellFormed(tt.token); got != tt.want {
			t.Errorf("wellFormed(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestTypeValid(t *testing.T) {
	if !TypeWorkspace.Valid() || !TypeDevice.Valid() {
		t.Error("known invitation types should be valid")
	}
	if Type("team").Valid() {
		t.Error(`Type("team").Valid() = true`)
	}
}
