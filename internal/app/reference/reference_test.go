package reference

import (
	"strings"
	"testing"
)

func TestNewShapeAndAlphabet(t *testing.T) {
	code, err := New("RF")
	if err != nil {
		t.Fatalf("new code: %v", err)
	}
	if !strings.HasPrefix(code, "RF-") {
		t.Fatalf("missing prefix: %s", code)
	}
	body := strings.TrimPrefix(code, "RF-")
	if len(body) != codeLength {
		t.Fatalf("expected %d chars, got %d (%s)", codeLength, len(body), code)
	}
	for _, c := range body {
		if !strings.ContainsRune(alphabet, c) {
			t.Fatalf("character %q outside alphabet in %s", c, code)
		}
	}
}

func TestNewDoesNotRepeatQuickly(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := New("LP")
		if err != nil {
			t.Fatalf("new code: %v", err)
		}
		if seen[code] {
			t.Fatalf("duplicate code after %d draws: %s", i, code)
		}
		seen[code] = true
	}
}
