package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	v, c, d := Info()
	if v == "" || c == "" || d == "" {
		t.Fatalf("build info must never be empty, got version=%q commit=%q date=%q", v, c, d)
	}
}

func TestString(t *testing.T) {
	s := String()

	if !strings.HasPrefix(s, "orders ") {
		t.Errorf("build string must name the service, got %q", s)
	}
	v, c, d := Info()
	for _, part := range []string{v, c, d} {
		if !strings.Contains(s, part) {
			t.Errorf("build string %q must contain %q", s, part)
		}
	}
}
