package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"42", 0, 42},
		{"", 10, 10},
		{"x", 5, 5},
		{"-3", 1, -3},
	}
	for _, c := range cases {
		if got := AtoiDefault(c.in, c.def); got != c.want {
			t.Errorf("AtoiDefault(%q, %d) = %d; want %d", c.in, c.def, got, c.want)
		}
	}
}

func TestClampInt(t *testing.T) {
	if got := ClampInt(100, 1, 50); got != 50 {
		t.Errorf("ClampInt(100,1,50) = %d; want 50", got)
	}
	if got := ClampInt(-1, 1, 50); got != 1 {
		t.Errorf("ClampInt(-1,1,50) = %d; want 1", got)
	}
	if got := ClampInt(7, 1, 50); got != 7 {
		t.Errorf("ClampInt(7,1,50) = %d; want 7", got)
	}
}
