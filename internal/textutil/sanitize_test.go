package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AC/DC", "AC_DC"},
		{`a<b>c:d"e\f|g?h*i`, "a_b_c_d_e_f_g_h_i"},
		{"  plain name ", "plain name"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPadIndex(t *testing.T) {
	tests := []struct {
		index, total int
		want         string
	}{
		{1, 9, "1"},
		{3, 12, "03"},
		{7, 120, "007"},
		{12, 12, "12"},
	}
	for _, tt := range tests {
		if got := PadIndex(tt.index, tt.total); got != tt.want {
			t.Errorf("PadIndex(%d, %d) = %q, want %q", tt.index, tt.total, got, tt.want)
		}
	}
}

func TestJoinPrefix(t *testing.T) {
	if got := JoinPrefix("mix", "", "01_Queen_Song"); got != "mix.01_Queen_Song" {
		t.Fatalf("JoinPrefix = %q", got)
	}
	if got := JoinPrefix("", " "); got != "" {
		t.Fatalf("JoinPrefix empty = %q", got)
	}
}
