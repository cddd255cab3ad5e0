package tools

import "testing"

func TestParseKind(t *testing.T) {
	cases := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "simulate", want: KindSimulate},
		{in: "Run", want: KindSimulate},
		{in: " synth ", want: KindSynthesize},
		{in: "synt", want: KindSynthesize},
		{in: "lnt", want: KindLint},
		{in: "", wantErr: true},
		{in: "xyz", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseKind(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseKind(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestKindValidAndTitle(t *testing.T) {
	for _, k := range Kinds {
		if !k.Valid() {
			t.Fatalf("%q should be valid", k)
		}
	}
	if Kind("route").Valid() {
		t.Fatal("route should not be valid")
	}
	if KindSimulate.Title() != "Run" {
		t.Fatalf("KindSimulate.Title() = %q", KindSimulate.Title())
	}
}
