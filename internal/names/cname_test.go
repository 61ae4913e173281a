package names

import "testing"

func TestIsCanonical(t *testing.T) {
	cases := map[string]bool{
		"Acme Sounds - Pack Vol 1":          true,
		"Acme Sounds - Pack Vol 1 (Deluxe)": true,
		" Acme Sounds - Pack Vol 1":         false,
		"Acme Sounds - Pack Vol 1 ":         false,
		"Acme Sounds -  Pack Vol 1":         false,
		"Acme Sounds - Pack Vol. 1":         false,
		"Acme Sounds":                       false,
	}
	for name, want := range cases {
		if got := IsCanonical(name); got != want {
			t.Errorf("IsCanonical(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDivideAndReassembleRoundTrip(t *testing.T) {
	names := []string{
		"Acme Sounds - Pack Vol 1",
		"Acme Sounds - Pack Vol 1 (Deluxe Edition)",
		"Deep House United - Progressive - Trance Anthems",
	}
	for _, n := range names {
		if !IsCanonical(n) {
			t.Fatalf("test fixture %q is not canonical", n)
		}
		got := Divide(n).Reassemble()
		if got != n {
			t.Errorf("round trip: Divide(%q).Reassemble() = %q", n, got)
		}
	}
}

func TestDivideRarSuffix(t *testing.T) {
	p := Divide("Acme Sounds - Pack Vol 1.rar")
	if p.Label != "Acme Sounds" || p.Title != "Pack Vol 1" {
		t.Fatalf("unexpected parts: %+v", p)
	}
}

func TestLabelDir(t *testing.T) {
	cases := map[string]string{
		"Acme Sounds - Pack Vol 1":  "acme_sounds",
		"Deep House United - Vol 2": "deep_house_united",
	}
	for cname, want := range cases {
		if got := LabelDir(cname); got != want {
			t.Errorf("LabelDir(%q) = %q, want %q", cname, got, want)
		}
	}
}

func TestDropMediaTypeLabels(t *testing.T) {
	got := DropMediaTypeLabels("Title CDM1")
	if got != "Title" {
		t.Errorf("DropMediaTypeLabels = %q, want %q", got, "Title")
	}
}
