package apiclient

import "testing"

func TestDurationsMatch(t *testing.T) {
	measured := []float64{212.0, 198.5, 240.1}

	if !DurationsMatch(measured, []float64{213, 199, 240}) {
		t.Error("expected accept: all candidates within +/-2s")
	}
	if DurationsMatch(measured, []float64{212.0, 198.5, 235.0}) {
		t.Error("expected reject: track 3 is 5.1s off")
	}
	if DurationsMatch(measured, []float64{212.0, 198.5}) {
		t.Error("expected reject: track count mismatch")
	}
}

func TestQueryVariantsOrder(t *testing.T) {
	variants := QueryVariants("Acme Sounds", "1998")
	if len(variants) != 5 {
		t.Fatalf("len = %d, want 5", len(variants))
	}
	if variants[0]["artist"] != "Acme Sounds" {
		t.Errorf("first variant = %+v", variants[0])
	}
	if len(variants[2]) != 0 {
		t.Errorf("third variant should be empty args, got %+v", variants[2])
	}
}
