package pathparser

import (
	"reflect"
	"testing"
)

func TestParse_LiteralScenario(t *testing.T) {
	got := Parse("Label - Title/Drums 128bpm/01 F#min Kick.wav")
	if got.Tempo != "128" {
		t.Errorf("Tempo = %q, want %q", got.Tempo, "128")
	}
	if got.Key != "F#min" {
		t.Errorf("Key = %q, want %q", got.Key, "F#min")
	}
	want := []string{"drums", "kick"}
	if !reflect.DeepEqual(got.Tokens, want) {
		t.Errorf("Tokens = %v, want %v", got.Tokens, want)
	}
}

func TestTempoDisambiguation(t *testing.T) {
	cases := []struct {
		name       string
		candidates []string
		wantTempo  string
	}{
		{"single in 80-140 wins", []string{"93", "210"}, "93"},
		{"falls back to 60-180 when none in 80-140", []string{"65", "210"}, "65"},
		{"falls back to 40-240 when none in 60-180", []string{"45", "999"}, "45"},
		{"ambiguous within range yields none", []string{"90", "120"}, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, tempo := tempoFromCandidates(c.candidates)
			if tempo != c.wantTempo {
				t.Errorf("tempoFromCandidates(%v) tempo = %q, want %q", c.candidates, tempo, c.wantTempo)
			}
		})
	}
}

func TestFilterTokensDropsSpamAndAttribution(t *testing.T) {
	got := filterTokens([]string{"aaaa", "@someone", "kick", "123", "ok"})
	want := []string{"kick"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filterTokens = %v, want %v", got, want)
	}
}
