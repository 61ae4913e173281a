// Package pathparser implements path_parser.parse (spec §4.4): given an
// audio file's path, detect an embedded tempo and key signature and tokenize
// whatever linguistic content remains. Grounded on original_source's
// util/Parser.py (AudioFilePathParser) — the normalize-separators /
// detect-tempo-then-key / tokenize-the-remainder pipeline, its tempo
// disambiguation ranges, and its regex shapes are kept; the token filters
// follow spec §4.4's explicit rule list rather than the original's (the
// spec drops tokens shorter than 3 characters, not the original's
// length-1 filter, and additionally drops attribution and bare
// path-numeric tokens the original didn't filter).
package pathparser

import (
	"regexp"
	"strconv"
	"strings"
)

var spaceAlts = []string{
	"/", "_", "-", "‒", "–", "—", "−", "~", "=", ",", ".", ":",
	"(", ")", "[", "]", "{", "}", "<", ">",
}

var dropChars = []string{"'", "\"", "!", "?"}

var (
	reRawKey          = regexp.MustCompile(`\b[a-g] ?(b|#|sharp|flat)? ?(m(in|aj)?)?(or)?([2-7])?\b`)
	reTempoPostfix    = regexp.MustCompile(`\d{2,3}( )?bpm`)
	reTempoPrefix     = regexp.MustCompile(`bpm ?\d{2,3}\b`)
	reTempoNoLabel    = regexp.MustCompile(`\b\d{2,3}\b`)
	reHasLetter       = regexp.MustCompile(`[a-z]`)
	reDigitsOnly      = regexp.MustCompile(`^\d+$`)
)

var tempoRanges = [][2]int{{80, 140}, {60, 180}, {40, 240}}

const tempoOuterMin, tempoOuterMax = 20, 300

// numericAllowlist names bare numeric tokens that survive filtering despite
// being digits-only (track/volume numbers the catalog treats as
// meaningful). Empty by default; spec §4.4 calls this "a small allowlist"
// without naming entries, so none are assumed here; nothing in this
// package adds entries to it.
var numericAllowlist = map[string]bool{}

// Parsed is the result of parsing one audio file path.
type Parsed struct {
	Path   string
	Key    string
	Tempo  string
	Tokens []string
}

// Parse implements path_parser.parse for a single path.
func Parse(path string) Parsed {
	lower := trim(strings.ToLower(path))
	normalized := normalizeSpaces(lower)

	rawTempo, tempo := parseTempo(normalized)
	rawKey, key := parseKeySignature(normalized)

	stripped := lower
	if rawTempo != "" {
		stripped = strings.Replace(stripped, rawTempo, "", 1)
	}
	if rawKey != "" {
		stripped = strings.Replace(stripped, rawKey, "", 1)
	}
	normalStripped := normalizeSpaces(cleanse(stripped))

	var rawTokens []string
	for _, f := range strings.Split(normalStripped, " ") {
		if f != "" {
			rawTokens = append(rawTokens, strings.ToLower(f))
		}
	}

	return Parsed{
		Path:   lower,
		Key:    key,
		Tempo:  tempo,
		Tokens: filterTokens(rawTokens),
	}
}

// trim drops a trailing extension and a leading path segment, mirroring
// the original's path.trim (extension is appended by the caller's own
// filetype bookkeeping, and the leading segment is typically the catalog
// root).
func trim(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		path = path[:i]
	}
	if i := strings.Index(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return path
}

func normalizeSpaces(path string) string {
	for _, d := range spaceAlts {
		path = strings.ReplaceAll(path, d, " ")
	}
	path = strings.TrimSpace(path)
	for strings.Contains(path, "  ") {
		path = strings.ReplaceAll(path, "  ", " ")
	}
	return path
}

func cleanse(path string) string {
	for _, c := range dropChars {
		path = strings.ReplaceAll(path, c, "")
	}
	return path
}

func parseKeySignature(path string) (raw, normal string) {
	raw = reRawKey.FindString(path)
	if raw == "" {
		return "", ""
	}
	return raw, normalKeySignature(raw)
}

func normalKeySignature(raw string) string {
	raw = strings.ReplaceAll(raw, " ", "")
	if len(raw) < 2 {
		return strings.ToUpper(raw)
	}
	sig := strings.ToUpper(raw[:1]) + strings.ToLower(raw[1:])
	sig = strings.ReplaceAll(sig, "sharp", "#")
	sig = strings.ReplaceAll(sig, "flat", "b")
	sig = strings.ReplaceAll(sig, "or", "")
	sig = regexp.MustCompile(`m($|[2-7])`).ReplaceAllString(sig, "min$1")
	return sig
}

func parseTempo(path string) (raw, normal string) {
	candidates := rawTempoCandidates(path)
	switch len(candidates) {
	case 0:
		return "", ""
	case 1:
		raw = candidates[0]
		return raw, normalTempo(raw)
	default:
		return tempoFromCandidates(candidates)
	}
}

func hasTempoLabel(path string) bool {
	return strings.Contains(path, "bpm")
}

func rawTempoCandidates(path string) []string {
	if hasTempoLabel(path) {
		var out []string
		if m := reTempoPostfix.FindString(path); m != "" {
			out = append(out, m)
		}
		if m := reTempoPrefix.FindString(path); m != "" {
			out = append(out, m)
		}
		return out
	}
	found := reTempoNoLabel.FindAllString(path, -1)
	if len(found) <= 1 {
		return found
	}
	seen := map[string]bool{}
	var uniq []string
	for _, f := range found {
		if !seen[f] {
			seen[f] = true
			uniq = append(uniq, f)
		}
	}
	return uniq
}

func normalTempo(raw string) string {
	return regexp.MustCompile(`\d{2,3}`).FindString(raw)
}

func tempoFromCandidates(candidates []string) (raw, normal string) {
	numbers := make([]int, len(candidates))
	for i, c := range candidates {
		n, _ := strconv.Atoi(normalTempo(c))
		numbers[i] = n
	}
	matchIdx := -1
	for _, r := range tempoRanges {
		idxs := []int{}
		for i, n := range numbers {
			if n >= r[0] && n <= r[1] {
				idxs = append(idxs, i)
			}
		}
		if len(idxs) == 1 {
			matchIdx = idxs[0]
			break
		}
	}
	if matchIdx < 0 {
		return "", ""
	}
	n := numbers[matchIdx]
	if n < tempoOuterMin || n > tempoOuterMax {
		return "", ""
	}
	return candidates[matchIdx], strconv.Itoa(n)
}

// filterTokens applies spec §4.4's drop rules, in order: length <3, spam
// (repeated single char), non-linguistic (no a-z letter), attribution
// (@...), and bare numeric tokens outside the allowlist.
func filterTokens(tokens []string) []string {
	var out []string
	for _, t := range tokens {
		if len(t) < 3 {
			continue
		}
		if isSpam(t) {
			continue
		}
		if !reHasLetter.MatchString(t) && !numericAllowlist[t] {
			continue
		}
		if strings.HasPrefix(t, "@") {
			continue
		}
		if reDigitsOnly.MatchString(t) && !numericAllowlist[t] {
			continue
		}
		out = append(out, t)
	}
	return out
}

func isSpam(t string) bool {
	return strings.Count(t, string(t[0])) == len(t)
}
