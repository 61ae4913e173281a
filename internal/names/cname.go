// Package names implements the canonical-name grammar from spec §6:
// cname := Label " - " Title (" (" Note ")")?, and the label_dir derivation.
// Grounded on the original Python NameUtility (name_is_canonical,
// divide_cname, label_dir_from_cname) — the split-and-rejoin shape is kept,
// generalized to idiomatic Go string handling.
package names

import "strings"

// Parts holds the decomposition of a canonical name.
type Parts struct {
	Label string
	Title string
	Note  string // empty if no "(Note)" suffix
}

// IsCanonical reports whether name conforms to the cname grammar: it must
// contain " - " at least once, must not start or end with a space, and must
// not contain a double space or a literal ".". A trailing ".rar" (archive
// filename) is removed before these checks.
func IsCanonical(name string) bool {
	name = strings.TrimSuffix(name, ".rar")
	if !strings.Contains(name, " - ") {
		return false
	}
	if strings.HasPrefix(name, " ") || strings.HasSuffix(name, " ") {
		return false
	}
	if strings.Contains(name, "  ") || strings.Contains(name, ".") {
		return false
	}
	return true
}

// Divide splits a cname into its Label, Title, and optional Note. Input may
// carry a trailing ".rar" (archive filename) or not (bare cname).
func Divide(cname string) Parts {
	cname = strings.TrimSuffix(cname, ".rar")
	idx := strings.Index(cname, " - ")
	if idx < 0 {
		// Not canonical; best-effort: whole string is the label, no title.
		return Parts{Label: cname}
	}
	label := cname[:idx]
	title := cname[idx+len(" - "):]

	note := ""
	if open := strings.LastIndex(title, " ("); open >= 0 && strings.HasSuffix(title, ")") {
		note = title[open+2 : len(title)-1]
		title = title[:open]
	}
	return Parts{Label: label, Title: title, Note: note}
}

// Reassemble is the inverse of Divide: it rebuilds the original cname string
// from its parts. Round-trips with Divide for any cname passing IsCanonical
// (spec §8 invariant 5).
func (p Parts) Reassemble() string {
	var b strings.Builder
	b.WriteString(p.Label)
	b.WriteString(" - ")
	b.WriteString(p.Title)
	if p.Note != "" {
		b.WriteString(" (")
		b.WriteString(p.Note)
		b.WriteString(")")
	}
	return b.String()
}

// LabelDir derives the snake_case filesystem directory for a cname's label:
// lowercase(replace(Label, " ", "_")).
func LabelDir(cname string) string {
	label := Divide(cname).Label
	return strings.ToLower(strings.ReplaceAll(label, " ", "_"))
}

// HasMediaTypeLabel reports whether title carries a media-type marker like
// " CDM", "CDR", "CDS", " MCD", " EP", " LP" (used to retry metadata search
// with a trimmed title, spec §4.4).
func HasMediaTypeLabel(title string) bool {
	for _, marker := range []string{" CDM", "CDR", "CDS", " MCD", " EP", " LP"} {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}

var mediaTypePatterns = []string{"MCD", "CDM", "CDS", "CDR", "CD", "EP", "LP"}

// DropMediaTypeLabels removes a trailing/embedded media-type token (optionally
// followed by digits) from title, e.g. "Title CDM1" -> "Title".
func DropMediaTypeLabels(title string) string {
	fields := strings.Fields(title)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		stripped := strings.TrimRight(f, "0123456789")
		matched := false
		for _, p := range mediaTypePatterns {
			if strings.EqualFold(stripped, p) {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}
