// Package correlate implements the cross-evidence correlator: entity
// aggregation and canonicalization, timeline assembly, and legal pattern
// detection over a case's full set of analyzed evidence.
package correlate

import (
	"sort"
	"strings"
	"unicode"

	"github.com/evidence-toolkit/core/pkg/schema"
)

// candidate is one raw entity occurrence before canonicalization, carrying
// the variant name it was extracted under.
type candidate struct {
	variant   string
	entityType schema.EntityType
	occurrence schema.EntityOccurrence
}

// aggregate runs Stage 1 over every bundle's analyses: collecting candidate
// entity occurrences from DocumentAnalysis entities, EmailAnalysis
// participants, and tokenized ImageAnalysis OCR text.
func aggregate(bundles []schema.EvidenceBundle) []candidate {
	var out []candidate
	for _, b := range bundles {
		for _, rec := range b.Analyses {
			switch rec.EvidenceType {
			case schema.EvidenceTypeDocument:
				out = append(out, documentCandidates(b.Evidence.SHA256, rec.Document)...)
			case schema.EvidenceTypeEmail:
				out = append(out, emailCandidates(b.Evidence.SHA256, rec.Email)...)
			case schema.EvidenceTypeImage:
				out = append(out, imageCandidates(b.Evidence.SHA256, rec.Image)...)
			}
		}
	}
	return out
}

func documentCandidates(sha string, doc *schema.DocumentAnalysis) []candidate {
	if doc == nil {
		return nil
	}
	out := make([]candidate, 0, len(doc.Entities))
	for _, e := range doc.Entities {
		out = append(out, candidate{
			variant:    e.Name,
			entityType: documentEntityType(e.Type),
			occurrence: schema.EntityOccurrence{
				EvidenceSHA256:   sha,
				Context:          e.Context,
				Confidence:       e.Confidence,
				VariantName:      e.Name,
				ExtractionMethod: schema.ExtractionAIAnalysis,
			},
		})
	}
	return out
}

func documentEntityType(raw string) schema.EntityType {
	switch raw {
	case "person":
		return schema.EntityPerson
	case "organization":
		return schema.EntityOrganization
	case "date":
		return schema.EntityDate
	default:
		return schema.EntityOther
	}
}

func emailCandidates(sha string, email *schema.EmailAnalysis) []candidate {
	if email == nil {
		return nil
	}
	out := make([]candidate, 0, len(email.Participants))
	for _, p := range email.Participants {
		out = append(out, candidate{
			variant:    p.EmailAddress,
			entityType: schema.EntityEmailAddress,
			occurrence: schema.EntityOccurrence{
				EvidenceSHA256:   sha,
				Context:          p.AuthorityLevel,
				Confidence:       confidenceFromDeference(p.DeferenceScore),
				VariantName:      p.EmailAddress,
				ExtractionMethod: schema.ExtractionAIAnalysis,
			},
		})
	}
	return out
}

// confidenceFromDeference derives a placeholder occurrence confidence for
// participants, who are named by the oracle directly rather than
// independently scored the way DocumentEntity extractions are: a
// participant's presence in the thread is itself near-certain, independent
// of where they sit on the deference spectrum.
func confidenceFromDeference(float64) float64 { return 0.95 }

// imageCandidates proposes one candidate per run of 2+ capitalized words in
// an image's OCR text, the heuristic OCR proposal rule for names.
func imageCandidates(sha string, img *schema.ImageAnalysis) []candidate {
	if img == nil || img.OCRText == "" {
		return nil
	}
	var out []candidate
	words := strings.Fields(img.OCRText)
	var run []string
	flush := func() {
		if len(run) >= 2 {
			name := strings.Join(run, " ")
			out = append(out, candidate{
				variant:    name,
				entityType: schema.EntityOther,
				occurrence: schema.EntityOccurrence{
					EvidenceSHA256:   sha,
					Context:          "ocr_text",
					Confidence:       0.5,
					VariantName:      name,
					ExtractionMethod: schema.ExtractionOCR,
				},
			})
		}
		run = nil
	}
	for _, w := range words {
		if isCapitalizedWord(w) {
			run = append(run, w)
		} else {
			flush()
		}
	}
	flush()
	return out
}

func isCapitalizedWord(w string) bool {
	r := []rune(strings.Trim(w, ".,;:\"'()"))
	if len(r) == 0 {
		return false
	}
	return unicode.IsUpper(r[0])
}

// normalize case-folds and whitespace-collapses a variant name for byte-
// identical merge comparison.
func normalize(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, " ")
}

// canonicalize runs Stage 2's exact-match merge: candidates whose
// normalized names are byte-identical become one Entity.
func canonicalize(candidates []candidate) []*schema.Entity {
	byKey := make(map[string]*schema.Entity)
	var order []string
	for _, c := range candidates {
		key := normalize(c.variant)
		if key == "" {
			continue
		}
		e, ok := byKey[key]
		if !ok {
			e = &schema.Entity{CanonicalName: titleCase(c.variant), Type: c.entityType}
			byKey[key] = e
			order = append(order, key)
		}
		e.Occurrences = append(e.Occurrences, c.occurrence)
	}
	out := make([]*schema.Entity, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		r := []rune(f)
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
			for j := 1; j < len(r); j++ {
				r[j] = unicode.ToLower(r[j])
			}
		}
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}

// filterAndScore applies Stage 3: an Entity survives only with occurrences
// in >= 2 distinct evidence items, and its correlation_confidence is the
// mean occurrence confidence capped at 0.99.
func filterAndScore(entities []*schema.Entity) []schema.Entity {
	out := make([]schema.Entity, 0, len(entities))
	for _, e := range entities {
		if e.DistinctEvidenceCount() < 2 {
			continue
		}
		e.CorrelationConfidence = meanConfidenceCapped(e.Occurrences, 0.99)
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalName < out[j].CanonicalName })
	return out
}

func meanConfidenceCapped(occs []schema.EntityOccurrence, cap float64) float64 {
	if len(occs) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range occs {
		sum += o.Confidence
	}
	mean := sum / float64(len(occs))
	if mean > cap {
		return cap
	}
	return mean
}
