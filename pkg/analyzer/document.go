package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/evidence-toolkit/core/pkg/hashing"
	"github.com/evidence-toolkit/core/pkg/oracle"
	"github.com/evidence-toolkit/core/pkg/runctx"
	"github.com/evidence-toolkit/core/pkg/schema"
)

// DocumentAnalyzer produces a DocumentAnalysis for one document evidence
// item: its raw text, local word-frequency statistics, and the oracle's
// structured extraction.
type DocumentAnalyzer struct {
	Prompt string // empty uses the oracle package's default prompt
}

// Analyze extracts hash's text, checks for an existing AnalysisRecord under
// the deterministic analysis_id, and otherwise calls the oracle and
// persists the result through rc.Store.
func (a DocumentAnalyzer) Analyze(ctx context.Context, rc *runctx.RunContext, hash string) (Result, error) {
	path, err := rc.Store.RawPath(hash)
	if err != nil {
		return Result{}, fmt.Errorf("analyzer: document: raw path for %s: %w", hash, err)
	}
	text, err := hashing.ExtractText(path)
	if err != nil {
		return Result{}, fmt.Errorf("analyzer: document: extract text for %s: %w", hash, err)
	}

	promptHash := sha256Hex(promptOrDefault(a.Prompt, documentDefaultPromptMarker))
	analysisID := AnalysisID(hash, promptHash, rc.Config.OracleModelRevision)

	if existing, ok, err := findExisting(rc, hash, analysisID); err != nil {
		return Result{}, err
	} else if ok {
		return Result{Record: existing, OracleHit: false}, nil
	}

	doc, meta, err := rc.Oracle.AnalyzeDocument(ctx, oracle.DocumentRequest{
		Text:          text,
		Prompt:        a.Prompt,
		AnalysisKeyID: analysisID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("analyzer: document: oracle call for %s: %w", hash, err)
	}
	doc.WordFrequency = wordFrequency(text, 20)

	rec := schema.AnalysisRecord{
		AnalysisID:   analysisID,
		CreatedAt:    rc.Now(),
		EvidenceType: schema.EvidenceTypeDocument,
		Model:        meta.Model,
		Parameters: schema.AnalysisParameters{
			Temperature:   0,
			PromptHash:    meta.PromptHash,
			TokenUsageIn:  meta.TokensIn,
			TokenUsageOut: meta.TokensOut,
		},
		Document:          doc,
		ConfidenceOverall: doc.ConfidenceOverall,
	}
	if err := rc.Store.WriteAnalysis(hash, rec); err != nil {
		return Result{}, fmt.Errorf("analyzer: document: persist %s: %w", hash, err)
	}
	return Result{Record: rec, OracleHit: !meta.FromCache}, nil
}

const documentDefaultPromptMarker = "document-analysis-v1"

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"of": true, "to": true, "in": true, "on": true, "at": true, "for": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"it": true, "this": true, "that": true, "with": true, "as": true, "by": true,
	"from": true, "i": true, "you": true, "he": true, "she": true, "they": true,
	"we": true, "his": true, "her": true, "their": true, "its": true,
}

// wordFrequency computes top-N, total, and unique word counts purely
// locally (no oracle call), for downstream UI consumption rather than as
// forensic output.
func wordFrequency(text string, topN int) *schema.WordFrequency {
	counts := make(map[string]int)
	total := 0
	for _, raw := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	}) {
		w := strings.ToLower(raw)
		if w == "" || stopwords[w] {
			continue
		}
		counts[w]++
		total++
	}

	words := make([]schema.WordCount, 0, len(counts))
	for w, c := range counts {
		words = append(words, schema.WordCount{Word: w, Count: c})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Word < words[j].Word
	})
	if len(words) > topN {
		words = words[:topN]
	}
	return &schema.WordFrequency{TopWords: words, TotalWords: total, UniqueWords: len(counts)}
}

func promptOrDefault(prompt, marker string) string {
	if prompt != "" {
		return prompt
	}
	return marker
}
