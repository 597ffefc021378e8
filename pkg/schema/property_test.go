//go:build property
// +build property

package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func propBundle(sha string, confidence float64, action CustodyAction) EvidenceBundle {
	return EvidenceBundle{
		SchemaVersion: BundleSchemaVersion,
		CaseID:        "CASE-PROP",
		Evidence: FileMetadata{
			SHA256:           sha,
			Size:             1024,
			MIMEType:         "text/plain",
			OriginalFilename: "evidence.txt",
			Extension:        ".txt",
			IngestedAt:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		ChainOfCustody: []ChainOfCustodyEntry{
			{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Actor: "tester", Action: action},
		},
		Analyses: []AnalysisRecord{
			{
				AnalysisID:   "a1",
				CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				EvidenceType: EvidenceTypeDocument,
				Model:        AnalysisModelInfo{Name: "oracle-test", Revision: "r1"},
				Parameters:   AnalysisParameters{Temperature: 0, PromptHash: "deadbeef"},
				Document: &DocumentAnalysis{
					Summary:           "sample",
					DocumentType:      "letter",
					Sentiment:         "neutral",
					LegalSignificance: "low",
					RiskFlags:         []RiskFlag{RiskPII},
					ConfidenceOverall: confidence,
				},
				ConfidenceOverall: confidence,
			},
		},
	}
}

var custodyActions = []CustodyAction{CustodyIngest, CustodyAnalyze, CustodyExport, CustodyCorrelate, CustodyPackage}

var sampleSHA = "ab12cd34ef560000000000000000000000000000000000000000000000000000"[:64]

// write(read(write(x))) == write(x) byte-for-byte.
func TestProperty_MarshalRoundTripFixedPoint(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("marshal is a fixed point across a decode/re-encode cycle", prop.ForAll(
		func(confidence float64, actionIdx int) bool {
			if confidence < 0 || confidence > 1 {
				return true
			}
			b := propBundle(sampleSHA, confidence, custodyActions[actionIdx%len(custodyActions)])

			first, err := Marshal(&b)
			if err != nil {
				return false
			}

			var decoded EvidenceBundle
			if err := json.Unmarshal(first, &decoded); err != nil {
				return false
			}

			second, err := Marshal(&decoded)
			if err != nil {
				return false
			}
			return string(first) == string(second)
		},
		gen.Float64Range(0, 1),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

// Every well-formed bundle this package can produce validates against its
// declared schema_version.
func TestProperty_BundlesValidate(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("marshaled bundles validate against evidence_bundle.v1.json", prop.ForAll(
		func(confidence float64, actionIdx int) bool {
			if confidence < 0 || confidence > 1 {
				return true
			}
			b := propBundle(sampleSHA, confidence, custodyActions[actionIdx%len(custodyActions)])
			return ValidateEvidenceBundle(&b) == nil
		},
		gen.Float64Range(0, 1),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

// Every risk flag NormalizeImageRiskFlag can produce from a raw oracle
// string is a member of the documented image risk vocabulary.
func TestProperty_ImageRiskFlagClosure(t *testing.T) {
	rawFlags := []string{"blurry", "uncertain_text", "damage", "low_quality", "tampering_suspected", "ocr_ambiguous", "nsfw", "pii", "unrecognized_flag"}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("normalized image risk flags are always in the closed vocabulary", prop.ForAll(
		func(idx int) bool {
			raw := rawFlags[idx%len(rawFlags)]
			flag, ok := NormalizeImageRiskFlag(raw)
			if !ok {
				return true // unrecognized flags are dropped, not fabricated
			}
			return ImageRiskFlags[flag]
		},
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
