package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleBundle() *EvidenceBundle {
	ts := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	return &EvidenceBundle{
		SchemaVersion: BundleSchemaVersion,
		CaseID:        "CASE-1",
		Evidence: FileMetadata{
			SHA256:           "0000000000000000000000000000000000000000000000000000000000000000"[:64],
			Size:             6,
			MIMEType:         "text/plain",
			OriginalFilename: "hello.txt",
			Extension:        ".txt",
			IngestedAt:       ts,
		},
		ChainOfCustody: []ChainOfCustodyEntry{
			{Timestamp: ts, Actor: "tester", Action: CustodyIngest},
		},
		Analyses: []AnalysisRecord{
			{
				AnalysisID:   "a1",
				CreatedAt:    ts,
				EvidenceType: EvidenceTypeDocument,
				Model:        AnalysisModelInfo{Name: "gpt-test", Revision: "r1"},
				Parameters:   AnalysisParameters{Temperature: 0, PromptHash: "deadbeef"},
				Document: &DocumentAnalysis{
					Summary:           "a short letter",
					DocumentType:      "letter",
					Sentiment:         "neutral",
					LegalSignificance: "low",
					RiskFlags:         []RiskFlag{RiskPII},
					ConfidenceOverall: 0.123456,
				},
				ConfidenceOverall: 0.123456,
			},
		},
	}
}

func TestMarshal_RoundTripFixedPoint(t *testing.T) {
	b := sampleBundle()
	out1, err := Marshal(b)
	require.NoError(t, err)

	var decoded EvidenceBundle
	require.NoError(t, json.Unmarshal(out1, &decoded))

	out2, err := Marshal(&decoded)
	require.NoError(t, err)
	require.Equal(t, string(out1), string(out2), "read(write(x)) must be a fixed point")
}

func TestMarshal_RoundsConfidenceTo4Decimals(t *testing.T) {
	b := sampleBundle()
	out, err := Marshal(b)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	analyses := decoded["analyses"].([]interface{})
	a0 := analyses[0].(map[string]interface{})
	require.InDelta(t, 0.1235, a0["confidence_overall"], 1e-9)
}

func TestValidateEvidenceBundle_OK(t *testing.T) {
	require.NoError(t, ValidateEvidenceBundle(sampleBundle()))
}

func TestValidateEvidenceBundle_RejectsUnknownVersion(t *testing.T) {
	b := sampleBundle()
	b.SchemaVersion = "9.9.9"
	err := ValidateEvidenceBundle(b)
	require.Error(t, err)
}

func TestAcceptsVersion(t *testing.T) {
	require.True(t, AcceptsVersion("1.0.0"))
	require.False(t, AcceptsVersion("2.0.0"))
	require.False(t, AcceptsVersion("not-a-version"))
}

func TestNormalizeTimestamp_LenientParsingAlwaysUTC(t *testing.T) {
	t1, err := NormalizeTimestamp("2026-01-15T10:00:00+02:00")
	require.NoError(t, err)
	require.Equal(t, time.UTC, t1.Location())
	require.Equal(t, 8, t1.Hour())
}
