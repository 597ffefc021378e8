package oracle

// entityMatchSchema and executiveSummarySchema are the JSON Schema
// contracts for resolve_entity_pair and summarize_case. Unlike
// document/email/image analysis, these are not persisted wire bundles
//, so they are not embedded
// alongside pkg/schema's schemas/*.json — they exist only as the
// caller-supplied schema for one oracle call.
var entityMatchSchema = map[string]any{
	"type":     "object",
	"required": []string{"is_same_entity", "confidence", "reasoning"},
	"properties": map[string]any{
		"is_same_entity":      map[string]any{"type": "boolean"},
		"confidence":          map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"supporting_signals":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"conflicting_signals": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"reasoning":           map[string]any{"type": "string"},
	},
}

var executiveSummarySchema = map[string]any{
	"type":     "object",
	"required": []string{"overview", "key_findings", "risk_assessment"},
	"properties": map[string]any{
		"overview":           map[string]any{"type": "string"},
		"key_findings":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"risk_assessment":    map[string]any{"type": "string"},
		"recommended_action": map[string]any{"type": "string"},
	},
}

// legalPatternsSchema is the contract for detect_legal_patterns: contradictions,
// corroboration groups, and evidence gaps derived from the correlation input.
var legalPatternsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"contradictions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"contradiction_type", "evidence_pair", "description", "severity"},
				"properties": map[string]any{
					"contradiction_type": map[string]any{"type": "string"},
					"evidence_pair":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": 2, "maxItems": 2},
					"description":        map[string]any{"type": "string"},
					"severity":           map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					"confidence":         map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				},
			},
		},
		"corroborations": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"evidence_group", "strength"},
				"properties": map[string]any{
					"evidence_group": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"strength":       map[string]any{"type": "string", "enum": []string{"weak", "moderate", "strong"}},
					"description":    map[string]any{"type": "string"},
				},
			},
		},
		"evidence_gaps": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"description", "severity"},
				"properties": map[string]any{
					"description": map[string]any{"type": "string"},
					"severity":     map[string]any{"type": "string"},
					"confidence":   map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				},
			},
		},
	},
}

const detectPatternsSystemPrompt = `You analyze a correlated legal evidence case for contradictions between
evidence items, groups of evidence that corroborate each other, and gaps in
the evidentiary record. Base every finding strictly on the supplied
correlation data: entities, timeline, and timeline gaps. Bucket corroboration
strength by source count: weak for 1 source, moderate for 2-3, strong for 4
or more.`
