package oracle

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/evidence-toolkit/core/pkg/schema"
)

// Default system prompts per analysis kind. Changing any of these changes
// the prompt_hash recorded with each new call; it does not change
// analysis_ids, which the analyzers derive from their prompt marker
// constants (or an override prompt) rather than from this text.
const (
	documentSystemPrompt = `You are a forensic document analyzer for legal evidence processing.
Identify people, organizations, dates, and legal terms with confidence scores, context,
relationships, quoted admissions, and associated events. Classify the document as
email, letter, contract, or filing. Assess sentiment as hostile, neutral, or
professional. Rate legal significance as critical, high, medium, or low. Flag
threatening language, deadlines, PII, confidential content, time-sensitive matters,
retaliation indicators, harassment, or discrimination. Be conservative with
confidence scores; only use values above 0.9 for extremely clear cases.`

	emailSystemPrompt = `You are a forensic email analyzer for legal evidence processing.
For each participant, assess organizational authority level, message count, a
deference score (0=dominant, 1=deferential), and dominant topics. Assess the
overall communication pattern as professional, escalating, hostile, or
retaliatory. Track sentiment progression across the thread. Detect escalation
events. Rate legal significance and flag risks. Reconstruct a chronological
timeline of key events. Be conservative with confidence scores.`

	imageSystemPrompt = `You are assisting a legal evidence analyst. Examine the image and provide
factual, non-speculative observations: the visual scene and objects with
normalized bounding boxes, any visible text (OCR), and potential evidential
value. Flag quality issues, suspected tampering, ambiguous OCR, NSFW content,
or visible PII. Be precise and objective.`

	entityResolutionSystemPrompt = `You resolve whether two candidate entity name variants extracted from
separate evidence items denote the same real-world person or organization.
Weigh supporting and conflicting signals (shared email domain, organization,
date proximity, name-prefix agreement, a distinct surname) and report your
reasoning.`

	summarizeSystemPrompt = `You are drafting an executive summary of a legal evidence case for tribunal
proceedings, grounded strictly in the supplied correlation data: entities,
timeline, and legal patterns. Do not speculate beyond the evidence provided.`
)

func (c *OpenAIClient) AnalyzeDocument(ctx context.Context, req DocumentRequest) (*schema.DocumentAnalysis, CallMeta, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = documentSystemPrompt
	}
	var out schema.DocumentAnalysis
	meta, err := c.call(ctx, "document", prompt, req.Text, &out)
	if err != nil {
		return nil, CallMeta{}, err
	}
	return &out, meta, nil
}

func (c *OpenAIClient) AnalyzeEmail(ctx context.Context, req EmailRequest) (*schema.EmailAnalysis, CallMeta, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = emailSystemPrompt
	}
	var out schema.EmailAnalysis
	meta, err := c.call(ctx, "email", prompt, req.ThreadText, &out)
	if err != nil {
		return nil, CallMeta{}, err
	}
	return &out, meta, nil
}

func (c *OpenAIClient) AnalyzeImage(ctx context.Context, req ImageRequest) (*schema.ImageAnalysis, CallMeta, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = imageSystemPrompt
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", req.MIMEType, base64.StdEncoding.EncodeToString(req.Bytes))
	var out schema.ImageAnalysis
	meta, err := c.call(ctx, "image", prompt, dataURL, &out)
	if err != nil {
		return nil, CallMeta{}, err
	}
	normalized := make([]schema.RiskFlag, 0, len(out.RiskFlags))
	for _, f := range out.RiskFlags {
		if norm, ok := schema.NormalizeImageRiskFlag(string(f)); ok {
			normalized = append(normalized, norm)
		} else {
			normalized = append(normalized, f)
		}
	}
	out.RiskFlags = normalized
	return &out, meta, nil
}

func (c *OpenAIClient) ResolveEntityPair(ctx context.Context, req EntityPairRequest) (*schema.EntityMatchDecision, CallMeta, error) {
	user := fmt.Sprintf("Variant A: %q (contexts: %v)\nVariant B: %q (contexts: %v)",
		req.VariantA, req.ContextsA, req.VariantB, req.ContextsB)
	var out schema.EntityMatchDecision
	meta, err := c.callWithParams(ctx, entityMatchSchema, entityResolutionSystemPrompt, user, &out)
	if err != nil {
		return nil, CallMeta{}, err
	}
	return &out, meta, nil
}

func (c *OpenAIClient) SummarizeCase(ctx context.Context, req SummarizeRequest) (*schema.ExecutiveSummary, CallMeta, error) {
	var out schema.ExecutiveSummary
	meta, err := c.callWithParams(ctx, executiveSummarySchema, summarizeSystemPrompt, req.CorrelationInput, &out)
	if err != nil {
		return nil, CallMeta{}, err
	}
	return &out, meta, nil
}

func (c *OpenAIClient) DetectPatterns(ctx context.Context, req PatternsRequest) (*schema.LegalPatterns, CallMeta, error) {
	var out schema.LegalPatterns
	meta, err := c.callWithParams(ctx, legalPatternsSchema, detectPatternsSystemPrompt, req.CorrelationInput, &out)
	if err != nil {
		return nil, CallMeta{}, err
	}
	return &out, meta, nil
}
