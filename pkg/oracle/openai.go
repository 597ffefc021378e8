package oracle

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/evidence-toolkit/core/pkg/schema"
)

// OpenAIClient is the default Client implementation: a structured-output
// "responses"-style wrapper over an OpenAI-compatible chat completions
// endpoint, forcing a single tool call whose arguments are the typed
// output.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	revision   string
	httpClient *http.Client
}

// NewOpenAIClient builds a client targeting baseURL (an OpenAI-compatible
// "/chat/completions" endpoint) using apiKey for bearer auth. revision
// identifies the model snapshot for AnalysisRecord.Model.Revision.
func NewOpenAIClient(baseURL, apiKey, model, revision string) *OpenAIClient {
	return &OpenAIClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		revision:   revision,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type toolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type forcedToolChoice struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools"`
	ToolChoice  forcedToolChoice `json:"tool_choice"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			ToolCalls []struct {
				Function struct {
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// call sends one structured-output request and decodes the single forced
// tool call's arguments into out. schemaKind names the embedded JSON
// Schema (pkg/schema.RawSchema) the model must conform to.
func (c *OpenAIClient) call(ctx context.Context, schemaKind, systemPrompt, userContent string, out any) (CallMeta, error) {
	rawSchema, err := schema.RawSchema(schemaKind)
	if err != nil {
		return CallMeta{}, fmt.Errorf("oracle: %w", err)
	}
	var params map[string]any
	if err := json.Unmarshal(rawSchema, &params); err != nil {
		return CallMeta{}, fmt.Errorf("oracle: decode schema %s: %w", schemaKind, err)
	}
	return c.callWithParams(ctx, params, systemPrompt, userContent, out)
}

// callWithParams is like call but takes an already-built JSON Schema
// parameters map, for oracle contracts that are not persisted wire bundles
// (resolve_entity_pair, summarize_case).
func (c *OpenAIClient) callWithParams(ctx context.Context, params map[string]any, systemPrompt, userContent string, out any) (CallMeta, error) {
	promptHash := sha256Hex(systemPrompt + "\x00" + userContent)

	const toolName = "emit_structured_output"
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Tools: []chatTool{{
			Type: "function",
			Function: toolFunction{
				Name:       toolName,
				Parameters: params,
			},
		}},
		Temperature: 0,
	}
	req.ToolChoice.Type = "function"
	req.ToolChoice.Function.Name = toolName

	body, err := json.Marshal(req)
	if err != nil {
		return CallMeta{}, fmt.Errorf("oracle: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return CallMeta{}, fmt.Errorf("oracle: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return CallMeta{}, err // transient network error: retryable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return CallMeta{}, fmt.Errorf("oracle: transient status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return CallMeta{}, &OracleIncomplete{Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return CallMeta{}, fmt.Errorf("oracle: decode response: %w", err)
	}
	if len(cr.Choices) == 0 || len(cr.Choices[0].Message.ToolCalls) == 0 {
		return CallMeta{}, &OracleRefusal{Reason: "no structured tool call in response"}
	}

	args := cr.Choices[0].Message.ToolCalls[0].Function.Arguments
	if err := json.Unmarshal([]byte(args), out); err != nil {
		return CallMeta{}, &OracleIncomplete{Detail: fmt.Sprintf("arguments do not match schema: %v", err)}
	}

	meta := CallMeta{
		Model:      schema.AnalysisModelInfo{Name: c.model, Revision: c.revision},
		PromptHash: promptHash,
		TokensIn:   cr.Usage.PromptTokens,
		TokensOut:  cr.Usage.CompletionTokens,
	}
	return meta, nil
}

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
