package corroborate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ballotwatch/ballotwatch/internal/model"
	"github.com/ballotwatch/ballotwatch/internal/util"
)

// Confidence adjustments applied to the static reliability prior.
const (
	citationBonus     = 5  // per citation, counted up to maxCitedBonus
	maxCitedBonus     = 2  // citations that earn a bonus
	noCitationPenalty = 15 // applied when the response cites nothing
	ambiguousScore    = 30 // flat score for unclassifiable responses
)

// AIClient is the Layer-2 corroboration client. It asks an AI-backed
// search model whether the claimed value matches what public sources
// say, then classifies the unstructured answer.
type AIClient struct {
	client *openai.Client
	cfg    model.AIConfig
	now    func() time.Time
}

// NewAIClient creates the AI corroboration client. A missing API key is
// an error; callers treat it as "layer disabled" rather than fatal.
func NewAIClient(cfg model.AIConfig, httpCfg model.HTTPConfig) (*AIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI corroboration requires an API key")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
		},
	}

	return &AIClient{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		now:    time.Now,
	}, nil
}

// Layer identifies this client as Layer 2.
func (c *AIClient) Layer() model.Layer { return model.LayerAI }

// SourceID names the source for provenance records.
func (c *AIClient) SourceID() string { return "ai:" + c.modelName() }

// Corroborate asks the model about the claim and classifies its answer.
// Transport failures and timeouts return an error so the orchestrator
// can record the layer as not executed.
func (c *AIClient) Corroborate(ctx context.Context, claim model.Claim) (model.LayerVerdict, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName(),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You verify claimed election facts against public knowledge. Answer only with the requested JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildCorroborationPrompt(claim),
			},
		},
		MaxTokens:   c.maxTokens(),
		Temperature: 0.1,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return model.LayerVerdict{}, fmt.Errorf("ai corroboration: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.LayerVerdict{}, fmt.Errorf("ai corroboration: empty response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	return c.verdictFromResponse(claim, content), nil
}

// buildCorroborationPrompt asks for a strict JSON shape so the response
// can be parsed at the boundary instead of trusted by shape.
func buildCorroborationPrompt(claim model.Claim) string {
	return fmt.Sprintf(`A data source claims the following fact:

  entity:       %s %s
  jurisdiction: %s
  field:        %s
  claimed:      %q

Does public information confirm or contradict this claimed value?
Respond with JSON only:
{"verdict": "confirmed" | "contradicted" | "unknown", "citations": ["url", ...], "as_of": "YYYY-MM-DD", "explanation": "..."}

List citation URLs only for sources you are certain exist. Use "unknown"
when you cannot tell.`, claim.EntityType, claim.EntityID, claim.Jurisdiction, claim.Field, claim.Value)
}

// verdictFromResponse converts the model's untyped answer into a layer
// verdict. JSON is preferred; free text falls back to phrase heuristics.
func (c *AIClient) verdictFromResponse(claim model.Claim, content string) model.LayerVerdict {
	var classification Classification
	var citations []string
	var observedAt time.Time

	payload, ok := decodeLoose(content)
	if ok {
		verdict, _ := extractString(payload, "verdict")
		switch strings.ToLower(verdict) {
		case "confirmed":
			classification = Classification{Outcome: OutcomeConfirmed, Confirming: true}
		case "contradicted":
			classification = Classification{Outcome: OutcomeContradicted, Contradicting: true}
		default:
			classification = Classification{Outcome: OutcomeAmbiguous}
		}

		citations = extractStringSlice(payload, "citations")
		if asOf, ok := extractString(payload, "as_of"); ok {
			if t, err := time.Parse("2006-01-02", asOf); err == nil {
				observedAt = t
			}
		}
	} else {
		classification = ClassifyText(content)
		citations = extractURLs(content)
	}

	verdict := model.LayerVerdict{
		Layer:          model.LayerAI,
		SourcesChecked: append([]string{c.SourceID()}, citations...),
	}

	switch classification.Outcome {
	case OutcomeConfirmed:
		verdict.IsValid = true
		verdict.Confidence = c.scoreWithCitations(citations)
		if len(citations) == 0 {
			verdict.Warnings = append(verdict.Warnings, "ai confirmation cites no sources")
		}
	case OutcomeContradicted:
		verdict.IsValid = false
		verdict.Confidence = c.scoreWithCitations(citations)
		verdict.Errors = append(verdict.Errors,
			fmt.Sprintf("ai corroboration contradicts claimed %s %q", claim.Field, claim.Value))
	default:
		verdict.IsValid = true
		verdict.Confidence = ambiguousScore
		verdict.Warnings = append(verdict.Warnings, "ai response could not be confidently classified")
		if classification.Confirming && classification.Contradicting {
			verdict.Warnings = append(verdict.Warnings, "ai response contains both confirming and contradicting language")
		}
	}

	if decay := stalenessDecay(observedAt, c.now()); decay > 0 {
		verdict.Confidence = clampConfidence(verdict.Confidence - decay)
		verdict.Warnings = append(verdict.Warnings,
			fmt.Sprintf("ai evidence dated %s; confidence reduced by %d", observedAt.Format("2006-01-02"), decay))
	}

	return verdict
}

// scoreWithCitations starts from the reliability prior, rewards
// citations, and biases toward lower confidence when none are present.
func (c *AIClient) scoreWithCitations(citations []string) int {
	prior := c.cfg.Prior
	if prior == 0 {
		prior = 75
	}

	if len(citations) == 0 {
		return clampConfidence(prior - noCitationPenalty)
	}

	cited := len(citations)
	if cited > maxCitedBonus {
		cited = maxCitedBonus
	}
	return clampConfidence(prior + cited*citationBonus)
}

func (c *AIClient) modelName() string {
	if c.cfg.Model != "" {
		return c.cfg.Model
	}
	return openai.GPT4oMini
}

func (c *AIClient) maxTokens() int {
	if c.cfg.MaxTokens > 0 {
		return c.cfg.MaxTokens
	}
	return 500
}
