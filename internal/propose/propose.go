// Package propose turns a dream analysis prompt into proposed tactical
// learnings by calling the Anthropic Messages API. This is the external
// collaborator step: the engine composes the prompt and persists approved
// results, but never calls a model itself. Proposals are always saved as
// pending; approval stays a separate, explicit user action.
package propose

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

const proposalSystemPrompt = "You are the dream-phase analyzer of an autonomous agent. " +
	"Follow the analysis instructions inside the user message exactly. " +
	"Respond with ONLY a JSON array of at most 3 objects, each with the string fields " +
	`"title", "content" (50 words or fewer), and "rationale". ` +
	"Respond with [] if no learning is warranted."

// Proposal is one suggested tactical learning.
type Proposal struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Rationale string `json:"rationale"`
}

// Learnings sends the sanitized analysis prompt to the given Anthropic
// model and parses the proposed learnings from its reply.
func Learnings(ctx context.Context, analysisPrompt, model string) ([]Proposal, error) {
	client := anthropic.NewClient()

	msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: proposalSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(analysisPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return parseProposals(block.Text)
		}
	}
	return nil, fmt.Errorf("no text block in response")
}

// parseProposals extracts the JSON array from a model reply, tolerating
// prose or code fences around it.
func parseProposals(text string) ([]Proposal, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in reply")
	}

	var proposals []Proposal
	if err := json.Unmarshal([]byte(text[start:end+1]), &proposals); err != nil {
		return nil, fmt.Errorf("parse proposals: %w", err)
	}
	if len(proposals) > 3 {
		proposals = proposals[:3]
	}
	return proposals, nil
}
