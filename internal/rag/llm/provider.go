package llm

import "context"

// Provider generates a grounded answer. The system prompt carries the
// grounding rules, evidence is the pre-assembled source block, and question
// is the user's verbatim query.
type Provider interface {
	Complete(ctx context.Context, systemPrompt string, evidence string, question string) (string, error)
}
