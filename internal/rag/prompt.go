package rag

import (
	"fmt"
	"strings"

	"github.com/kotaehq/kotae/internal/models"
)

// NotFoundAnswer is the exact phrase the model is instructed to return
// when the context does not contain the answer. Confidence scoring
// checks for it verbatim.
const NotFoundAnswer = "I couldn't find this information in the knowledge base."

const systemPromptTemplate = `You are the official AI assistant for this organization's website.
Answer ONLY using the context chunks below. Be concise and professional.
If the answer is not in the context, respond with exactly: "%s"
Never fabricate URLs. Only use URLs from the context.

CONTEXT:
%s`

// BuildContext renders retrieved chunks as numbered, attributed blocks:
//
//	[1] SECTION TITLE | https://example.com
//	chunk text
//
// separated by "---" dividers.
func BuildContext(hits []models.RetrievalHit) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("[%d] %s | %s\n%s", i+1, h.Meta.SectionTitle, h.Meta.URL, h.Meta.Text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// BuildSystemPrompt assembles the grounded system prompt for the chat
// model from retrieved chunks.
func BuildSystemPrompt(hits []models.RetrievalHit) string {
	return fmt.Sprintf(systemPromptTemplate, NotFoundAnswer, BuildContext(hits))
}
