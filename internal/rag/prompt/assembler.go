package prompt

import (
	"strings"

	"github.com/mkolsari/streamrag/internal/domain/commonModels"
)

// CitationInstruction is always appended to the system prompt so answers can
// be traced back to the numbered context blocks.
const CitationInstruction = "When you use information from the documents, cite the matching block number in square brackets, like [1]."

const (
	documentsFraming    = "Relevant documents, numbered for citation:"
	conversationFraming = "Conversation:"
)

type Assembler struct {
	defaultSystemPrompt string
}

func NewAssembler(defaultSystemPrompt string) *Assembler {
	return &Assembler{defaultSystemPrompt: defaultSystemPrompt}
}

// Assemble builds the full generation prompt: system instructions with the
// citation suffix, the retrieved context under fixed framing, then the
// conversation rendered as role-tagged blocks ending in an open assistant
// block for the model to continue from.
func (a *Assembler) Assemble(message string, history []commonModels.ConversationTurn, systemPrompt string, retrieval commonModels.RetrievalResult) string {
	system := strings.TrimSpace(systemPrompt)
	if system == "" {
		system = a.defaultSystemPrompt
	}

	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\n")
	b.WriteString(CitationInstruction)
	b.WriteString("\n\n")
	b.WriteString(documentsFraming)
	b.WriteString("\n\n")
	b.WriteString(retrieval.ContextBlock)
	b.WriteString("\n\n")
	b.WriteString(conversationFraming)
	b.WriteString("\n\n")
	b.WriteString(renderTranscript(message, sanitizeHistory(history)))
	return b.String()
}

// sanitizeHistory trims each turn and drops the ones left empty, order kept.
func sanitizeHistory(history []commonModels.ConversationTurn) []commonModels.ConversationTurn {
	cleaned := make([]commonModels.ConversationTurn, 0, len(history))
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		cleaned = append(cleaned, commonModels.ConversationTurn{Role: turn.Role, Content: content})
	}
	return cleaned
}

func renderTranscript(message string, history []commonModels.ConversationTurn) string {
	var b strings.Builder
	for _, turn := range history {
		b.WriteString("<" + turn.Role + ">\n")
		b.WriteString(turn.Content)
		b.WriteString("\n</" + turn.Role + ">\n")
	}
	b.WriteString("<" + commonModels.RoleUser + ">\n")
	b.WriteString(message)
	b.WriteString("\n</" + commonModels.RoleUser + ">\n")
	// deliberately left open, the backend continues from here
	b.WriteString("<" + commonModels.RoleAssistant + ">\n")
	return b.String()
}
