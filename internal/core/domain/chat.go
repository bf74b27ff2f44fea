package domain

import "strings"

// ChatRole is the author of a chat message.
type ChatRole string

// Chat roles used by the completion prompt.
const (
	ChatRoleSystem ChatRole = "system"
	ChatRoleUser   ChatRole = "user"
)

// ChatMessage is one unit of a completion prompt.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// Answer is the result of one pipeline run.
type Answer struct {
	// Text is the completion text returned to the caller.
	Text string `json:"text"`

	// RunID identifies the pipeline run that produced the answer.
	RunID string `json:"-"`

	// ItemID is the drive item the answer was grounded on.
	ItemID string `json:"-"`

	// Sources lists the provenance of the grounding passages, in relevance order.
	Sources []ChunkSource `json:"-"`
}

// GroundingPreamble opens the system message of every completion.
const GroundingPreamble = "You are a helpful assistant. Use ONLY the following context to answer.\n\n"

// ContextSeparator joins passages inside the system message.
const ContextSeparator = "\n---\n"

// GroundedPrompt builds the two-message prompt for question: a system
// message carrying the preamble and the passages in retrieval order, and a
// user message holding the question verbatim.
func GroundedPrompt(chunks []Chunk, question string) []ChatMessage {
	return []ChatMessage{
		{Role: ChatRoleSystem, Content: GroundingPreamble + strings.Join(ChunkContents(chunks), ContextSeparator)},
		{Role: ChatRoleUser, Content: question},
	}
}
