package agent

import (
	"slices"

	"github.com/skosovsky/finagent/llm"
)

// Conversation is the message history shared across the turns of one session.
// It is not safe for concurrent use; run one Chat at a time per Conversation.
type Conversation struct {
	messages []llm.Message
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Messages returns a copy of the history in order.
func (c *Conversation) Messages() []llm.Message {
	return slices.Clone(c.messages)
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }

// Reset drops the history.
func (c *Conversation) Reset() { c.messages = nil }

func (c *Conversation) append(msgs ...llm.Message) {
	c.messages = append(c.messages, msgs...)
}
