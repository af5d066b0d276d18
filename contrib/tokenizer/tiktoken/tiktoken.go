package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"
	"github.com/sweetpotato0/mcpx-agents/message"
)

// perMessageOverhead approximates the role and separator tokens chat models
// add around every message.
const perMessageOverhead = 4

type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer resolves an encoding by model name ("gpt-4o") or by
// encoding name ("cl100k_base").
func NewTiktokenTokenizer(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		// try by name
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tokenizer{enc: enc}, nil
}

func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	return len(t.Encode(text))
}

// CountMessage estimates the tokens one chat message occupies in a prompt,
// including tool call names and arguments.
func (t *Tokenizer) CountMessage(msg *message.Message) int {
	if msg == nil {
		return 0
	}
	n := perMessageOverhead + t.Count(msg.Text())
	for _, call := range msg.ToolCalls {
		n += t.Count(call.Name) + t.Count(call.Arguments)
	}
	return n
}

// DecodeIds turns token ids back into text.
func (t *Tokenizer) DecodeIds(ids []int) string {
	return t.enc.Decode(ids)
}
