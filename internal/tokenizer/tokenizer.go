package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// encodingName 与 OpenAI GPT 系列模型对齐的编码
const encodingName = "cl100k_base"

// Tokenizer 按 token 数截断文本，保证注入提示词的内容不超预算
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New 创建 Tokenizer
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", encodingName, err)
	}
	return &Tokenizer{encoding: enc}, nil
}

// Count 统计文本的 token 数
func (t *Tokenizer) Count(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

// Truncate 将文本截断到不超过 maxTokens 个 token。
// 文本本身不超预算时原样返回，截断是幂等的。
func (t *Tokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.encoding.Decode(tokens[:maxTokens])
}
