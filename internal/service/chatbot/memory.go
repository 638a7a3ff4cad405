package chatbot

import (
	"fmt"
	"strings"

	"github.com/ashwinyue/chat2sql/internal/model"
)

// MemoryView 将会话历史和最新问题渲染为提示词中的对话记录。
// 历史按时间正序，每轮问答展开为 user/assistant 两段，
// 最新问题追加在末尾。
func MemoryView(history []*model.Message, question string) string {
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "role: user\ncontent: \"%s\"\n\n", m.Query)
		fmt.Fprintf(&b, "role: assistant\ncontent: \"%s\"\n\n", m.System)
	}
	fmt.Fprintf(&b, "role: user\ncontent: \"%s\"\n", question)
	return strings.TrimSpace(b.String())
}
