// Package trace 分析慢事务的调用树，定位耗时最高的调用链
package trace

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// NoCausesMessage 无法解析调用树时的回退文案
const NoCausesMessage = "No causes of slowness were detected at this time."

// Span 调用树中的一个节点，Time 单位为纳秒
type Span struct {
	Name     string  `json:"name"`
	Time     int64   `json:"time"`
	Children []*Span `json:"children"`
}

// Trace 一次事务的完整调用记录，按上下文分组
type Trace struct {
	Contexts []*Span `json:"contexts"`
}

// Analyzer 慢事务根因分析器
type Analyzer struct{}

// NewAnalyzer 创建分析器
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze 解析调用树并输出根因描述。
// 每个上下文沿耗时最高的子节点下钻，最深的节点即根因。
// 输入无法解析时返回回退文案而不是错误。
func (a *Analyzer) Analyze(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return NoCausesMessage
	}

	var tr Trace
	if err := json.Unmarshal([]byte(raw), &tr); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(raw)
		if rerr != nil {
			return NoCausesMessage
		}
		if err := json.Unmarshal([]byte(repaired), &tr); err != nil {
			return NoCausesMessage
		}
	}
	if len(tr.Contexts) == 0 {
		return NoCausesMessage
	}

	var sections []string
	for _, ctx := range tr.Contexts {
		chain := hottestChain(ctx)
		if chain == nil {
			continue
		}
		sections = append(sections, formatChain(ctx.Name, chain))
	}
	if len(sections) == 0 {
		return NoCausesMessage
	}
	return strings.Join(sections, "\n\n")
}

// hottestChain 自顶向下取每层耗时最高的子节点
func hottestChain(root *Span) []*Span {
	if len(root.Children) == 0 {
		return nil
	}
	var chain []*Span
	node := root
	for len(node.Children) > 0 {
		hottest := node.Children[0]
		for _, child := range node.Children[1:] {
			if child.Time > hottest.Time {
				hottest = child
			}
		}
		chain = append(chain, hottest)
		node = hottest
	}
	return chain
}

func formatChain(context string, chain []*Span) string {
	parts := []string{fmt.Sprintf("Issue Transaction: %s", context)}
	for i, span := range chain {
		label := "Sub-method/SQL"
		if i == 0 {
			label = "Main method:"
		}
		parts = append(parts, fmt.Sprintf("%s\nname: %q, \nTime it took (ms): %.2f",
			label, span.Name, float64(span.Time)/1_000_000))
	}
	last := chain[len(chain)-1]
	parts = append(parts, fmt.Sprintf(
		"The root cause of the general delays mentioned above is:\nname: %q, \nTime it took (ms): %.2f",
		last.Name, float64(last.Time)/1_000_000))
	return strings.Join(parts, "\n\n")
}
