package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// 模板名称
const (
	GenerateSQL        = "generate_sql"
	RepairSQL          = "repair_sql"
	RegenerateSQL      = "regenerate_sql"
	Answer             = "answer"
	RegenerateAnswer   = "regenerate_answer"
	ClassifySlowness   = "classify_slowness"
	ClassifySuggestion = "classify_suggestion"
	ExtractInterval    = "extract_interval"
	Suggestions        = "suggestions"
)

var slotPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Registry 提示词模板注册表。模板通过 {slot} 占位符接收参数，
// 渲染时缺少任一占位符的值视为错误。
type Registry struct {
	templates map[string]string
}

// NewRegistry 创建内置模板的注册表
func NewRegistry() *Registry {
	return &Registry{templates: builtinTemplates()}
}

// Render 渲染模板，所有占位符都必须有对应的值
func (r *Registry) Render(name string, values map[string]string) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt template: %s", name)
	}

	var missing []string
	result := slotPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := values[key]
		if !ok {
			missing = append(missing, key)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt %s missing values for: %s", name, strings.Join(missing, ", "))
	}
	return result, nil
}

// Slots 返回模板声明的占位符名称
func (r *Registry) Slots(name string) ([]string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt template: %s", name)
	}
	seen := map[string]bool{}
	var slots []string
	for _, m := range slotPattern.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			slots = append(slots, m[1])
		}
	}
	return slots, nil
}

// Validate 校验所有内置模板均可解析且至少声明一个占位符。
// 启动时调用，模板被改坏能立即暴露。
func (r *Registry) Validate() error {
	for name := range r.templates {
		slots, err := r.Slots(name)
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			return fmt.Errorf("prompt %s declares no slots", name)
		}
	}
	return nil
}

func builtinTemplates() map[string]string {
	return map[string]string{
		GenerateSQL: `You are an expert {dialect} analyst. Given the database schema below, write a single syntactically correct {dialect} query that answers the user's question.

Schema:
{schema}

Conversation so far:
{memory}

Rules:
- Query only tables present in the schema.
- Unless the question specifies a number of results, limit the output to {top_k} rows.
- Return ONLY the SQL query, no explanation, no markdown fences.

Question: {question}`,

		RepairSQL: `The following {dialect} query failed to execute.

Question: {question}
Query: {query}
Error: {error}

Rewrite the query so it executes correctly and still answers the question. Return ONLY the corrected SQL query.`,

		RegenerateSQL: `The user was unsatisfied with a previous answer and asked to regenerate it.

Question: {question}
Previous query: {query}
User feedback: {feedback}

Write a different {dialect} query that better answers the question, taking the feedback into account. Return ONLY the SQL query.`,

		Answer: `You are a helpful monitoring assistant. Answer the user's question based on the query results below. Be concise and factual; do not invent data that is not in the results.

Conversation so far:
{memory}

Question: {question}
SQL query: {query}
Query results: {results}

Answer:`,

		RegenerateAnswer: `You are a helpful monitoring assistant. The user disliked a previous answer and asked for a new one. Produce an improved answer based on the query results, avoiding the shortcomings called out in the feedback.

Conversation so far:
{memory}

Question: {question}
SQL query: {query}
Query results: {results}
Previous answer: {previous_answer}
User feedback: {feedback}

Answer:`,

		ClassifySlowness: `Determine whether the user is asking about application slowness, slow transactions, or response-time problems in the monitored system.

Question: {question}

Reply with exactly one word: "true" or "false".`,

		ClassifySuggestion: `Determine whether the user is asking for suggestions or recommendations of questions to ask, rather than asking a question about the data itself.

Question: {question}

Reply with exactly one word: "true" or "false".`,

		ExtractInterval: `Extract the time interval mentioned in the question as a SQL interval expression, for example "5 MINUTE", "2 HOUR", "1 DAY". If no interval is mentioned, use "5 MINUTE".

Question: {question}

Reply with JSON only, in the form {"interval": "<value>"}.`,

		Suggestions: `You are a monitoring assistant for an application performance system. Based on the schema below, propose {count} short questions a user could ask about their monitored applications. Return them as a JSON array of strings.

Schema:
{schema}`,
	}
}
