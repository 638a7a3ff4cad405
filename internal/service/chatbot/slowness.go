package chatbot

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ashwinyue/chat2sql/internal/service/dbx"
)

// NoSlownessMessage 区间内没有慢事务时的回答
const NoSlownessMessage = "No slowness was detected at this time."

// consolePath 实时事务看板的路径
const consolePath = "/applicare/console/home.do#/dashboard/userExperience/realTimeTransactions"

var intervalPattern = regexp.MustCompile(`^\d+ (SECOND|MINUTE|HOUR|DAY|WEEK|MONTH)$`)

// slowTransactionQuery 固定的慢事务查询，只有时间区间来自用户输入，
// 且区间必须通过 intervalPattern 校验。时间截断表达式按方言生成。
func slowTransactionQuery(dialect, interval string) string {
	if !intervalPattern.MatchString(interval) {
		interval = DefaultInterval
	}
	return fmt.Sprintf(`SELECT t.trace, t.client_id, s.name AS server_name, t.name, t.started, t.duration
FROM transaction t
JOIN server s ON t.server_id = s.id
WHERE t.started >= %s
ORDER BY t.duration DESC
LIMIT 5`, intervalCutoff(dialect, interval))
}

// intervalCutoff 生成"当前时间减去区间"的方言表达式。
// PostgreSQL 要求区间加引号，SQLite 没有 INTERVAL，用 DATETIME 修饰符。
func intervalCutoff(dialect, interval string) string {
	switch strings.ToLower(dialect) {
	case "postgresql", "postgres":
		return fmt.Sprintf("NOW() - INTERVAL '%s'", interval)
	case "sqlite":
		return fmt.Sprintf("DATETIME('now', '-%s')", sqliteModifier(interval))
	default:
		return fmt.Sprintf("NOW() - INTERVAL %s", interval)
	}
}

// sqliteModifier 把 "5 MINUTE" 转成 SQLite 的 "5 minutes" 修饰符，
// SQLite 不认 week，折算成天数
func sqliteModifier(interval string) string {
	parts := strings.Fields(interval)
	n, unit := parts[0], strings.ToLower(parts[1])
	if unit == "week" {
		var weeks int
		fmt.Sscanf(n, "%d", &weeks)
		return fmt.Sprintf("%d days", weeks*7)
	}
	return fmt.Sprintf("%s %ss", n, unit)
}

// formatSlowTransactions 渲染慢事务明细。trace 列是内部数据不展示，
// duration 以毫秒展示（存储单位是纳秒）。
func formatSlowTransactions(result *dbx.Result) string {
	if result == nil || len(result.Rows) == 0 {
		return NoSlownessMessage
	}

	lines := []string{"These are the slow transaction details:\n"}
	for _, row := range result.Rows {
		for _, col := range result.Columns {
			if col == "duration" || col == "trace" {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %s", col, formatSlownessValue(col, row[col])))
		}
		if d, ok := toFloat(row["duration"]); ok {
			lines = append(lines, fmt.Sprintf("duration (ms): %v", d/1_000_000))
		}
	}
	return strings.Join(lines, "\n")
}

// consoleLink 慢事务回答末尾的看板入口
func consoleLink(baseURL string) string {
	return fmt.Sprintf("For more details, please visit this link.\n%s%s",
		strings.TrimSuffix(baseURL, "/"), consolePath)
}

// firstTrace 取最慢事务的调用树原文
func firstTrace(result *dbx.Result) string {
	if result == nil || len(result.Rows) == 0 {
		return ""
	}
	if v, ok := result.Rows[0]["trace"].(string); ok {
		return v
	}
	return ""
}

func formatSlownessValue(col string, v interface{}) string {
	if v == nil {
		return "N/A"
	}
	if col == "started" {
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02 15:04:05")
		}
	}
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(val, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
