package chatbot

import (
	"strings"
	"testing"
	"time"

	"github.com/ashwinyue/chat2sql/internal/model"
	"github.com/ashwinyue/chat2sql/internal/service/dbx"
)

// ========== 对话记录渲染测试 ==========

func TestMemoryView(t *testing.T) {
	history := []*model.Message{
		{Query: "how many servers", System: "There are 3 servers."},
		{Query: "how many are down", System: "One server is down."},
	}

	got := MemoryView(history, "which one?")
	want := "role: user\ncontent: \"how many servers\"\n\n" +
		"role: assistant\ncontent: \"There are 3 servers.\"\n\n" +
		"role: user\ncontent: \"how many are down\"\n\n" +
		"role: assistant\ncontent: \"One server is down.\"\n\n" +
		"role: user\ncontent: \"which one?\""
	if got != want {
		t.Errorf("MemoryView() =\n%s\nwant\n%s", got, want)
	}
}

func TestMemoryViewEmptyHistory(t *testing.T) {
	got := MemoryView(nil, "first question")
	if got != "role: user\ncontent: \"first question\"" {
		t.Errorf("MemoryView() = %q", got)
	}
}

// ========== 慢事务渲染测试 ==========

func TestSlowTransactionQuery(t *testing.T) {
	q := slowTransactionQuery("MySQL", "2 HOUR")
	if !strings.Contains(q, "NOW() - INTERVAL 2 HOUR") {
		t.Errorf("missing interval in query: %s", q)
	}

	// 非法区间回落到默认值，不能拼进查询
	q = slowTransactionQuery("MySQL", "5 MINUTE; DROP TABLE server")
	if strings.Contains(q, "DROP TABLE") {
		t.Fatalf("interval injection reached the query: %s", q)
	}
	if !strings.Contains(q, "INTERVAL "+DefaultInterval) {
		t.Errorf("expected default interval, got: %s", q)
	}
}

func TestSlowTransactionQueryDialects(t *testing.T) {
	tests := []struct {
		name     string
		dialect  string
		interval string
		want     string
	}{
		{
			name:     "mysql keeps bare interval",
			dialect:  "MySQL",
			interval: "5 MINUTE",
			want:     "NOW() - INTERVAL 5 MINUTE",
		},
		{
			name:     "postgres quotes the interval",
			dialect:  "PostgreSQL",
			interval: "5 MINUTE",
			want:     "NOW() - INTERVAL '5 MINUTE'",
		},
		{
			name:     "sqlite uses datetime modifier",
			dialect:  "SQLite",
			interval: "2 HOUR",
			want:     "DATETIME('now', '-2 hours')",
		},
		{
			name:     "sqlite week becomes days",
			dialect:  "SQLite",
			interval: "1 WEEK",
			want:     "DATETIME('now', '-7 days')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := slowTransactionQuery(tt.dialect, tt.interval)
			if !strings.Contains(q, tt.want) {
				t.Errorf("slowTransactionQuery(%s, %s) = %s, want cutoff %q",
					tt.dialect, tt.interval, q, tt.want)
			}
		})
	}
}

func TestFormatSlowTransactions(t *testing.T) {
	started := time.Date(2026, 2, 3, 14, 30, 0, 0, time.UTC)
	result := &dbx.Result{
		Columns: []string{"trace", "client_id", "server_name", "name", "started", "duration"},
		Rows: []map[string]interface{}{
			{
				"trace":       `{"contexts": []}`,
				"client_id":   "c-9",
				"server_name": "web-01",
				"name":        "/shop/checkout",
				"started":     started,
				"duration":    int64(2_500_000_000),
			},
		},
	}

	got := formatSlowTransactions(result)
	for _, want := range []string{
		"These are the slow transaction details:",
		"client_id: c-9",
		"server_name: web-01",
		"name: /shop/checkout",
		"started: 2026-02-03 14:30:00",
		"duration (ms): 2500",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("formatSlowTransactions() missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "contexts") {
		t.Error("trace column leaked into the display")
	}
	if strings.Contains(got, "duration: 2500000000") {
		t.Error("raw nanosecond duration leaked into the display")
	}
}

func TestFormatSlowTransactionsEmpty(t *testing.T) {
	if got := formatSlowTransactions(&dbx.Result{Columns: []string{"name"}}); got != NoSlownessMessage {
		t.Errorf("formatSlowTransactions(empty) = %q", got)
	}
	if got := formatSlowTransactions(nil); got != NoSlownessMessage {
		t.Errorf("formatSlowTransactions(nil) = %q", got)
	}
}

func TestConsoleLink(t *testing.T) {
	got := consoleLink("https://apm.example.com/")
	if !strings.Contains(got, "https://apm.example.com/applicare/console/home.do#/dashboard/userExperience/realTimeTransactions") {
		t.Errorf("consoleLink() = %q", got)
	}
}
