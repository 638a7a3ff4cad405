package dbx

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ashwinyue/chat2sql/internal/model"
)

// ExecError 目标库执行错误，错误文本会传给修复提示词
type ExecError struct {
	Engine string
	Query  string
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s query failed: %v", e.Engine, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Result 查询结果
type Result struct {
	Columns []string
	Rows    []map[string]interface{}
}

// Target 一个已建连的用户目标数据库
type Target struct {
	engine Engine
	db     *sql.DB
	tables []string
}

// Open 按用户配置建连目标库
func Open(env *model.UserEnvironment) (*Target, error) {
	engine, err := ForName(env.Engine)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(engine.DriverName(), engine.DSN(env))
	if err != nil {
		return nil, fmt.Errorf("open %s target: %w", engine.Name(), err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Target{engine: engine, db: db, tables: tableList(env)}, nil
}

// Close 关闭连接
func (t *Target) Close() error {
	return t.db.Close()
}

// Dialect 提示词中使用的方言名称
func (t *Target) Dialect() string {
	return t.engine.Dialect()
}

// Tables 配置的可见表
func (t *Target) Tables() []string {
	return t.tables
}

// Query 校验并执行只读查询。守卫拒绝与执行失败都返回 *ExecError，
// 调用方统一走修复重试。
func (t *Target) Query(ctx context.Context, query string) (*Result, error) {
	if err := t.engine.Guard(query, t.tables); err != nil {
		return nil, &ExecError{Engine: t.engine.Name(), Query: query, Err: err}
	}

	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &ExecError{Engine: t.engine.Name(), Query: query, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &ExecError{Engine: t.engine.Name(), Query: query, Err: err}
	}

	result := &Result{Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, &ExecError{Engine: t.engine.Name(), Query: query, Err: err}
		}
		rowMap := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				rowMap[col] = string(b)
			} else {
				rowMap[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecError{Engine: t.engine.Name(), Query: query, Err: err}
	}
	return result, nil
}

// Format 将结果渲染为注入提示词的文本
func (r *Result) Format() string {
	if len(r.Rows) == 0 {
		return "no rows returned"
	}
	var b strings.Builder
	b.WriteString(strings.Join(r.Columns, " | "))
	b.WriteString("\n")
	for _, row := range r.Rows {
		cells := make([]string, len(r.Columns))
		for i, col := range r.Columns {
			cells[i] = formatValue(row[col])
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	return b.String()
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		if data, err := json.Marshal(val); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", val)
	}
}

func tableList(env *model.UserEnvironment) []string {
	if env.Tables == "" {
		return nil
	}
	parts := strings.Split(env.Tables, ",")
	tables := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			tables = append(tables, name)
		}
	}
	return tables
}
