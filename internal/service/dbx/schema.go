package dbx

import (
	"context"
	"fmt"
	"strings"
)

// DescribeSchema 为可见表生成提示词用的结构描述：
// 每张表一段建表语句，后附采样行的注释块，段落之间空行分隔。
func (t *Target) DescribeSchema(ctx context.Context, sampleRows int) (string, error) {
	if len(t.tables) == 0 {
		return "", fmt.Errorf("no tables configured for this environment")
	}

	var sections []string
	for _, table := range t.tables {
		ddl, err := t.engine.TableDDL(ctx, t.db, table)
		if err != nil {
			return "", err
		}
		section := ddl
		if sampleRows > 0 {
			sample, err := t.sampleTable(ctx, table, sampleRows)
			if err != nil {
				return "", err
			}
			section += "\n" + sample
		}
		sections = append(sections, section)
	}
	return strings.Join(sections, "\n\n"), nil
}

// sampleTable 采样表中前几行，渲染为 SQL 注释块
func (t *Target) sampleTable(ctx context.Context, table string, limit int) (string, error) {
	rows, err := t.db.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, limit))
	if err != nil {
		return "", fmt.Errorf("sample table %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("sample table %s: %w", table, err)
	}

	var b strings.Builder
	b.WriteString("/*\n")
	fmt.Fprintf(&b, "%d rows from %s table:\n", limit, table)
	b.WriteString(strings.Join(columns, " | "))
	b.WriteString("\n")

	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return "", fmt.Errorf("sample table %s: %w", table, err)
		}
		cells := make([]string, len(columns))
		for i, v := range values {
			if bs, ok := v.([]byte); ok {
				cells[i] = string(bs)
			} else {
				cells[i] = formatValue(v)
			}
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("sample table %s: %w", table, err)
	}
	b.WriteString("*/")
	return b.String(), nil
}
