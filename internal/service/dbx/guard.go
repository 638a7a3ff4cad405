package dbx

import (
	"fmt"
	"regexp"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// GuardError 查询未通过只读校验。与执行错误一样会触发修复重试。
type GuardError struct {
	Query  string
	Reason string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("query rejected: %s", e.Reason)
}

var writeKeywords = regexp.MustCompile(
	`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|CREATE|TRUNCATE|GRANT|REVOKE|REPLACE|MERGE|CALL|EXEC|ATTACH|DETACH|PRAGMA)\b`)

// keywordGuard 基于关键字的只读校验，用于没有官方解析器的引擎
func keywordGuard(query string) error {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if trimmed == "" {
		return &GuardError{Query: query, Reason: "empty query"}
	}
	if strings.Contains(trimmed, ";") {
		return &GuardError{Query: query, Reason: "multiple statements are not allowed"}
	}
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return &GuardError{Query: query, Reason: "only SELECT queries are allowed"}
	}
	if m := writeKeywords.FindString(trimmed); m != "" {
		return &GuardError{Query: query, Reason: fmt.Sprintf("statement keyword %s is not allowed", strings.ToUpper(m))}
	}
	return nil
}

// parseGuard 基于 PostgreSQL 官方解析器的只读校验：
// 单条语句、仅 SELECT、仅访问白名单内的表。
func parseGuard(query string, allowedTables []string) error {
	result, err := pg_query.Parse(query)
	if err != nil {
		return &GuardError{Query: query, Reason: fmt.Sprintf("parse error: %v", err)}
	}
	if len(result.Stmts) == 0 {
		return &GuardError{Query: query, Reason: "empty query"}
	}
	if len(result.Stmts) > 1 {
		return &GuardError{Query: query, Reason: "multiple statements are not allowed"}
	}

	stmt := result.Stmts[0].Stmt
	selectStmt := stmt.GetSelectStmt()
	if selectStmt == nil {
		return &GuardError{Query: query, Reason: "only SELECT queries are allowed"}
	}

	allowed := map[string]bool{}
	for _, t := range allowedTables {
		allowed[strings.ToLower(t)] = true
	}

	tables := map[string]bool{}
	collectTables(selectStmt, tables)

	if len(allowed) > 0 {
		for t := range tables {
			if !allowed[t] {
				return &GuardError{Query: query, Reason: fmt.Sprintf("table %s is not allowed", t)}
			}
		}
	}
	return nil
}

// collectTables 递归收集 SELECT 语句引用的表名，
// 覆盖 JOIN、子查询、CTE 与复合查询。
func collectTables(stmt *pg_query.SelectStmt, tables map[string]bool) {
	if stmt == nil {
		return
	}
	if stmt.WithClause != nil {
		for _, cte := range stmt.WithClause.Ctes {
			if c := cte.GetCommonTableExpr(); c != nil {
				if sub := c.Ctequery.GetSelectStmt(); sub != nil {
					collectTables(sub, tables)
				}
			}
		}
	}
	collectTables(stmt.Larg, tables)
	collectTables(stmt.Rarg, tables)
	for _, item := range stmt.FromClause {
		collectFromItem(item, tables)
	}
	if stmt.WhereClause != nil {
		collectNode(stmt.WhereClause, tables)
	}
}

func collectFromItem(node *pg_query.Node, tables map[string]bool) {
	if node == nil {
		return
	}
	if rv := node.GetRangeVar(); rv != nil {
		tables[strings.ToLower(rv.Relname)] = true
		return
	}
	if je := node.GetJoinExpr(); je != nil {
		collectFromItem(je.Larg, tables)
		collectFromItem(je.Rarg, tables)
		if je.Quals != nil {
			collectNode(je.Quals, tables)
		}
		return
	}
	if rs := node.GetRangeSubselect(); rs != nil {
		if sub := rs.Subquery.GetSelectStmt(); sub != nil {
			collectTables(sub, tables)
		}
	}
}

func collectNode(node *pg_query.Node, tables map[string]bool) {
	if node == nil {
		return
	}
	if sl := node.GetSubLink(); sl != nil {
		if sub := sl.Subselect.GetSelectStmt(); sub != nil {
			collectTables(sub, tables)
		}
		return
	}
	if ae := node.GetAExpr(); ae != nil {
		collectNode(ae.Lexpr, tables)
		collectNode(ae.Rexpr, tables)
		return
	}
	if be := node.GetBoolExpr(); be != nil {
		for _, arg := range be.Args {
			collectNode(arg, tables)
		}
	}
}
