// Package dbx 封装对用户目标数据库的访问：按引擎建连、执行只读查询、
// 生成表结构描述。服务自身的会话存储不经过这里。
package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ashwinyue/chat2sql/internal/model"
)

// Engine 一类数据库引擎的方言差异
type Engine interface {
	// Name 引擎标识，与 UserEnvironment.Engine 对应
	Name() string
	// Dialect 提示词中使用的方言名称
	Dialect() string
	// DriverName database/sql 驱动名
	DriverName() string
	// DSN 由用户配置构造连接串
	DSN(env *model.UserEnvironment) string
	// TableDDL 查询单张表的建表语句
	TableDDL(ctx context.Context, db *sql.DB, table string) (string, error)
	// Guard 校验查询是只读的且只访问允许的表
	Guard(query string, allowedTables []string) error
}

// ForName 按引擎名返回 Engine 实现
func ForName(name string) (Engine, error) {
	switch strings.ToLower(name) {
	case "mysql":
		return &mysqlEngine{name: "mysql", dialect: "MySQL"}, nil
	case "mariadb":
		return &mysqlEngine{name: "mariadb", dialect: "MariaDB"}, nil
	case "postgres", "postgresql":
		return &postgresEngine{}, nil
	case "sqlite", "sqlite3":
		return &sqliteEngine{}, nil
	default:
		return nil, fmt.Errorf("unsupported database engine: %s", name)
	}
}

// mysqlEngine 覆盖 MySQL 与 MariaDB，两者共享驱动与语法
type mysqlEngine struct {
	name    string
	dialect string
}

func (e *mysqlEngine) Name() string       { return e.name }
func (e *mysqlEngine) Dialect() string    { return e.dialect }
func (e *mysqlEngine) DriverName() string { return "mysql" }

func (e *mysqlEngine) DSN(env *model.UserEnvironment) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		env.Username, env.Password, env.Host, env.Port, env.Database)
}

func (e *mysqlEngine) TableDDL(ctx context.Context, db *sql.DB, table string) (string, error) {
	var name, ddl string
	row := db.QueryRowContext(ctx, fmt.Sprintf("SHOW CREATE TABLE `%s`", table))
	if err := row.Scan(&name, &ddl); err != nil {
		return "", fmt.Errorf("show create table %s: %w", table, err)
	}
	return ddl, nil
}

func (e *mysqlEngine) Guard(query string, allowedTables []string) error {
	return keywordGuard(query)
}

// postgresEngine PostgreSQL
type postgresEngine struct{}

func (e *postgresEngine) Name() string       { return "postgres" }
func (e *postgresEngine) Dialect() string    { return "PostgreSQL" }
func (e *postgresEngine) DriverName() string { return "postgres" }

func (e *postgresEngine) DSN(env *model.UserEnvironment) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		env.Host, env.Port, env.Username, env.Password, env.Database)
}

// TableDDL PostgreSQL 没有 SHOW CREATE TABLE，从 information_schema 重建
func (e *postgresEngine) TableDDL(ctx context.Context, db *sql.DB, table string) (string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return "", fmt.Errorf("describe table %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return "", fmt.Errorf("describe table %s: %w", table, err)
		}
		col := fmt.Sprintf("\t%s %s", name, dataType)
		if nullable == "NO" {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("describe table %s: %w", table, err)
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("table %s not found", table)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", table, strings.Join(cols, ",\n")), nil
}

func (e *postgresEngine) Guard(query string, allowedTables []string) error {
	return parseGuard(query, allowedTables)
}

// sqliteEngine SQLite，Database 字段为文件路径
type sqliteEngine struct{}

func (e *sqliteEngine) Name() string       { return "sqlite" }
func (e *sqliteEngine) Dialect() string    { return "SQLite" }
func (e *sqliteEngine) DriverName() string { return "sqlite3" }

func (e *sqliteEngine) DSN(env *model.UserEnvironment) string {
	return env.Database
}

func (e *sqliteEngine) TableDDL(ctx context.Context, db *sql.DB, table string) (string, error) {
	var ddl string
	row := db.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", table)
	if err := row.Scan(&ddl); err != nil {
		return "", fmt.Errorf("describe table %s: %w", table, err)
	}
	return ddl, nil
}

func (e *sqliteEngine) Guard(query string, allowedTables []string) error {
	return keywordGuard(query)
}
