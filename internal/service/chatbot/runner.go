package chatbot

import (
	"context"

	"github.com/ashwinyue/chat2sql/internal/service/dbx"
)

// FallbackSentinel 重试额度即将用尽时放弃查询的占位值
const FallbackSentinel = "None"

// Target 一个可查询的目标数据库，由 dbx.Target 实现
type Target interface {
	Dialect() string
	Tables() []string
	Query(ctx context.Context, query string) (*dbx.Result, error)
	DescribeSchema(ctx context.Context, sampleRows int) (string, error)
	Close() error
}

// RunOutcome 一次带重试的查询执行结果
type RunOutcome struct {
	// Query 最终执行成功的查询；回退时为 FallbackSentinel
	Query string
	// Result 查询结果；回退时为 nil
	Result *dbx.Result
	// FellBack 是否在用尽重试前放弃
	FellBack bool
	// Attempts 修复次数
	Attempts int
}

// ResultText 注入回答提示词的结果文本
func (o *RunOutcome) ResultText() string {
	if o.FellBack || o.Result == nil {
		return FallbackSentinel
	}
	return o.Result.Format()
}

// Runner 带修复重试的查询执行器
type Runner struct {
	synth      *Synthesizer
	maxRetries int
}

// NewRunner 创建执行器
func NewRunner(synth *Synthesizer, maxRetries int) *Runner {
	if maxRetries <= 0 {
		maxRetries = 7
	}
	return &Runner{synth: synth, maxRetries: maxRetries}
}

// Run 执行查询，失败时让模型修复后重试。
// 重试只剩最后一次机会时不再尝试，带着占位值回退，
// 让回答环节如实告知没有查到数据。
func (r *Runner) Run(ctx context.Context, target Target, question, query string) (*RunOutcome, error) {
	attempt := 0
	for {
		result, err := target.Query(ctx, query)
		if err == nil {
			return &RunOutcome{Query: query, Result: result, Attempts: attempt}, nil
		}

		if attempt >= r.maxRetries-1 {
			return nil, &GaveUpError{
				Question:  question,
				Attempts:  attempt + 1,
				LastQuery: query,
				Err:       err,
			}
		}
		attempt++

		if attempt == r.maxRetries-2 {
			return &RunOutcome{Query: FallbackSentinel, FellBack: true, Attempts: attempt}, nil
		}

		repaired, rerr := r.synth.RepairSQL(ctx, target.Dialect(), question, query, err)
		if rerr != nil {
			return nil, &GaveUpError{
				Question:  question,
				Attempts:  attempt,
				LastQuery: query,
				Err:       rerr,
			}
		}
		query = repaired
	}
}
