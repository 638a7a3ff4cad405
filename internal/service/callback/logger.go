// Package callback 提供 Eino Callback 日志支持，
// 记录每次大模型调用的起止与错误。
package callback

import (
	"context"
	"log"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// promptLogLimit 日志中提示词的最大长度
const promptLogLimit = 200

// Logger 日志回调处理器，实现 callbacks.Handler 接口
type Logger struct {
	EnableDebug bool // 是否记录调用的输入输出
}

// NewLogger 创建日志回调处理器
func NewLogger(enableDebug bool) *Logger {
	return &Logger{EnableDebug: enableDebug}
}

// OnStart 组件执行开始时调用
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if l.EnableDebug {
		log.Printf("[LLM] start: name=%s component=%s input=%v",
			info.Name, info.Component, l.formatInput(input))
	}
	return ctx
}

// OnEnd 组件执行成功结束时调用
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if l.EnableDebug {
		log.Printf("[LLM] end: name=%s component=%s output=%v",
			info.Name, info.Component, l.formatOutput(output))
	}
	return ctx
}

// OnError 组件执行出错时调用，无论是否开启调试都记录
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	log.Printf("[LLM] error: name=%s component=%s error=%v",
		info.Name, info.Component, err)
	return ctx
}

// OnStartWithStreamInput 流式输入开始时调用
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	if l.EnableDebug {
		log.Printf("[LLM] stream start: name=%s component=%s", info.Name, info.Component)
	}
	return ctx
}

// OnEndWithStreamOutput 流式输出结束时调用
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	if l.EnableDebug {
		log.Printf("[LLM] stream end: name=%s component=%s", info.Name, info.Component)
	}
	return ctx
}

// formatInput 格式化输入，提示词可能很长，截断避免日志过大
func (l *Logger) formatInput(input callbacks.CallbackInput) interface{} {
	switch v := input.(type) {
	case nil:
		return nil
	case *model.CallbackInput:
		if len(v.Messages) > 0 {
			return truncate(v.Messages[len(v.Messages)-1].Content)
		}
		return "(no messages)"
	case string:
		return truncate(v)
	default:
		return input
	}
}

// formatOutput 格式化输出
func (l *Logger) formatOutput(output callbacks.CallbackOutput) interface{} {
	switch v := output.(type) {
	case nil:
		return nil
	case *model.CallbackOutput:
		if v.Message != nil {
			return truncate(v.Message.Content)
		}
		return "(no message)"
	case string:
		return truncate(v)
	default:
		return output
	}
}

func truncate(s string) string {
	if len(s) > promptLogLimit {
		return s[:promptLogLimit] + "..."
	}
	return s
}

// SetupGlobalCallbacks 注册全局回调，所有模型调用都会经过 Logger
func SetupGlobalCallbacks(enableDebug bool) {
	callbacks.AppendGlobalHandlers(NewLogger(enableDebug))
}
