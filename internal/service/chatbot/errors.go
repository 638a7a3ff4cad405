package chatbot

import (
	"errors"
	"fmt"
)

// ErrSynthesis 模型没有产出可用内容
var ErrSynthesis = errors.New("model returned no usable output")

// GaveUpError 修复重试次数用尽，最后一次执行仍然失败
type GaveUpError struct {
	Question  string
	Attempts  int
	LastQuery string
	Err       error
}

func (e *GaveUpError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GaveUpError) Unwrap() error {
	return e.Err
}
