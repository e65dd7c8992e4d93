package xworkers

import "errors"

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrInvalidCount 无效的 worker 数量。
	// worker 数量必须为正整数，否则 New 返回此错误。
	ErrInvalidCount = errors.New("xworkers: invalid worker count")

	// ErrNilTask 任务函数为空。
	// New 要求传入非 nil 的任务函数。
	ErrNilTask = errors.New("xworkers: task must not be nil")
)
