package xbqueue

import (
	"errors"
	"fmt"
)

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrInvalidCapacity 无效的容量配置。
	// 容量必须为正整数，否则 New/NewPermitPair 返回此错误。
	ErrInvalidCapacity = errors.New("xbqueue: invalid capacity")

	// ErrNilContext context 参数为空。
	// Enqueue 要求传入非 nil 的 context.Context。
	ErrNilContext = errors.New("xbqueue: context must not be nil")
)

// errInvalidCapacity 包装无效容量错误，附带实际值。
func errInvalidCapacity(capacity int) error {
	return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidCapacity, capacity)
}
