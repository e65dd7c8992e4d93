package xbqueue

import (
	"log/slog"
	"time"
)

// =============================================================================
// 日志属性键常量
// =============================================================================

const (
	attrKeyEngine   = "engine"
	attrKeyQueue    = "queue"
	attrKeyCapacity = "capacity"
	attrKeyLen      = "len"
	attrKeyTimeout  = "timeout"
	attrKeyError    = "error"
)

// =============================================================================
// 日志属性构造函数
// =============================================================================

// AttrEngine 返回引擎类型属性
func AttrEngine(engine string) slog.Attr {
	return slog.String(attrKeyEngine, engine)
}

// AttrQueueName 返回队列名称属性
func AttrQueueName(name string) slog.Attr {
	return slog.String(attrKeyQueue, name)
}

// AttrCapacity 返回容量属性
func AttrCapacity(capacity int) slog.Attr {
	return slog.Int(attrKeyCapacity, capacity)
}

// AttrLen 返回当前条目数属性
func AttrLen(n int) slog.Attr {
	return slog.Int(attrKeyLen, n)
}

// AttrTimeout 返回等待时长属性
func AttrTimeout(d time.Duration) slog.Attr {
	return slog.Duration(attrKeyTimeout, d)
}

// AttrError 返回错误属性
func AttrError(err error) slog.Attr {
	if err == nil {
		return slog.String(attrKeyError, "")
	}
	return slog.String(attrKeyError, err.Error())
}
