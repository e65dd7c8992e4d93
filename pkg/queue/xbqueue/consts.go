package xbqueue

// =============================================================================
// 引擎类型标识（用于指标与日志）
// =============================================================================

const (
	// EngineChan channel 引擎
	EngineChan = "channel"

	// EnginePermitPair 许可对引擎
	EnginePermitPair = "permit_pair"
)

// =============================================================================
// 仪表化版本（Metrics + Trace 共享）
// =============================================================================

const (
	// instrumentationVersion 仪表化版本号
	instrumentationVersion = "1.0.0"
)
