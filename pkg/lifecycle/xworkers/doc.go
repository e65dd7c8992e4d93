// Package xworkers 提供固定规模的 worker 组。
//
// Pool 在构造时立即启动固定数量的 goroutine，每个 goroutine 运行同一个
// 任务函数直到其返回；Wait 在所有退出路径上（正常返回、错误、panic、
// 取消）都会把每个 worker join 完毕后才返回，持有 Pool 的一方因此获得
// "构造即启动、等待即回收"的作用域生命周期。
//
// # 注意事项
//
//   - Pool 不做单任务级别的取消：任务函数应监听 ctx.Done()，
//     或由调用方通过外部标志/哨兵条目通知其退出
//   - 任一 worker 返回非 nil 错误会取消其余 worker 的 ctx，
//     Wait 返回第一个非 nil 错误
//   - worker 内的 panic 会被捕获并转换为错误，绝不会导致
//     其余 worker 泄漏为未 join 状态
//   - Cancel(cause) 主动触发关闭，Wait 通过 context.Cause 返回退出原因
//   - New 创建后立即启动，无需手动 Start；count < 1 或 task 为 nil
//     属于构造期错误，直接返回而非 panic
package xworkers
