// Package xbqueue 提供固定容量的多生产者/多消费者阻塞队列。
//
// Queue 是一个泛型有界队列，支持以下特性：
//   - 阻塞式入队（Enqueue，队列满时等待空位，支持 ctx 取消）
//   - 限时出队（TryDequeueFor，超时返回空结果，超时是正常结果而非错误）
//   - 非阻塞变体（TryEnqueue / TryDequeue）
//   - 严格 FIFO（相对于存储变更完成的顺序）
//   - 每个条目恰好被一个消费者取走一次（不丢失、不重复）
//   - OTel 指标与追踪（WithMeterProvider / WithTracerProvider）
//   - 可注入自定义日志记录器（WithLogger）
//   - 多实例场景下可设置名称以区分日志来源（WithName）
//
// # 两种引擎
//
// New 返回默认的 channel 引擎：入队等待、出队等待与存储本身共用
// 同一个同步域（带缓冲 channel），"许可已授予但存储尚未反映对应写入"
// 这一类竞态在结构上不可能发生。生产使用推荐此引擎。
//
// NewPermitPair 返回许可对引擎：两个独立的有界计数器（空位许可与
// 条目许可，基于 golang.org/x/sync/semaphore）配合互斥锁保护的环形
// 存储。许可信号与存储变更是两个独立的同步域，这正是该类队列历史上
// 容易出错的结构。保留此引擎用于压力测试与故障注入：配合
// Stats().EmptyAfterPermit 可以在压测中断言守恒不变式从未被违反。
//
// # 守恒不变式
//
// 任意时刻：空位许可数 + 条目许可数 == 容量；且消费者成功获得条目
// 许可后，加锁弹出时存储必定非空。后者被违反说明存在同步缺陷，
// 两种处理策略：
//   - WithStrictConsistency()：立即 panic，绝不静默容忍——返回空值
//     会掩盖真实的同步缺陷；
//   - 默认（防御性恢复）：记录 EmptyAfterPermit 计数器并输出 Warn
//     日志，归还许可后重新等待。适合生产环境，但诊断计数器非零
//     仍应作为缺陷处理。
//
// # 注意事项
//
//   - 容量在构造时固定，不支持运行时调整
//   - 队列不持有条目所有权：条目由生产者创建，由取走它的消费者处置
//   - Enqueue 没有独立的超时参数，无界等待请传入 context.Background()
//   - 单个 Queue 实例的所有方法都是并发安全的；不同实例之间不共享任何资源
package xbqueue
