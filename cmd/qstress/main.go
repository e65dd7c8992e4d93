// qstress 是有界队列的压力测试命令行工具。
//
// 按配置的周期数反复执行"建消费者组 → 灌入计数任务 → 会合 → 拆组"，
// 并在结束时断言计数守恒（无丢失、无重复）与队列排空。历史上该场景
// 曾暴露"许可已授予但存储为空"的竞态，qstress 用于回归验证。
//
// 用法:
//
//	qstress [选项]
//
// 选项:
//
//	-c, --config     配置文件路径 (YAML/JSON，命令行选项优先级更高)
//	    --capacity   队列容量 (默认: 32)
//	-w, --workers    每周期消费者数量 (默认: 8)
//	-n, --cycles     周期数 (默认: 20000)
//	    --enqueues   每周期灌入的任务数 (默认: 256)
//	-t, --timeout    消费者单次限时出队的等待时长 (默认: 1ms)
//	-e, --engine     队列引擎: channel | permit_pair (默认: permit_pair)
//	    --strict     严格一致性模式，守恒违规立即 panic
//	-l, --log-level  日志级别: debug | info | warn | error (默认: info)
//
// 退出码:
//
//	0: 压测完成且全部不变式成立
//	1: 压测失败（计数不一致、守恒违规或队列未排空）
//	2: 参数错误（无效引擎、无效配置等）
//
// 示例:
//
//	qstress                               # 默认规模（32/8/20000/256）
//	qstress -n 1000 -e channel            # 小规模验证 channel 引擎
//	qstress -c stress.yaml --strict       # 配置文件 + 严格模式
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/qkit/internal/stress"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	def := stress.DefaultConfig()

	return &cli.Command{
		Name:    "qstress",
		Usage:   "有界队列压力测试工具",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径 (YAML/JSON)",
			},
			&cli.IntFlag{
				Name:  "capacity",
				Usage: "队列容量",
				Value: int64(def.Capacity),
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "每周期消费者数量",
				Value:   int64(def.Workers),
			},
			&cli.IntFlag{
				Name:    "cycles",
				Aliases: []string{"n"},
				Usage:   "周期数",
				Value:   int64(def.Cycles),
			},
			&cli.IntFlag{
				Name:  "enqueues",
				Usage: "每周期灌入的任务数",
				Value: int64(def.EnqueuesPerCycle),
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "消费者单次限时出队的等待时长",
				Value:   def.DequeueTimeout,
			},
			&cli.StringFlag{
				Name:    "engine",
				Aliases: []string{"e"},
				Usage:   "队列引擎: channel | permit_pair",
				Value:   def.Engine,
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "严格一致性模式，守恒违规立即 panic",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "日志级别: debug | info | warn | error",
				Value:   "info",
			},
		},
		Action: cmdRun,
		Authors: []any{
			"qkit Team",
		},
		// flag 解析错误在此统一包装为 usageError，退出码映射
		// 不依赖框架错误消息的文本特征
		OnUsageError: func(_ context.Context, _ *cli.Command, err error, _ bool) error {
			return &usageError{msg: err.Error()}
		},
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，
		// 由 run() 统一处理退出码映射，确保与文档退出码契约一致。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			// ExitCoder 错误（如未知命令）的消息需在此输出，
			// 替代 HandleExitCoder 的默认 os.Exit 行为。
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run() int {
	app := createApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandler(cancel)

	start := time.Now()
	if err := app.Run(ctx, os.Args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		// CLI 框架产生的参数错误（如未知 flag、未知命令）也返回退出码 2，
		// 与文档契约"参数错误 → 退出码 2"保持一致。
		if isCLIUsageError(err) {
			// ExitErrHandler 或 flag 解析器已向 stderr 输出错误详情，此处仅设置退出码
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v (elapsed: %s)\n", err, time.Since(start).Round(time.Millisecond))
		return 1
	}

	return 0
}
