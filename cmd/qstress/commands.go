package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/qkit/internal/stress"
)

// usageError 表示用户参数错误，映射到退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// cmdRun 执行压测：加载配置、应用命令行覆盖、运行并输出汇总。
func cmdRun(ctx context.Context, cmd *cli.Command) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd.String("log-level"))
	if err != nil {
		return err
	}

	runner, err := stress.NewRunner(cfg, logger)
	if err != nil {
		if errors.Is(err, stress.ErrInvalidConfig) {
			return &usageError{msg: err.Error()}
		}
		return err
	}

	rep, runErr := runner.Run(ctx)
	if rep != nil {
		printReport(rep)
	}
	return runErr
}

// buildConfig 合成最终配置：默认值 ← 配置文件 ← 命令行选项。
// 仅显式传入的命令行选项才会覆盖配置文件中的值。
func buildConfig(cmd *cli.Command) (stress.Config, error) {
	cfg := stress.DefaultConfig()

	if path := cmd.String("config"); path != "" {
		loaded, err := stress.LoadConfig(path)
		if err != nil {
			switch {
			case errors.Is(err, stress.ErrUnsupportedFormat),
				errors.Is(err, stress.ErrInvalidConfig):
				return stress.Config{}, &usageError{msg: err.Error()}
			default:
				return stress.Config{}, err
			}
		}
		cfg = loaded
	}

	if cmd.IsSet("capacity") {
		cfg.Capacity = int(cmd.Int("capacity"))
	}
	if cmd.IsSet("workers") {
		cfg.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("cycles") {
		cfg.Cycles = int(cmd.Int("cycles"))
	}
	if cmd.IsSet("enqueues") {
		cfg.EnqueuesPerCycle = int(cmd.Int("enqueues"))
	}
	if cmd.IsSet("timeout") {
		cfg.DequeueTimeout = cmd.Duration("timeout")
	}
	if cmd.IsSet("engine") {
		cfg.Engine = cmd.String("engine")
	}
	if cmd.IsSet("strict") {
		cfg.Strict = cmd.Bool("strict")
	}

	if err := cfg.Validate(); err != nil {
		return stress.Config{}, &usageError{msg: err.Error()}
	}
	return cfg, nil
}

// newLogger 按级别构建输出到 stderr 的文本日志记录器。
func newLogger(level string) (*slog.Logger, error) {
	var lv slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "info", "":
		lv = slog.LevelInfo
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		return nil, &usageError{msg: fmt.Sprintf("未知日志级别: %q", level)}
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})), nil
}

// printReport 向 stdout 输出人类可读的压测汇总。
func printReport(rep *stress.Report) {
	fmt.Printf("run %s: engine=%s cycles=%d executed=%d/%d timeouts=%d empty_after_permit=%d duration=%s\n",
		rep.RunID,
		rep.Engine,
		rep.Cycles,
		rep.Executed,
		rep.Expected,
		rep.Stats.Timeouts,
		rep.Stats.EmptyAfterPermit,
		rep.Duration.Round(time.Millisecond),
	)
}

// isCLIUsageError 判断错误是否为 CLI 框架直接产生的参数错误。
// flag 解析错误已由 OnUsageError 包装为 *usageError，走到这里的
// 只剩未知命令等 ExitCoder 错误。
func isCLIUsageError(err error) bool {
	var exitErr cli.ExitCoder
	return errors.As(err, &exitErr)
}

// setupSignalHandler 设置信号处理。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel() // 第一次信号: 优雅取消

		<-sigCh
		signal.Stop(sigCh) // 回收订阅
		os.Exit(130)       // 第二次信号: 强制退出
	}()
}
