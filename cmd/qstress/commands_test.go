package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/qkit/internal/stress"
	"github.com/omeyang/qkit/pkg/queue/xbqueue"
)

// parseConfig 用真实的 flag 解析管线构造配置，不实际执行压测。
func parseConfig(t *testing.T, args ...string) (stress.Config, error) {
	t.Helper()

	var (
		cfg    stress.Config
		cfgErr error
	)
	app := createApp()
	app.Action = func(_ context.Context, cmd *cli.Command) error {
		cfg, cfgErr = buildConfig(cmd)
		return nil
	}

	if err := app.Run(context.Background(), append([]string{"qstress"}, args...)); err != nil {
		t.Fatalf("app.Run: %v", err)
	}
	return cfg, cfgErr
}

func TestBuildConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(t)
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg != stress.DefaultConfig() {
		t.Errorf("config without flags should equal defaults, got %+v", cfg)
	}
}

func TestBuildConfigFlagOverrides(t *testing.T) {
	cfg, err := parseConfig(t,
		"--capacity", "16",
		"-w", "2",
		"-n", "10",
		"--enqueues", "8",
		"-t", "2ms",
		"-e", xbqueue.EngineChan,
		"--strict",
	)
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}

	if cfg.Capacity != 16 || cfg.Workers != 2 || cfg.Cycles != 10 || cfg.EnqueuesPerCycle != 8 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.DequeueTimeout != 2*time.Millisecond {
		t.Errorf("DequeueTimeout = %s, want 2ms", cfg.DequeueTimeout)
	}
	if cfg.Engine != xbqueue.EngineChan {
		t.Errorf("Engine = %q, want %q", cfg.Engine, xbqueue.EngineChan)
	}
	if !cfg.Strict {
		t.Error("Strict should be true")
	}
}

func TestBuildConfigFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stress.yaml")
	if err := os.WriteFile(path, []byte("cycles: 5\nworkers: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	// 命令行选项优先级高于配置文件
	cfg, err := parseConfig(t, "-c", path, "-w", "3")
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.Cycles != 5 {
		t.Errorf("Cycles = %d, want 5 (from file)", cfg.Cycles)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3 (flag overrides file)", cfg.Workers)
	}
}

func TestBuildConfigInvalidEngine(t *testing.T) {
	_, err := parseConfig(t, "-e", "lockfree")
	var usageErr *usageError
	if !errors.As(err, &usageErr) {
		t.Fatalf("expected *usageError, got %T: %v", err, err)
	}
}

func TestBuildConfigMissingFile(t *testing.T) {
	_, err := parseConfig(t, "-c", filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	// 文件不存在属于运行错误而非参数错误
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		t.Errorf("missing file should not be a usage error: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "INFO", ""} {
		if _, err := newLogger(level); err != nil {
			t.Errorf("newLogger(%q): %v", level, err)
		}
	}

	_, err := newLogger("verbose")
	var usageErr *usageError
	if !errors.As(err, &usageErr) {
		t.Fatalf("expected *usageError for unknown level, got %T: %v", err, err)
	}
}

func TestUsageError(t *testing.T) {
	err := &usageError{msg: "test error"}
	if err.Error() != "test error" {
		t.Errorf("usageError.Error() = %q, want %q", err.Error(), "test error")
	}

	var target *usageError
	if !errors.As(err, &target) {
		t.Error("errors.As failed for *usageError")
	}
}

func TestIsCLIUsageError(t *testing.T) {
	if !isCLIUsageError(cli.Exit("bad args", 2)) {
		t.Error("ExitCoder should be a CLI usage error")
	}
	if isCLIUsageError(errors.New("queue not drained")) {
		t.Error("runtime error should not be a CLI usage error")
	}
}

// flag 解析失败必须经 OnUsageError 包装为 usageError，
// 退出码 2 的判定不依赖框架错误消息的文本。
func TestUnknownFlagWrappedAsUsageError(t *testing.T) {
	app := createApp()
	app.Action = func(context.Context, *cli.Command) error { return nil }

	err := app.Run(context.Background(), []string{"qstress", "--bogus"})
	var usageErr *usageError
	if !errors.As(err, &usageErr) {
		t.Fatalf("expected *usageError, got %T: %v", err, err)
	}
}

func TestCmdRunSmallScale(t *testing.T) {
	// 小规模端到端：真实走完 flag 解析 → Runner → 不变式校验
	app := createApp()
	err := app.Run(context.Background(), []string{
		"qstress", "-n", "5", "--enqueues", "16", "-w", "2", "--capacity", "4", "-l", "error",
	})
	if err != nil {
		t.Fatalf("small-scale run failed: %v", err)
	}
}
