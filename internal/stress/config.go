// Package stress 实现有界队列的压力测试驱动。
//
// 驱动按周期运行：每个周期启动一组新的消费者、灌入固定数量的计数任务、
// 通过会合屏障确认本周期全部任务执行完毕后回收消费者。大量重复的
// 建池/灌入/拆池循环正是历史上暴露"许可已授予但存储为空"这类
// 低概率竞态的场景，驱动在结束时对守恒与计数不变式做强断言。
package stress

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/omeyang/qkit/pkg/queue/xbqueue"
)

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrEmptyPath 配置文件路径为空
	ErrEmptyPath = errors.New("stress: config path is empty")

	// ErrUnsupportedFormat 不支持的配置格式
	ErrUnsupportedFormat = errors.New("stress: unsupported config format")

	// ErrLoadFailed 配置加载失败
	ErrLoadFailed = errors.New("stress: failed to load config")

	// ErrInvalidConfig 无效的配置
	ErrInvalidConfig = errors.New("stress: invalid config")
)

// Format 配置文件格式
type Format string

const (
	// FormatYAML YAML 格式
	FormatYAML Format = "yaml"
	// FormatJSON JSON 格式
	FormatJSON Format = "json"
)

// Config 压测配置。
// 字段通过 koanf 从 YAML/JSON 加载，缺省字段保持默认值。
type Config struct {
	// Capacity 队列容量
	Capacity int `koanf:"capacity"`

	// Workers 每周期的消费者数量
	Workers int `koanf:"workers"`

	// Cycles 周期数（每周期重建消费者组，复用同一队列实例）
	Cycles int `koanf:"cycles"`

	// EnqueuesPerCycle 每周期灌入的计数任务数
	EnqueuesPerCycle int `koanf:"enqueues_per_cycle"`

	// DequeueTimeout 消费者单次限时出队的等待时长
	DequeueTimeout time.Duration `koanf:"dequeue_timeout"`

	// Engine 队列引擎："channel" 或 "permit_pair"
	Engine string `koanf:"engine"`

	// Strict 严格一致性模式：守恒违规立即 panic 而非防御性恢复
	Strict bool `koanf:"strict"`
}

// DefaultConfig 返回默认压测配置。
// 默认引擎为许可对引擎——驱动存在的意义就是压测该类设计的竞态窗口。
func DefaultConfig() Config {
	return Config{
		Capacity:         32,
		Workers:          8,
		Cycles:           20000,
		EnqueuesPerCycle: 256,
		DequeueTimeout:   time.Millisecond,
		Engine:           xbqueue.EnginePermitPair,
	}
}

// Validate 验证配置。
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Cycles <= 0 {
		return fmt.Errorf("%w: cycles must be positive, got %d", ErrInvalidConfig, c.Cycles)
	}
	if c.EnqueuesPerCycle <= 0 {
		return fmt.Errorf("%w: enqueues_per_cycle must be positive, got %d", ErrInvalidConfig, c.EnqueuesPerCycle)
	}
	if c.DequeueTimeout <= 0 {
		return fmt.Errorf("%w: dequeue_timeout must be positive, got %s", ErrInvalidConfig, c.DequeueTimeout)
	}
	if c.Engine != xbqueue.EngineChan && c.Engine != xbqueue.EnginePermitPair {
		return fmt.Errorf("%w: unknown engine %q", ErrInvalidConfig, c.Engine)
	}
	return nil
}

// LoadConfig 从文件加载压测配置。
// 根据文件扩展名自动检测格式（.yaml/.yml 或 .json）。
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, ErrEmptyPath
	}

	format, err := detectFormat(path)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	return LoadConfigBytes(data, format)
}

// LoadConfigBytes 从字节数据加载压测配置，需要显式指定格式。
// 未出现的键保持 DefaultConfig 的默认值。
func LoadConfigBytes(data []byte, format Format) (Config, error) {
	parser, err := parserFor(format)
	if err != nil {
		return Config{}, err
	}

	k := koanf.New(".")
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
		}
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// detectFormat 根据文件扩展名检测配置格式。
func detectFormat(path string) (Format, error) {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// parserFor 返回格式对应的 koanf 解析器。
func parserFor(format Format) (koanf.Parser, error) {
	switch format {
	case FormatYAML:
		return yaml.Parser(), nil
	case FormatJSON:
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
