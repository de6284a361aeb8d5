package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Scrape   models.ScrapeConfig   `mapstructure:"scrape"`
	Browser  models.BrowserConfig  `mapstructure:"browser"`
	Fetch    models.FetchConfig    `mapstructure:"fetch"`
	Server   ServerConfig          `mapstructure:"server"`
	Batch    BatchConfig           `mapstructure:"batch"`
	Resource models.ResourceConfig `mapstructure:"resource"`
	Logging  LoggingConfig         `mapstructure:"logging"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	CORSOrigin   string        `mapstructure:"cors_origin"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// BatchConfig 批量提取配置
type BatchConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	Delay           time.Duration `mapstructure:"delay"`
	ContinueOnError bool          `mapstructure:"continue_on_error"`
	OutputDir       string        `mapstructure:"output_dir"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".imgfindcrack"))
		}
	}

	// 环境变量覆盖,如 IMGFINDCRACK_SCRAPE_MAX_IMAGES
	v.SetEnvPrefix("IMGFINDCRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: fmt.Errorf("读取配置文件失败: %w", err)}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultConfig 返回仅含默认值的配置
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// 默认值总能解析
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 编排器
	v.SetDefault("scrape.mode", string(models.ModeAll))
	v.SetDefault("scrape.escalation_threshold", models.DefaultEscalationThreshold)
	v.SetDefault("scrape.max_images", models.DefaultMaxImages)
	v.SetDefault("scrape.mobile_fallback", false)
	v.SetDefault("scrape.page_timeout", "60s")

	// 渲染浏览器
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.nav_timeout", "30s")
	v.SetDefault("browser.settle_delay", "2s")
	v.SetDefault("browser.scroll_delay", "1s")
	v.SetDefault("browser.viewport_width", 1366)
	v.SetDefault("browser.viewport_height", 900)
	v.SetDefault("browser.min_visible_area", 2500)
	v.SetDefault("browser.max_sessions", 4)

	// 网络请求
	v.SetDefault("fetch.timeout", "20s")
	v.SetDefault("fetch.max_bytes", models.MaxImageSize)
	v.SetDefault("fetch.insecure_skip_verify", false)

	// HTTP服务
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "60s")

	// 批量
	v.SetDefault("batch.concurrency", 2)
	v.SetDefault("batch.delay", "0s")
	v.SetDefault("batch.continue_on_error", true)
	v.SetDefault("batch.output_dir", "output")

	// 资源门限
	v.SetDefault("resource.enabled", true)
	v.SetDefault("resource.safety_reserve_memory", 512)
	v.SetDefault("resource.browser_memory", 300)
	v.SetDefault("resource.cpu_load_threshold", 90)

	// 日志
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)
}

// Validate 验证各部分配置
func (c *Config) Validate() error {
	if err := c.Scrape.Validate(); err != nil {
		return fmt.Errorf("scrape配置无效: %w", err)
	}
	if c.Browser.Enabled {
		if err := c.Browser.Validate(); err != nil {
			return fmt.Errorf("browser配置无效: %w", err)
		}
	}
	if err := c.Fetch.Validate(); err != nil {
		return fmt.Errorf("fetch配置无效: %w", err)
	}
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 32 {
		return fmt.Errorf("batch.concurrency必须在1-32之间, 当前%d", c.Batch.Concurrency)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes必须大于0")
	}
	return nil
}

// MergeCLIFlags 合并命令行参数到配置,命令行优先
func (c *Config) MergeCLIFlags(mode string, concurrency int, addr string, disableBrowser bool) error {
	if mode != "" {
		parsed, err := models.ParseScrapeMode(mode)
		if err != nil {
			return err
		}
		c.Scrape.Mode = parsed
	}
	if concurrency > 0 {
		c.Batch.Concurrency = concurrency
	}
	if addr != "" {
		c.Server.Addr = addr
	}
	if disableBrowser {
		c.Browser.Enabled = false
	}
	return c.Validate()
}
