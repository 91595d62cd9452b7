package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/ProductFinder/internal/classifier"
	"github.com/RecoveryAshes/ProductFinder/internal/crawlers"
	"github.com/RecoveryAshes/ProductFinder/internal/models"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀, 如 PRODUCTFINDER_CLASSIFIER_API_KEY
const EnvPrefix = "PRODUCTFINDER"

// Config 应用程序配置
type Config struct {
	Harvest    models.HarvestConfig `mapstructure:"harvest"`
	Classifier classifier.Config    `mapstructure:"classifier"`
	Pipeline   PipelineConfig       `mapstructure:"pipeline"`
	Logging    LoggingConfig        `mapstructure:"logging"`
	Output     OutputConfig         `mapstructure:"output"`
	Resource   ResourceConfig       `mapstructure:"resource"`
	Identity   IdentityFileConfig   `mapstructure:"identity"`
}

// PipelineConfig 单站点流水线与批量运行配置
type PipelineConfig struct {
	Concurrency     int  `mapstructure:"concurrency"`       // 同时处理的站点数
	MaxCandidates   int  `mapstructure:"max_candidates"`    // 每轮送入分类器的链接上限
	MaxGridPages    int  `mapstructure:"max_grid_pages"`    // 二次采集的列表页上限
	MaxProducts     int  `mapstructure:"max_products"`      // 每站点输出的商品数上限
	SameSite        bool `mapstructure:"same_site"`         // 只保留同一可注册域名下的链接
	ContinueOnError bool `mapstructure:"continue_on_error"` // 单站点失败后是否继续
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

// OutputConfig 输出配置
type OutputConfig struct {
	MappingFile string `mapstructure:"mapping_file"`
	ReportDir   string `mapstructure:"report_dir"`
}

// ResourceConfig 资源限制, 内存单位为MB
type ResourceConfig struct {
	SafetyReserveMB  int64 `mapstructure:"safety_reserve_mb"`
	SessionMemoryMB  int64 `mapstructure:"session_memory_mb"`
	CPULoadThreshold int   `mapstructure:"cpu_load_threshold"`
	MaxSessions      int   `mapstructure:"max_sessions"`
}

// MonitorConfig 转换为 crawlers.ResourceMonitorConfig
func (r ResourceConfig) MonitorConfig() crawlers.ResourceMonitorConfig {
	return crawlers.ResourceMonitorConfig{
		SafetyReserveMemory: r.SafetyReserveMB * 1024 * 1024,
		SessionMemoryUsage:  r.SessionMemoryMB * 1024 * 1024,
		CPULoadThreshold:    r.CPULoadThreshold,
		MaxSessionsLimit:    r.MaxSessions,
	}
}

// IdentityFileConfig 身份配置文件位置
type IdentityFileConfig struct {
	File string `mapstructure:"file"`
}

// LoadConfig 加载配置文件
// 优先级: 默认值 < 配置文件 < 环境变量 (命令行参数由调用方最后覆盖)
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".productfinder"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &models.ConfigError{FilePath: configPath, Cause: fmt.Errorf("读取配置文件失败: %w", err)}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	h := models.DefaultHarvestConfig()
	v.SetDefault("harvest.mode", string(h.Mode))
	v.SetDefault("harvest.headless", h.Headless)
	v.SetDefault("harvest.scroll_pause", h.ScrollPause)
	v.SetDefault("harvest.max_retries", h.MaxRetries)
	v.SetDefault("harvest.rotate_every", h.RotateEvery)
	v.SetDefault("harvest.max_scrolls", h.MaxScrolls)
	v.SetDefault("harvest.max_links", h.MaxLinks)
	v.SetDefault("harvest.grid_max_scrolls", h.GridMaxScrolls)
	v.SetDefault("harvest.grid_max_links", h.GridMaxLinks)
	v.SetDefault("harvest.dom_wait_timeout", h.DOMWaitTimeout)
	v.SetDefault("harvest.nav_timeout", h.NavTimeout)
	v.SetDefault("harvest.jitter_min", h.JitterMin)
	v.SetDefault("harvest.jitter_max", h.JitterMax)
	v.SetDefault("harvest.chrome_bin", "")
	v.SetDefault("harvest.static_timeout", h.StaticTimeout)

	c := classifier.DefaultConfig()
	v.SetDefault("classifier.provider", c.Provider)
	v.SetDefault("classifier.model", c.Model)
	v.SetDefault("classifier.base_url", "")
	v.SetDefault("classifier.api_key", "")
	v.SetDefault("classifier.timeout", c.Timeout)
	v.SetDefault("classifier.requests_per_second", c.RequestsPerSecond)
	v.SetDefault("classifier.batch_size", c.BatchSize)

	v.SetDefault("pipeline.concurrency", 2)
	v.SetDefault("pipeline.max_candidates", 20)
	v.SetDefault("pipeline.max_grid_pages", 3)
	v.SetDefault("pipeline.max_products", 20)
	v.SetDefault("pipeline.same_site", true)
	v.SetDefault("pipeline.continue_on_error", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("output.mapping_file", "website_product_mapping.txt")
	v.SetDefault("output.report_dir", "output")

	v.SetDefault("resource.safety_reserve_mb", 1024)
	v.SetDefault("resource.session_memory_mb", 300)
	v.SetDefault("resource.cpu_load_threshold", 90)
	v.SetDefault("resource.max_sessions", 8)

	v.SetDefault("identity.file", "configs/identities.yaml")
}

// Validate 验证合并后的配置
func (c *Config) Validate() error {
	if err := c.Harvest.Validate(); err != nil {
		return fmt.Errorf("harvest: %w", err)
	}
	if c.Pipeline.Concurrency < 1 || c.Pipeline.Concurrency > 32 {
		return fmt.Errorf("pipeline.concurrency 必须在1-32之间")
	}
	if c.Pipeline.MaxCandidates < 1 {
		return fmt.Errorf("pipeline.max_candidates 必须大于0")
	}
	if c.Pipeline.MaxGridPages < 0 {
		return fmt.Errorf("pipeline.max_grid_pages 不能为负数")
	}
	if c.Pipeline.MaxProducts < 1 {
		return fmt.Errorf("pipeline.max_products 必须大于0")
	}
	if c.Classifier.BatchSize < 1 {
		return fmt.Errorf("classifier.batch_size 必须大于0")
	}
	return nil
}

// CLIOverrides 命令行覆盖项, nil 表示未设置
type CLIOverrides struct {
	Mode           *string
	Headless       *bool
	ScrollPause    *float64
	MaxRetries     *int
	RotateEvery    *int
	MaxScrolls     *int
	MaxLinks       *int
	GridMaxScrolls *int
	Concurrency    *int
	Classifier     *string
	Output         *string
	ReportDir      *string
	LogLevel       *string
}

// MergeCLIFlags 合并命令行参数到配置, 命令行优先于配置文件
func (c *Config) MergeCLIFlags(o CLIOverrides) {
	if o.Mode != nil {
		c.Harvest.Mode = models.HarvestMode(*o.Mode)
	}
	if o.Headless != nil {
		c.Harvest.Headless = *o.Headless
	}
	if o.ScrollPause != nil {
		c.Harvest.ScrollPause = secondsToDuration(*o.ScrollPause)
	}
	if o.MaxRetries != nil {
		c.Harvest.MaxRetries = *o.MaxRetries
	}
	if o.RotateEvery != nil {
		c.Harvest.RotateEvery = *o.RotateEvery
	}
	if o.MaxScrolls != nil {
		c.Harvest.MaxScrolls = *o.MaxScrolls
	}
	if o.MaxLinks != nil {
		c.Harvest.MaxLinks = *o.MaxLinks
	}
	if o.GridMaxScrolls != nil {
		c.Harvest.GridMaxScrolls = *o.GridMaxScrolls
	}
	if o.Concurrency != nil {
		c.Pipeline.Concurrency = *o.Concurrency
	}
	if o.Classifier != nil {
		c.Classifier.Provider = *o.Classifier
	}
	if o.Output != nil {
		c.Output.MappingFile = *o.Output
	}
	if o.ReportDir != nil {
		c.Output.ReportDir = *o.ReportDir
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
