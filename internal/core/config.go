package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/RecoveryAshes/SiteGraph/internal/utils"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀, 如 SITEGRAPH_CRAWL_CONCURRENCY
const EnvPrefix = "SITEGRAPH"

// Config 应用程序配置
type Config struct {
	Crawl   models.CrawlConfig `mapstructure:"crawl"`
	Fetch   models.FetchConfig `mapstructure:"fetch"`
	Output  OutputConfig       `mapstructure:"output"`
	Logging LoggingConfig      `mapstructure:"logging"`
	Neo4j   Neo4jConfig        `mapstructure:"neo4j"`
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
	Dir    string `mapstructure:"dir"`
	Prefix string `mapstructure:"prefix"` // 为空时由起始URL生成
}

// Neo4jConfig 图数据库导出配置
type Neo4jConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// LoadConfig 加载配置文件
// configPath为空时在 ./configs、当前目录和 ~/.sitegraph 中查找 config.yaml, 找不到时使用默认值
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
			v.AddConfigPath(filepath.Join(home, ".sitegraph"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: configPath, Cause: fmt.Errorf("读取配置文件失败: %w", err)}
		}
	} else {
		utils.Debugf("使用配置文件: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: fmt.Errorf("解析配置文件失败: %w", err)}
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	crawl := models.DefaultCrawlConfig()
	v.SetDefault("crawl.allow_subdomains", crawl.AllowSubdomains)
	v.SetDefault("crawl.allow_queries", crawl.AllowQueries)
	v.SetDefault("crawl.max_depth", crawl.MaxDepth)
	v.SetDefault("crawl.concurrency", crawl.Concurrency)
	v.SetDefault("crawl.max_pause", crawl.MaxPauseSeconds)
	v.SetDefault("crawl.denied_extensions", crawl.DeniedExtensions)
	v.SetDefault("crawl.max_url_length", crawl.MaxURLLength)
	v.SetDefault("crawl.query_similarity", crawl.QuerySimilarity)

	fetch := models.DefaultFetchConfig()
	v.SetDefault("fetch.mode", string(fetch.Mode))
	v.SetDefault("fetch.renderer", fetch.Renderer)
	v.SetDefault("fetch.render_timeout", fetch.RenderTimeout)
	v.SetDefault("fetch.render_wait", fetch.RenderWait)
	v.SetDefault("fetch.request_timeout", fetch.RequestTimeout)
	v.SetDefault("fetch.headless", fetch.Headless)
	v.SetDefault("fetch.max_tabs", fetch.MaxTabs)

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.prefix", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("neo4j.enabled", false)
	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")
}

// Validate 验证完整配置
func (c *Config) Validate() error {
	if err := c.Crawl.Validate(); err != nil {
		return fmt.Errorf("爬取配置无效: %w", err)
	}
	if err := c.Fetch.Validate(); err != nil {
		return fmt.Errorf("抓取配置无效: %w", err)
	}
	if c.Neo4j.Enabled && c.Neo4j.URI == "" {
		return fmt.Errorf("启用Neo4j导出时必须配置 neo4j.uri")
	}
	return nil
}

// LogConfig 转换为日志系统配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// MergeCLIFlags 合并命令行参数到配置
// 只有用户显式设置的参数才覆盖配置文件
func (c *Config) MergeCLIFlags(flags *pflag.FlagSet) error {
	var errs []error
	changed := func(name string) bool {
		return flags.Lookup(name) != nil && flags.Changed(name)
	}
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if changed("splash") {
		v, err := flags.GetString("splash")
		collect(err)
		c.Fetch.Renderer = v
	}
	if changed("mode") {
		v, err := flags.GetString("mode")
		collect(err)
		c.Fetch.Mode = models.FetchMode(strings.ToLower(v))
	}
	if changed("subdomains") {
		v, err := flags.GetBool("subdomains")
		collect(err)
		c.Crawl.AllowSubdomains = v
	}
	if changed("no-subdomains") {
		v, err := flags.GetBool("no-subdomains")
		collect(err)
		c.Crawl.AllowSubdomains = !v
	}
	if changed("queries") {
		v, err := flags.GetBool("queries")
		collect(err)
		c.Crawl.AllowQueries = v
	}
	if changed("depth") {
		v, err := flags.GetInt("depth")
		collect(err)
		c.Crawl.MaxDepth = v
	}
	if changed("concurrency") {
		v, err := flags.GetInt("concurrency")
		collect(err)
		c.Crawl.Concurrency = v
	}
	if changed("max-pause") {
		v, err := flags.GetFloat64("max-pause")
		collect(err)
		c.Crawl.MaxPauseSeconds = v
	}
	if changed("output-prefix") {
		v, err := flags.GetString("output-prefix")
		collect(err)
		c.Output.Prefix = v
	}
	if changed("output-dir") {
		v, err := flags.GetString("output-dir")
		collect(err)
		c.Output.Dir = v
	}
	if changed("neo4j") {
		v, err := flags.GetBool("neo4j")
		collect(err)
		c.Neo4j.Enabled = v
	}
	if changed("log-level") {
		v, err := flags.GetString("log-level")
		collect(err)
		c.Logging.Level = v
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("读取命令行参数失败: %w", err)
	}
	return nil
}
