package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/spf13/pflag"
)

func TestLoadConfigDefaults(t *testing.T) {

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Crawl.AllowSubdomains || cfg.Crawl.AllowQueries {
		t.Errorf("范围默认值错误: %+v", cfg.Crawl)
	}
	if cfg.Crawl.Concurrency != 5 || cfg.Crawl.MaxPauseSeconds != 10.0 || cfg.Crawl.MaxDepth != 0 {
		t.Errorf("爬取默认值错误: %+v", cfg.Crawl)
	}
	if len(cfg.Crawl.DeniedExtensions) == 0 {
		t.Error("应有默认扩展名黑名单")
	}
	if cfg.Fetch.Mode != models.ModeSplash || cfg.Fetch.Renderer != "http://localhost:8051" {
		t.Errorf("抓取默认值错误: %+v", cfg.Fetch)
	}
	if cfg.Output.Dir != "output" || cfg.Neo4j.Enabled {
		t.Errorf("输出/Neo4j默认值错误: %+v %+v", cfg.Output, cfg.Neo4j)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("默认配置应合法: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `crawl:
  concurrency: 2
  max_depth: 3
  allow_queries: true
fetch:
  mode: direct
  headers:
    X-Test: ok
output:
  dir: /tmp/sitegraph
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Crawl.Concurrency != 2 || cfg.Crawl.MaxDepth != 3 || !cfg.Crawl.AllowQueries {
		t.Errorf("Crawl = %+v", cfg.Crawl)
	}
	if cfg.Fetch.Mode != models.ModeDirect || cfg.Fetch.Headers["x-test"] != "ok" {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	// 未配置的键保留默认值
	if cfg.Crawl.MaxPauseSeconds != 10.0 || cfg.Fetch.RequestTimeout != 60 {
		t.Errorf("默认值丢失: %+v %+v", cfg.Crawl, cfg.Fetch)
	}
	if cfg.Output.Dir != "/tmp/sitegraph" {
		t.Errorf("Output.Dir = %q", cfg.Output.Dir)
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("SITEGRAPH_CRAWL_CONCURRENCY", "9")
	t.Setenv("SITEGRAPH_FETCH_MODE", "browser")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Crawl.Concurrency != 9 || cfg.Fetch.Mode != models.ModeBrowser {
		t.Errorf("环境变量未生效: %d %s", cfg.Crawl.Concurrency, cfg.Fetch.Mode)
	}
}

func TestLoadConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("crawl: [broken"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadConfig(path)
	var cfgErr *models.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("期望ConfigError, 得到 %v", err)
	}
}

func newSaveFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("save", pflag.ContinueOnError)
	fs.StringP("splash", "s", "", "")
	fs.String("mode", "", "")
	fs.Bool("subdomains", true, "")
	fs.Bool("no-subdomains", false, "")
	fs.BoolP("queries", "q", false, "")
	fs.IntP("depth", "d", 0, "")
	fs.IntP("concurrency", "c", 5, "")
	fs.Float64P("max-pause", "p", 10, "")
	fs.StringP("output-prefix", "o", "", "")
	fs.String("output-dir", "", "")
	fs.Bool("neo4j", false, "")
	return fs
}

func TestMergeCLIFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "未设置的参数不覆盖配置",
			args: nil,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Crawl.Concurrency != 7 || cfg.Fetch.Renderer != "http://splash:8050" {
					t.Errorf("配置被覆盖: %+v", cfg)
				}
			},
		},
		{
			name: "覆盖爬取参数",
			args: []string{"-c", "3", "-d", "2", "-p", "0.5", "-q", "--no-subdomains"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Crawl.Concurrency != 3 || cfg.Crawl.MaxDepth != 2 || cfg.Crawl.MaxPauseSeconds != 0.5 {
					t.Errorf("Crawl = %+v", cfg.Crawl)
				}
				if !cfg.Crawl.AllowQueries || cfg.Crawl.AllowSubdomains {
					t.Errorf("Crawl = %+v", cfg.Crawl)
				}
			},
		},
		{
			name: "覆盖抓取和输出参数",
			args: []string{"-s", "http://other:8050", "--mode", "DIRECT", "-o", "site", "--neo4j"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Fetch.Renderer != "http://other:8050" || cfg.Fetch.Mode != models.ModeDirect {
					t.Errorf("Fetch = %+v", cfg.Fetch)
				}
				if cfg.Output.Prefix != "site" || !cfg.Neo4j.Enabled {
					t.Errorf("Output = %+v, Neo4j = %+v", cfg.Output, cfg.Neo4j)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Crawl: models.DefaultCrawlConfig(),
				Fetch: models.DefaultFetchConfig(),
			}
			cfg.Crawl.Concurrency = 7
			cfg.Fetch.Renderer = "http://splash:8050"

			fs := newSaveFlags()
			if err := fs.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			if err := cfg.MergeCLIFlags(fs); err != nil {
				t.Fatal(err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Crawl: models.DefaultCrawlConfig(), Fetch: models.DefaultFetchConfig()}
	cfg.Neo4j.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("启用Neo4j但未配置uri时应返回错误")
	}

	cfg.Neo4j.Enabled = false
	cfg.Crawl.Concurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Error("并发数为0时应返回错误")
	}
}
