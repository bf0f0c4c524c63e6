package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/SiteGraph/internal/core"
	"github.com/RecoveryAshes/SiteGraph/internal/crawlers"
	"github.com/RecoveryAshes/SiteGraph/internal/graphdb"
	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/RecoveryAshes/SiteGraph/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile     string
	verbose        bool
	validateConfig bool

	// HTTP头部参数
	headers    []string
	headerFile string

	// 批量处理参数
	urlFile         string
	batchDelay      int
	continueOnError bool
)

// appConfig 在PersistentPreRunE中加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "sitegraph",
	Short: "网站页面图爬取工具",
	Long: `SiteGraph - 网站页面结构爬取工具

从起始URL出发,并发抓取同站页面,构建以父子链接为边的页面树:
  • 通过Splash渲染服务、直连或本地无头浏览器抓取页面
  • 子域名、查询参数、扩展名和深度范围控制
  • 按错误类型统计抓取失败
  • 输出node-link JSON和制表符缩进的链接树
  • 可选导出到Neo4j

示例:
  sitegraph save https://example.com -s http://localhost:8050
  sitegraph save https://example.com --mode direct -d 3 -c 10 -p 1
  sitegraph save --url-file sites.txt
  sitegraph tree output/https___example_com_24-01-01_12-00-00.json

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		// 命令行参数优先于配置文件
		if err := config.MergeCLIFlags(cmd.Flags()); err != nil {
			return err
		}
		appConfig = config

		if err := utils.InitLogger(config.LogConfig()); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		if verbose {
			utils.Info("详细模式已启用")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !validateConfig {
			return cmd.Help()
		}

		utils.Info("🔍 验证配置...")
		if err := appConfig.Validate(); err != nil {
			return fmt.Errorf("配置验证失败: %w", err)
		}
		headerManager, err := core.NewHeaderManager(appConfig.Fetch.Headers, headerFile, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}
		if _, err := headerManager.GetHeaders(); err != nil {
			return fmt.Errorf("HTTP头部验证失败: %w", err)
		}

		safeHeaders := headerManager.GetSafeHeaders()
		utils.Info("✅ 配置验证通过!")
		utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
		for name, value := range safeHeaders {
			utils.Infof("  %s: %s", name, value)
		}
		return nil
	},
}

var saveCmd = &cobra.Command{
	Use:   "save [url]",
	Short: "爬取站点并保存页面图",
	Long: `爬取站点并保存页面图

成功时在输出目录写入:
  {prefix}.json  node-link格式的页面图
  {prefix}.txt   制表符缩进的链接树`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		startURL := ""
		if len(args) == 1 {
			startURL = args[0]
		}
		if err := ValidateSaveArgs(startURL, urlFile, batchDelay); err != nil {
			return err
		}
		if err := appConfig.Validate(); err != nil {
			return err
		}

		// Ctrl+C 取消爬取
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		headerManager, err := core.NewHeaderManager(appConfig.Fetch.Headers, headerFile, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		opts := []core.CrawlerOption{core.WithConsole(cmd.OutOrStdout())}
		if appConfig.Neo4j.Enabled {
			driver, err := graphdb.Connect(ctx, appConfig.Neo4j.URI, appConfig.Neo4j.User, appConfig.Neo4j.Password)
			if err != nil {
				return err
			}
			exporter := graphdb.NewExporter(driver, appConfig.Neo4j.Database)
			defer func() {
				if err := exporter.Close(context.Background()); err != nil {
					utils.Warnf("关闭Neo4j连接失败: %v", err)
				}
			}()
			opts = append(opts, core.WithExporter(exporter))
		}
		crawler := core.NewCrawler(appConfig, headerManager, opts...)

		if urlFile != "" {
			urls, err := utils.ReadURLsFromFile(urlFile)
			if err != nil {
				return err
			}
			batch := core.NewBatchCrawler(crawler, time.Duration(batchDelay)*time.Second, continueOnError)
			if _, err := batch.CrawlBatch(ctx, urlFile, urls); err != nil {
				return err
			}
			utils.Info("✨ 批量爬取任务完成!")
			return nil
		}

		if _, err := crawler.Crawl(ctx, startURL); err != nil {
			return fmt.Errorf("爬取失败: %w", err)
		}
		utils.Info("✨ 爬取任务完成!")
		return nil
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree <graph.json>",
	Short: "以链接树形式显示已保存的页面图",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("读取图文件失败: %w", err)
		}
		var report models.CrawlReport
		if err := report.FromJSON(data); err != nil {
			return err
		}
		graph, err := crawlers.NewSiteGraph(report.Nodes, report.Links)
		if err != nil {
			return fmt.Errorf("重建页面图失败: %w", err)
		}
		return utils.WriteTree(cmd.OutOrStdout(), graph)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "SiteGraph %s\n", Version)
		fmt.Fprintf(cmd.OutOrStdout(), "构建时间: %s\n", BuildTime)
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().String("log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().StringVar(&headerFile, "header-file", "", "YAML格式的HTTP头部文件")
	rootCmd.Flags().BoolVar(&validateConfig, "validate-config", false, "验证配置和HTTP头部")

	// 爬取参数, 未显式指定时使用配置文件的值
	saveCmd.Flags().StringP("splash", "s", "", "Splash服务地址 (默认 http://localhost:8051)")
	saveCmd.Flags().String("mode", "", "抓取方式 (splash|direct|browser)")
	saveCmd.Flags().Bool("subdomains", true, "包含子域名, 如 mail.example.com")
	saveCmd.Flags().Bool("no-subdomains", false, "只爬取起始主机")
	saveCmd.Flags().BoolP("queries", "q", false, "保留URL中的查询参数")
	saveCmd.Flags().IntP("depth", "d", 0, "最大爬取深度, 0 表示不限")
	saveCmd.Flags().IntP("concurrency", "c", 5, "最大并发请求数")
	saveCmd.Flags().Float64P("max-pause", "p", 10.0, "每个worker两次请求之间的最大暂停(秒)")
	saveCmd.Flags().StringP("output-prefix", "o", "", "输出文件名前缀 (默认由URL生成)")
	saveCmd.Flags().String("output-dir", "", "输出目录 (默认 output)")
	saveCmd.Flags().Bool("neo4j", false, "爬取完成后导出到Neo4j")
	saveCmd.MarkFlagsMutuallyExclusive("subdomains", "no-subdomains")

	// 批量处理参数
	saveCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "包含起始URL列表的文件")
	saveCmd.Flags().IntVar(&batchDelay, "batch-delay", 0, "批量处理站点间延迟(秒)")
	saveCmd.Flags().BoolVar(&continueOnError, "continue-on-error", true, "某个站点失败时继续处理")

	rootCmd.AddCommand(saveCmd, treeCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
