package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/ProductFinder/internal/classifier"
	"github.com/RecoveryAshes/ProductFinder/internal/core"
	"github.com/RecoveryAshes/ProductFinder/internal/crawlers"
	"github.com/RecoveryAshes/ProductFinder/internal/models"
	"github.com/RecoveryAshes/ProductFinder/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string
	quiet      bool

	// 身份参数
	userAgents     []string
	validateConfig bool

	// 采集参数 (根命令与 harvest 共用)
	mode           string
	maxScrolls     int
	maxLinks       int
	gridMaxScrolls int
	scrollPause    float64
	maxRetries     int
	rotateEvery    int
	headless       bool

	// 批量参数
	targetURL      string
	urlFile        string
	outputFile     string
	reportDir      string
	concurrency    int
	classifierName string

	// harvest 子命令
	harvestOutput string
)

// appConfig 在 PersistentPreRunE 中加载并合并命令行参数
var appConfig *core.Config

// runID 本次运行的标识, 写入日志的 run 字段和报告文件名
var runID = models.NewRunID()

var rootCmd = &cobra.Command{
	Use:   "productfinder",
	Short: "电商站点商品详情页发现工具",
	Long: `ProductFinder - 在依赖 JavaScript 渲染的电商站点上发现商品详情页URL

流程:
  1. 用无头浏览器打开首页, 反复滚动并提取链接, 直到链接预算、滚动预算或连续无增长
  2. 由分类器(LLM 或离线规则)挑出商品列表页
  3. 对列表页重复采集
  4. 由分类器挑出商品详情页, 写出映射文件

示例:
  # 单个站点
  productfinder -u https://shop.example

  # 批量处理, 使用离线分类器
  productfinder -f sites.txt --classifier heuristic -o mapping.txt

  # 只采集一个页面的链接 (JSON)
  productfinder harvest https://shop.example/collections/all --max-scrolls 5

  # 验证配置
  productfinder --validate-config

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
		config.MergeCLIFlags(collectOverrides(cmd))

		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
			NoConsole:  quiet,
			RunID:      runID,
		}
		if verbose && logLevel == "" {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		if verbose {
			utils.Debugf("详细模式已启用")
		}

		appConfig = config
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateConfig {
			return runValidateConfig()
		}

		if targetURL == "" && urlFile == "" {
			return cmd.Help()
		}

		websites, err := resolveWebsites(targetURL, urlFile)
		if err != nil {
			return err
		}
		if err := ValidateFlags(targetURL, urlFile, appConfig); err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		pool, err := core.BuildIdentityPool(core.NewIdentityManager(appConfig.Identity.File, userAgents))
		if err != nil {
			return fmt.Errorf("构建身份池失败: %w", err)
		}

		cls, err := classifier.New(appConfig.Classifier)
		if err != nil {
			return fmt.Errorf("创建分类器失败: %w", err)
		}

		monitor := crawlers.NewResourceMonitor(appConfig.Resource.MonitorConfig())
		factory := func() crawlers.LinkSource {
			return crawlers.NewLinkSource(appConfig.Harvest, pool)
		}

		runner := core.NewBatchRunner(appConfig, factory, cls, monitor, !quiet && len(websites) > 1)
		summary := runner.Run(ctx, websites)

		reporter := utils.NewReporter(appConfig.Output.ReportDir)
		if err := reporter.WriteMappingFile(appConfig.Output.MappingFile, summary.Results); err != nil {
			return err
		}
		if _, err := reporter.GenerateReport(summary.Report(runID, appConfig.Harvest)); err != nil {
			utils.Error(err, "生成运行报告失败")
		}

		if ctx.Err() != nil {
			return fmt.Errorf("任务被中断, 已写出部分结果")
		}
		utils.Infof("✨ 任务完成!")
		return nil
	},
}

var harvestCmd = &cobra.Command{
	Use:   "harvest <url>",
	Short: "采集单个页面的全部链接并输出JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageURL, err := NormalizeURL(args[0])
		if err != nil {
			return fmt.Errorf("无效的URL: %w", err)
		}
		if err := ValidateFlags(pageURL, "", appConfig); err != nil {
			return err
		}

		pool, err := core.BuildIdentityPool(core.NewIdentityManager(appConfig.Identity.File, userAgents))
		if err != nil {
			return fmt.Errorf("构建身份池失败: %w", err)
		}

		source := crawlers.NewLinkSource(appConfig.Harvest, pool)
		links := source.Scrape(pageURL, appConfig.Harvest.LandingLimits())

		if harvestOutput != "" {
			return utils.NewReporter(appConfig.Output.ReportDir).SaveLinks(harvestOutput, links)
		}

		data, err := json.MarshalIndent(links, "", "  ")
		if err != nil {
			return fmt.Errorf("序列化结果失败: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ProductFinder %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// runValidateConfig 验证配置与身份池并输出摘要
func runValidateConfig() error {
	utils.Infof("🔍 验证配置...")

	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	im := core.NewIdentityManager(appConfig.Identity.File, userAgents)
	agents, err := im.UserAgents()
	if err != nil {
		return fmt.Errorf("身份配置验证失败: %w", err)
	}

	if _, err := classifier.New(appConfig.Classifier); err != nil {
		return fmt.Errorf("分类器配置验证失败: %w", err)
	}

	utils.Infof("✅ 配置验证通过!")
	utils.Infof("采集模式: %s, 首页预算: %s, 列表页预算: %s",
		appConfig.Harvest.Mode, appConfig.Harvest.LandingLimits(), appConfig.Harvest.GridLimits())
	utils.Infof("分类器: %s (%s), API Key: %s",
		appConfig.Classifier.Provider, appConfig.Classifier.Model, utils.RedactSecret(appConfig.Classifier.APIKey))
	utils.Infof("当前有效的 User-Agent (%d个):", len(agents))
	for i, ua := range agents {
		utils.Infof("  %d. %s", i+1, ua)
	}
	return nil
}

// collectOverrides 只收集用户显式设置的命令行参数
func collectOverrides(cmd *cobra.Command) core.CLIOverrides {
	flags := cmd.Flags()
	var o core.CLIOverrides

	if flags.Changed("mode") {
		o.Mode = &mode
	}
	if flags.Changed("headless") {
		o.Headless = &headless
	}
	if flags.Changed("scroll-pause") {
		o.ScrollPause = &scrollPause
	}
	if flags.Changed("max-retries") {
		o.MaxRetries = &maxRetries
	}
	if flags.Changed("rotate-every") {
		o.RotateEvery = &rotateEvery
	}
	if flags.Changed("max-scrolls") {
		o.MaxScrolls = &maxScrolls
	}
	if flags.Changed("max-links") {
		o.MaxLinks = &maxLinks
	}
	if flags.Changed("grid-max-scrolls") {
		o.GridMaxScrolls = &gridMaxScrolls
	}
	if flags.Changed("concurrency") {
		o.Concurrency = &concurrency
	}
	if flags.Changed("classifier") {
		o.Classifier = &classifierName
	}
	if !cmd.HasParent() && flags.Changed("output") {
		o.Output = &outputFile
	}
	if flags.Changed("report-dir") {
		o.ReportDir = &reportDir
	}
	if flags.Changed("log-level") {
		o.LogLevel = &logLevel
	}
	return o
}

// resolveWebsites 从 -u 或 -f 得到站点列表
func resolveWebsites(target, file string) ([]string, error) {
	if file != "" {
		urls, err := utils.ReadURLsFromFile(file)
		if err != nil {
			return nil, fmt.Errorf("读取URL文件失败: %w", err)
		}
		return urls, nil
	}

	normalized, err := NormalizeURL(target)
	if err != nil {
		return nil, fmt.Errorf("无效的目标URL: %w", err)
	}
	return []string{normalized}, nil
}

// signalContext 第一次 Ctrl+C 取消尚未开始的站点并写出已有结果, 第二次立即退出
func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		utils.Warnf("收到中断信号: %v, 正在处理进行中的站点后退出 (再次按下立即退出)", sig)
		cancel()

		if _, ok := <-sigChan; ok {
			utils.Warnf("强制退出")
			os.Exit(130)
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		close(sigChan)
		cancel()
	}
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "只写日志文件, 不输出到控制台")

	// 身份参数
	rootCmd.PersistentFlags().StringArrayVar(&userAgents, "user-agent", nil, "浏览器 User-Agent, 可多次指定, 覆盖配置文件中的身份池")
	rootCmd.Flags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	// 采集参数
	rootCmd.PersistentFlags().StringVarP(&mode, "mode", "m", "dynamic", "采集模式 (dynamic|static|all)")
	rootCmd.PersistentFlags().IntVar(&maxScrolls, "max-scrolls", 10, "首页最大滚动次数, 负数表示不限")
	rootCmd.PersistentFlags().IntVar(&maxLinks, "max-links", -1, "首页最大链接数, 负数表示不限")
	rootCmd.PersistentFlags().IntVar(&gridMaxScrolls, "grid-max-scrolls", 10, "列表页最大滚动次数, 负数表示不限")
	rootCmd.PersistentFlags().Float64Var(&scrollPause, "scroll-pause", 2, "每次滚动后等待渲染的秒数")
	rootCmd.PersistentFlags().IntVar(&maxRetries, "max-retries", 3, "连续无增长多少次后停止")
	rootCmd.PersistentFlags().IntVar(&rotateEvery, "rotate-every", 5, "每N次导航更换一次浏览器身份, 0 表示不更换")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "无头浏览器模式")

	// 批量参数
	rootCmd.Flags().StringVarP(&targetURL, "url", "u", "", "目标站点 (必需, 除非使用 --url-file)")
	rootCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "包含站点列表的文件路径")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "website_product_mapping.txt", "映射文件路径")
	rootCmd.Flags().StringVar(&reportDir, "report-dir", "output", "运行报告目录")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 2, "同时处理的站点数")
	rootCmd.Flags().StringVar(&classifierName, "classifier", "ollama", "链接分类器 (openai|ollama|nvidia|heuristic)")

	harvestCmd.Flags().StringVarP(&harvestOutput, "output", "o", "", "链接输出文件 (默认输出到标准输出)")

	rootCmd.AddCommand(harvestCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
