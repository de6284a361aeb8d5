package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/core"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/crawlers"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 全局参数
var (
	configFile     string
	verbose        bool
	logLevel       string
	headers        []string // 自定义HTTP请求头
	validateConfig bool     // 验证配置文件
)

// PersistentPreRunE中初始化,供子命令使用
var (
	appConfig     *core.Config
	headerManager *core.HeaderManager
)

var rootCmd = &cobra.Command{
	Use:   "imgfindcrack",
	Short: "商品图片URL提取工具",
	Long: `ImgFIndcrack - 商品页面图片URL提取工具

从商品页面中找出主商品图片,支持:
  • 静态解析 (og/twitter元标签、JSON-LD、懒加载属性、srcset、内联脚本)
  • 候选不足或检测到客户端渲染时升级到无头浏览器
  • 自动升级到原图分辨率,过滤logo、图标等装饰图片
  • 单张图片抓取,区分"不是图片"和"无法访问"
  • 批量提取、断点续跑和HTTP API

示例:
  imgfindcrack extract -u https://shop.example.com/item/123
  imgfindcrack fetch -i https://cdn.example.com/a.jpg -r https://shop.example.com -o a.jpg
  imgfindcrack batch -f urls.txt --concurrency 4 --resume
  imgfindcrack serve --addr :8080

  # 自定义头部
  imgfindcrack extract -u https://shop.example.com -H "Cookie: session=abc"

  # 验证配置文件
  imgfindcrack --validate-config

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

		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}
		// 命令行参数覆盖配置文件
		if verbose {
			logConfig.Level = "debug"
		}
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		hm, err := core.NewHeaderManager("", headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		appConfig = config
		headerManager = hm
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateConfig {
			return runValidateConfig()
		}
		return cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	// 不需要加载配置
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ImgFIndcrack %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// runValidateConfig 验证头部配置并打印脱敏后的结果
func runValidateConfig() error {
	utils.Info("🔍 验证HTTP头部配置...")
	if err := headerManager.LoadConfig(); err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if err := headerManager.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	safeHeaders := headerManager.GetSafeHeaders()
	utils.Info("✅ 配置验证通过!")
	utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
	for name, value := range safeHeaders {
		utils.Infof("  %s: %s", name, value)
	}
	return nil
}

// newMonitor 创建资源监控器,未启用时返回nil
func newMonitor() *crawlers.ResourceMonitor {
	if !appConfig.Resource.Enabled || !appConfig.Browser.Enabled {
		return nil
	}
	monitor := crawlers.NewResourceMonitor(crawlers.NewResourceMonitorConfig(appConfig.Resource))
	monitor.StartMonitoring(5 * time.Second)
	return monitor
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	rootCmd.AddCommand(extractCmd, fetchCmd, batchCmd, serveCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
