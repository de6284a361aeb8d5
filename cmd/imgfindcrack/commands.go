package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/ImgFIndcrack/internal/api"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/core"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/crawlers"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/models"
	"github.com/RecoveryAshes/ImgFIndcrack/internal/utils"
	"github.com/spf13/cobra"
)

// 子命令参数
var (
	pageURL    string
	mode       string
	jsonOutput bool
	noBrowser  bool

	imageURL   string
	referer    string
	outputFile string

	urlFile     string
	concurrency int
	resume      bool
	outputDir   string

	listenAddr string
)

// extractOutput --json输出格式
type extractOutput struct {
	*models.ExtractResult
	Stats *models.ScrapeStats `json:"stats,omitempty"`
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "提取单个页面的商品图片",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ValidateExtractFlags(pageURL, mode); err != nil {
			return err
		}
		if err := appConfig.MergeCLIFlags(mode, 0, "", noBrowser); err != nil {
			return err
		}

		monitor := newMonitor()
		defer monitor.StopMonitoring()

		scraper := core.NewScraperFromConfig(appConfig, headerManager, monitor)
		utils.Debugf("提取阶段: %s", strings.Join(scraper.Stages(), " → "))

		result, stats, err := scraper.Scrape(cmd.Context(), pageURL)
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(extractOutput{ExtractResult: result, Stats: stats})
		}

		for i, img := range result.Images {
			fmt.Printf("%2d. %s\n", i+1, img)
		}
		utils.Infof("🖼️  找到%d张图片,返回%d张 (耗时%.2f秒)", result.TotalFound, len(result.Images), stats.Duration)
		if stats.Escalated {
			utils.Infof("🌐 已升级: %s", stats.EscalationReason)
		}
		return nil
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "抓取单张图片",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ValidateFetchFlags(imageURL, referer); err != nil {
			return err
		}

		fetcher := crawlers.NewImageFetcher(appConfig.Fetch, headerManager)
		img, err := fetcher.Fetch(cmd.Context(), imageURL, referer)
		if err != nil {
			return err
		}

		if outputFile == "" {
			fmt.Printf("类型: %s\n", img.ContentType)
			fmt.Printf("大小: %d 字节\n", img.ByteSize)
			if img.Width > 0 {
				fmt.Printf("尺寸: %dx%d\n", img.Width, img.Height)
			}
			return nil
		}

		path := outputPath(outputFile, img)
		data, err := img.Bytes()
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("写入图片失败: %w", err)
		}
		utils.Infof("✅ 已保存: %s (%s, %d字节)", path, img.ContentType, img.ByteSize)
		return nil
	},
}

// outputPath -o指向目录时按内容类型生成文件名
func outputPath(target string, img *models.FetchedImage) string {
	if info, err := os.Stat(target); (err == nil && info.IsDir()) || strings.HasSuffix(target, string(os.PathSeparator)) {
		return filepath.Join(target, "image"+img.Extension())
	}
	return target
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "批量提取URL文件中的页面",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ValidateBatchFlags(urlFile, concurrency, mode); err != nil {
			return err
		}
		if err := appConfig.MergeCLIFlags(mode, concurrency, "", noBrowser); err != nil {
			return err
		}
		if outputDir != "" {
			appConfig.Batch.OutputDir = outputDir
		}

		urls, err := utils.ReadURLsFromFile(urlFile)
		if err != nil {
			return fmt.Errorf("读取URL文件失败: %w", err)
		}

		monitor := newMonitor()
		defer monitor.StopMonitoring()

		scraper := core.NewScraperFromConfig(appConfig, headerManager, monitor)
		runner := core.NewBatchRunner(scraper, appConfig.Batch, appConfig.Scrape, monitor)

		report, runErr := runner.Run(cmd.Context(), urlFile, urls, resume)
		if report != nil {
			reporter := utils.NewReporter(appConfig.Batch.OutputDir)
			if path, err := reporter.GenerateReport(report); err != nil {
				utils.Warnf("生成报告失败: %v", err)
			} else {
				utils.Infof("📄 报告已保存: %s", path)
			}
			utils.PrintSummary(report)
		}
		if runErr != nil {
			return fmt.Errorf("批量提取中断: %w", runErr)
		}

		utils.Info("✨ 批量提取完成!")
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP API服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appConfig.MergeCLIFlags("", 0, listenAddr, noBrowser); err != nil {
			return err
		}

		monitor := newMonitor()
		defer monitor.StopMonitoring()

		scraper := core.NewScraperFromConfig(appConfig, headerManager, monitor)
		fetcher := crawlers.NewImageFetcher(appConfig.Fetch, headerManager)

		server := api.NewServer(appConfig.Server, scraper, fetcher, monitor)
		return server.Run(cmd.Context())
	},
}

func init() {
	extractCmd.Flags().StringVarP(&pageURL, "url", "u", "", "商品页面URL (必需)")
	extractCmd.Flags().StringVarP(&mode, "mode", "m", "", "提取模式 (all|static|dynamic),默认使用配置")
	extractCmd.Flags().BoolVar(&jsonOutput, "json", false, "以JSON格式输出结果和统计")
	extractCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "禁用浏览器渲染阶段")
	_ = extractCmd.MarkFlagRequired("url")

	fetchCmd.Flags().StringVarP(&imageURL, "image", "i", "", "图片URL或data: URI (必需)")
	fetchCmd.Flags().StringVarP(&referer, "referer", "r", "", "来源页面URL")
	fetchCmd.Flags().StringVarP(&outputFile, "output", "o", "", "保存路径,为空时只打印摘要")
	_ = fetchCmd.MarkFlagRequired("image")

	batchCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "包含URL列表的文件路径 (必需)")
	batchCmd.Flags().StringVarP(&mode, "mode", "m", "", "提取模式 (all|static|dynamic),默认使用配置")
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "并发页面数,默认使用配置")
	batchCmd.Flags().BoolVar(&resume, "resume", false, "从检查点恢复")
	batchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "输出目录,默认使用配置")
	batchCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "禁用浏览器渲染阶段")
	_ = batchCmd.MarkFlagRequired("url-file")

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "监听地址,默认使用配置 (如 :8080)")
	serveCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "禁用浏览器渲染阶段")
}
