package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/shirou/gopsutil/v3/mem"
)

func main() {
	fmt.Println("==============================================")
	fmt.Println("  ImgFIndcrack 环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	allOK := true

	goVersion := runtime.Version()
	fmt.Printf("✅ Go版本: %s\n", goVersion)
	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// 渲染阶段依赖本机Chromium,缺失时只能静态提取
	if bin, found := launcher.LookPath(); found {
		fmt.Printf("✅ 浏览器: %s\n", bin)
		if version := getCommandOutput(bin, "--version"); version != "" {
			fmt.Printf("   版本: %s\n", version)
		}
	} else {
		fmt.Println("⚠️  未找到Chrome/Chromium - 渲染阶段将不可用,提取会退化为纯静态")
		fmt.Println("   可以在配置中设置 browser.bin 指定浏览器路径")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Printf("✅ 内存: 可用 %d MB / 总计 %d MB\n", vm.Available/1024/1024, vm.Total/1024/1024)
		if vm.Available < 1024*1024*1024 {
			fmt.Println("⚠️  可用内存不足1GB,建议降低 batch.concurrency 和 browser.max_sessions")
		}
	} else {
		fmt.Printf("⚠️  无法读取内存信息: %v\n", err)
	}

	fmt.Println()
	fmt.Println("检查Go模块依赖...")
	if _, err := os.Stat("go.mod"); err == nil {
		fmt.Println("✅ go.mod文件存在")

		fmt.Println("正在下载依赖...")
		if err := exec.Command("go", "mod", "download").Run(); err != nil {
			fmt.Printf("❌ go mod download失败: %v\n", err)
			allOK = false
		} else {
			fmt.Println("✅ 依赖下载完成")
		}
	} else {
		fmt.Println("❌ go.mod文件不存在")
		allOK = false
	}

	fmt.Println()
	fmt.Println("检查项目结构...")
	requiredDirs := []string{
		"cmd/imgfindcrack",
		"internal/api",
		"internal/collab",
		"internal/config",
		"internal/core",
		"internal/crawlers",
		"internal/imgurl",
		"internal/models",
		"internal/utils",
		"configs",
	}

	for _, dir := range requiredDirs {
		if _, err := os.Stat(dir); err == nil {
			fmt.Printf("✅ %s/\n", dir)
		} else {
			fmt.Printf("❌ %s/ 不存在\n", dir)
			allOK = false
		}
	}

	fmt.Println()
	fmt.Println("==============================================")
	if allOK {
		fmt.Println("✅ 环境验证通过!")
		fmt.Println()
		fmt.Println("下一步:")
		fmt.Println("  1. 运行 'go build ./cmd/imgfindcrack' 构建项目")
		fmt.Println("  2. 运行 './imgfindcrack --help' 查看帮助")
		os.Exit(0)
	}
	fmt.Println("❌ 环境验证失败,请解决上述问题。")
	os.Exit(1)
}

// getCommandOutput 获取命令输出
func getCommandOutput(name string, args ...string) string {
	output, err := exec.Command(name, args...).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}
