package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/go-rod/rod/lib/launcher"
)

func main() {
	renderer := flag.String("splash", models.DefaultFetchConfig().Renderer, "Splash服务地址")
	flag.Parse()

	fmt.Println("==============================================")
	fmt.Println("  SiteGraph 运行环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	allOK := true

	goVersion := runtime.Version()
	fmt.Printf("✅ Go版本: %s\n", goVersion)
	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// splash 模式依赖的渲染服务
	if err := pingSplash(*renderer); err != nil {
		fmt.Printf("⚠️  Splash不可用 (%s): %v\n", *renderer, err)
		fmt.Println("   启动方法: docker run -p 8051:8050 scrapinghub/splash")
	} else {
		fmt.Printf("✅ Splash可用: %s\n", *renderer)
	}

	// browser 模式依赖本地Chromium
	if path, found := launcher.LookPath(); found {
		fmt.Printf("✅ 浏览器: %s\n", path)
	} else {
		fmt.Println("⚠️  未找到本地Chromium - browser模式首次运行时会自动下载")
	}

	fmt.Println()
	fmt.Println("检查项目结构...")
	requiredDirs := []string{
		"cmd/sitegraph",
		"internal/core",
		"internal/crawlers",
		"internal/fetchers",
		"internal/graphdb",
		"internal/utils",
		"internal/models",
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
		fmt.Println("  1. 运行 'go build ./cmd/sitegraph' 构建项目")
		fmt.Println("  2. 运行 './sitegraph --help' 查看帮助")
		os.Exit(0)
	}
	fmt.Println("❌ 环境验证失败,请解决上述问题。")
	os.Exit(1)
}

// pingSplash 请求Splash的 _ping 接口
func pingSplash(renderer string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimRight(renderer, "/") + "/_ping")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
