package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/RecoveryAshes/SiteGraph/internal/models"
	"github.com/rodaine/table"
	"github.com/schollz/progressbar/v3"
)

// TreeWalker 可按层级先序遍历的页面树
// level 0 为根节点
type TreeWalker interface {
	Walk(fn func(node models.PageNode, level int) bool)
}

var unsafePrefixChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// OutputPrefix 输出文件名前缀
// custom为空时由起始URL生成, 结尾追加时间戳避免覆盖
func OutputPrefix(custom, startURL string, now time.Time) string {
	prefix := custom
	if prefix == "" {
		prefix = unsafePrefixChars.ReplaceAllString(startURL, "_")
	}
	return prefix + now.Format("_06-01-02_15-04-05")
}

// Reporter 报告生成器
type Reporter struct {
	outputDir string
	console   io.Writer
}

// NewReporter 创建报告生成器, console为空时输出到os.Stdout
func NewReporter(outputDir string, console io.Writer) *Reporter {
	if console == nil {
		console = os.Stdout
	}
	return &Reporter{outputDir: outputDir, console: console}
}

// SaveReport 写入 {prefix}.json 和 {prefix}.txt, 返回两个文件路径
func (r *Reporter) SaveReport(prefix string, report *models.CrawlReport, tree TreeWalker) (string, string, error) {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	jsonPath := filepath.Join(r.outputDir, prefix+".json")
	data, err := report.ToJSON()
	if err != nil {
		return "", "", fmt.Errorf("序列化JSON失败: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return "", "", fmt.Errorf("写入图文件失败: %w", err)
	}
	Debugf("保存图文件: %s", jsonPath)

	txtPath := filepath.Join(r.outputDir, prefix+".txt")
	f, err := os.Create(txtPath)
	if err != nil {
		return jsonPath, "", fmt.Errorf("创建树形文件失败: %w", err)
	}
	defer f.Close()
	if err := WriteTree(f, tree); err != nil {
		return jsonPath, "", fmt.Errorf("写入树形文件失败: %w", err)
	}
	Debugf("保存树形文件: %s", txtPath)

	return jsonPath, txtPath, nil
}

// WriteTree 以制表符缩进写出页面树, 每行 "标题 (URL)"
// 根节点本身不输出, 第一层页面没有缩进
func WriteTree(w io.Writer, tree TreeWalker) error {
	bw := bufio.NewWriter(w)
	var writeErr error
	tree.Walk(func(node models.PageNode, level int) bool {
		if level == 0 {
			return true
		}
		_, writeErr = fmt.Fprintf(bw, "%s%s\n", strings.Repeat("\t", level-1), treeLabel(node))
		return writeErr == nil
	})
	if writeErr != nil {
		return writeErr
	}
	return bw.Flush()
}

func treeLabel(node models.PageNode) string {
	title := strings.Join(strings.Fields(node.Title), " ")
	if title == "" {
		return node.URL
	}
	return fmt.Sprintf("%s (%s)", title, node.URL)
}

// PrintSummary 输出爬取摘要和按类型统计的错误表
func (r *Reporter) PrintSummary(startURL string, stats models.CrawlStats, errs models.ErrorTally) {
	fmt.Fprintf(r.console, "在 %s 上发现 %d 个唯一链接\n", startURL, stats.LinksFound)
	fmt.Fprintf(r.console, "成功抓取 %d 个页面\n", stats.PagesCrawled)
	fmt.Fprintf(r.console, "耗时 %v\n", (time.Duration(stats.Duration * float64(time.Second))).Round(time.Millisecond))

	if errs.Total() == 0 {
		return
	}
	fmt.Fprintln(r.console, "错误:")
	tbl := table.New("类型", "次数").WithWriter(r.console)
	for _, kind := range errs.Kinds() {
		tbl.AddRow(kind, errs[kind])
	}
	tbl.Print()
}

// NewProgressBar 创建进度条, max为-1时显示为不定长度的计数器
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
