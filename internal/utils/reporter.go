package utils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/ProductFinder/internal/models"
	"github.com/schollz/progressbar/v3"
)

// Reporter 输出映射文件、链接清单和运行报告
type Reporter struct {
	outputDir string
}

// NewReporter 创建报告生成器, outputDir 为报告目录
func NewReporter(outputDir string) *Reporter {
	return &Reporter{
		outputDir: outputDir,
	}
}

// WriteMapping 写出站点到商品URL的映射
// 格式: 每个站点一行, 其后每个商品一行 "  - <url>", 站点之间空一行; 不做转义
func WriteMapping(w io.Writer, results []models.WebsiteResult) error {
	bw := bufio.NewWriter(w)
	for _, res := range results {
		if _, err := fmt.Fprintf(bw, "%s\n", res.Website); err != nil {
			return err
		}
		for _, product := range res.Products {
			if _, err := fmt.Fprintf(bw, "  - %s\n", product); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteMappingFile 写出映射文件, 已存在则覆盖
func (r *Reporter) WriteMappingFile(path string, results []models.WebsiteResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建映射文件失败: %w", err)
	}
	defer f.Close()

	if err := WriteMapping(f, results); err != nil {
		return fmt.Errorf("写入映射文件失败: %w", err)
	}

	Infof("✅ 映射文件已生成: %s (%d 个站点)", path, len(results))
	return nil
}

// SaveLinks 以排序后的JSON数组保存链接集合
func (r *Reporter) SaveLinks(path string, links models.LinkSet) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if links == nil {
		links = models.NewLinkSet()
	}
	if err := writeJSON(path, links); err != nil {
		return err
	}
	Infof("✅ 已保存 %d 个链接: %s", links.Len(), path)
	return nil
}

// GenerateReport 在报告目录下生成 run_<id>.json, 返回文件路径
func (r *Reporter) GenerateReport(report *models.RunReport) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	path := filepath.Join(r.outputDir, fmt.Sprintf("run_%s.json", report.RunID))
	if err := writeJSON(path, report); err != nil {
		return "", err
	}

	Infof("✅ 报告已生成: %s", path)
	return path, nil
}

// writeJSON 保存JSON文件
func writeJSON(path string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("写入文件失败: %w", err)
	}

	Debugf("保存JSON: %s", path)
	return nil
}

// NewProgressBar 创建进度条, 输出到 stderr 以免混入标准输出
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
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
