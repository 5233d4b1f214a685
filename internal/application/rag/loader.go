package rag

import (
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/olivia-docs/backend/internal/infrastructure/log"
)

// ExtractedPage 从文件中抽取的一页文本
// 非分页格式整个文件算一页
type ExtractedPage struct {
	Content string
	Page    int
}

// DocumentLoader 文档文本抽取器
// 按扩展名分派抽取方式，抽取失败或内容为空时逐级回退：
// PDF 空内容回退到通用抽取，未知扩展名先按文本再按通用抽取。
type DocumentLoader struct {
	logger *slog.Logger
}

// NewDocumentLoader 创建文档文本抽取器
func NewDocumentLoader() *DocumentLoader {
	return &DocumentLoader{
		logger: log.NewModuleLogger("rag", "loader"),
	}
}

// markupExtensions 走通用标记抽取的扩展名
var markupExtensions = map[string]bool{
	".md":   true,
	".rst":  true,
	".html": true,
	".htm":  true,
	".xml":  true,
}

// Load 抽取文件的全部文本页
func (l *DocumentLoader) Load(path string) ([]ExtractedPage, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("file not found: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return l.loadPDF(path)
	case ext == ".txt":
		return l.loadText(path)
	case markupExtensions[ext]:
		return l.loadGeneric(path)
	default:
		pages, err := l.loadText(path)
		if err != nil {
			l.logger.Warn("text extraction failed, falling back to generic extraction",
				"file", filepath.Base(path), "error", err)
			return l.loadGeneric(path)
		}
		return pages, nil
	}
}

// loadPDF 逐页抽取 PDF 文本
// 全部页面为空时按通用方式重试（扫描件或字体映射缺失的 PDF）
func (l *DocumentLoader) loadPDF(path string) ([]ExtractedPage, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	pages := make([]ExtractedPage, 0, totalPages)
	totalChars := 0
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			l.logger.Warn("failed to extract pdf page", "file", filepath.Base(path), "page", i, "error", err)
			continue
		}
		totalChars += len(text)
		pages = append(pages, ExtractedPage{Content: text, Page: i})
	}

	if totalChars == 0 {
		l.logger.Warn("pdf extraction returned empty content, trying generic extraction",
			"file", filepath.Base(path))
		return l.loadGeneric(path)
	}
	return pages, nil
}

// loadText 按 UTF-8 文本读取整个文件
func (l *DocumentLoader) loadText(path string) ([]ExtractedPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("file is not valid utf-8 text: %s", filepath.Base(path))
	}
	return []ExtractedPage{{Content: string(data), Page: 1}}, nil
}

// loadGeneric 通用抽取：读出内容后剥离标记，保留可读文本
func (l *DocumentLoader) loadGeneric(path string) ([]ExtractedPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	content := string(data)
	if strings.Contains(content, "<") {
		content = stripMarkup(content)
	}
	return []ExtractedPage{{Content: content, Page: 1}}, nil
}

// 标记剥离使用的预编译正则
var (
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	markupComment = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockClose    = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	blockOpen     = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	brTag         = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	anyTag        = regexp.MustCompile(`<[^>]+>`)
	multiSpace    = regexp.MustCompile(`[ \t]+`)
	multiNewline  = regexp.MustCompile(`\n{3,}`)
)

// stripMarkup 剥离 HTML/XML 标记并解码实体
// 块级标签换成换行以保留段落边界，供后续按段落分块
func stripMarkup(content string) string {
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = markupComment.ReplaceAllString(content, "")
	content = blockOpen.ReplaceAllString(content, "\n")
	content = blockClose.ReplaceAllString(content, "\n")
	content = brTag.ReplaceAllString(content, "\n")
	content = anyTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpace.ReplaceAllString(content, " ")
	content = multiNewline.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
