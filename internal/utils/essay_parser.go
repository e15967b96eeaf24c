// Package utils 提供文稿解析等辅助功能
package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"socratic_bot/internal/models"
)

// DefaultEssayWords 默认提取的文稿开头词数
const DefaultEssayWords = 500

// ExtractFirstNWords 提取PDF文稿开头的前N个词
func ExtractFirstNWords(path string, nWords int) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("打开PDF文件失败: %v", err)
	}
	defer f.Close()

	words := make([]string, 0, nWords)
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("提取第%d页文本失败: %v", pageNum, err)
		}

		for _, word := range strings.Fields(text) {
			if len(words) >= nWords {
				return strings.Join(words, " "), nil
			}
			words = append(words, word)
		}
	}

	return strings.Join(words, " "), nil
}

// ExtractMetadata 提取PDF文稿的元数据
func ExtractMetadata(path string) (models.EssayMetadata, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return models.EssayMetadata{}, fmt.Errorf("打开PDF文件失败: %v", err)
	}
	defer f.Close()

	metadata := models.EssayMetadata{
		Title:  "Unknown",
		Author: "Unknown",
		Pages:  reader.NumPage(),
	}

	info := reader.Trailer().Key("Info")
	if !info.IsNull() {
		if title := info.Key("Title"); title.Kind() == pdf.String && title.Text() != "" {
			metadata.Title = title.Text()
		}
		if author := info.Key("Author"); author.Kind() == pdf.String && author.Text() != "" {
			metadata.Author = author.Text()
		}
	}

	return metadata, nil
}

// ExtractTextFile 提取纯文本文稿开头的前N个词
func ExtractTextFile(path string, nWords int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("读取文本文件失败: %v", err)
	}

	words := strings.Fields(string(data))
	if len(words) > nWords {
		words = words[:nWords]
	}
	return strings.Join(words, " "), nil
}
