// Package dataset 读取并校验 JSON-Lines 输入数据集
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashwinyue/next-augment/internal/model"
)

const (
	// PreviewLines 上传时快速校验的行数
	PreviewLines = 50
	maxLineSize  = 16 * 1024 * 1024
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load 读取整个数据集到内存
// 任意一行不是合法 JSON 或缺少当前模式需要的字段时返回 *model.InputParseError
func Load(path string, mode model.Mode) ([]model.InputRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.InputParseError{Path: filepath.Base(path), Err: err}
	}
	defer f.Close()

	return Decode(f, filepath.Base(path), mode, 0)
}

// Preview 只校验前 PreviewLines 行，用于上传时的即时反馈
func Preview(r io.Reader, name string, mode model.Mode) error {
	_, err := Decode(r, name, mode, PreviewLines)
	return err
}

// Decode 逐行解析，limit > 0 时最多读取 limit 行
func Decode(r io.Reader, name string, mode model.Mode, limit int) ([]model.InputRow, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	var rows []model.InputRow
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if lineNo == 1 {
			line = bytes.TrimPrefix(line, utf8BOM)
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var row model.InputRow
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, &model.InputParseError{Path: name, Line: lineNo, Err: hint(err)}
		}
		if err := validateRow(row, mode); err != nil {
			return nil, &model.InputParseError{Path: name, Line: lineNo, Err: err}
		}
		rows = append(rows, row)

		if limit > 0 && len(rows) >= limit {
			return rows, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &model.InputParseError{Path: name, Line: lineNo + 1, Err: err}
	}
	if len(rows) == 0 {
		return nil, &model.InputParseError{Path: name, Err: errors.New("file contains no rows")}
	}
	return rows, nil
}

func validateRow(row model.InputRow, mode model.Mode) error {
	switch mode {
	case model.ModeSingleSFT, model.ModeMultiSFT:
		if strings.TrimSpace(row.Text) == "" {
			return errors.New(`missing field "text"`)
		}
	case model.ModeSingleAlign:
		if row.Context == "" {
			return errors.New(`missing field "context"`)
		}
		if row.Question == "" || row.Answer == "" {
			return errors.New(`missing field "question" or "answer"`)
		}
	case model.ModeMultiAlign:
		if row.Context == "" {
			return errors.New(`missing field "context"`)
		}
		if len(row.Conversation) == 0 {
			return errors.New(`missing field "conversation"`)
		}
		for i, pair := range row.Conversation {
			if pair.Question == "" || pair.Answer == "" {
				return fmt.Errorf("conversation turn %d needs both question and answer", i)
			}
		}
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	return nil
}

// hint 为常见的误传（CSV、日志行）补充提示
func hint(err error) error {
	return fmt.Errorf("%w (is this a CSV file, or does it start with a log line?)", err)
}
