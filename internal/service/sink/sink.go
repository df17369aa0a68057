// Package sink 实现结果的双路输出
// JSONL 日志逐条追加并立即落盘；CSV 在内存中累积，任务结束时一次性写出
package sink

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ashwinyue/next-augment/internal/model"
)

// DualSink 并发安全的双路输出
// 同一把锁保护 JSONL 写入和内存累积，因此日志行数与表格行数始终一致
type DualSink struct {
	mu      sync.Mutex
	logFile *os.File
	csvPath string
	logPath string
	header  []string
	rows    [][]string
	closed  bool
}

// Open 以追加模式打开 JSONL 日志，目录不存在时创建
func Open(csvPath, logPath string) (*DualSink, error) {
	for _, dir := range []string{filepath.Dir(csvPath), filepath.Dir(logPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log sink: %w", err)
	}
	return &DualSink{logFile: f, csvPath: csvPath, logPath: logPath}, nil
}

// Append 写入一条记录
// 先编码再加锁写入，一条记录要么完整写入两路，要么都不写
func (s *DualSink) Append(rec model.Record) error {
	line, err := encodeLine(rec)
	if err != nil {
		return err
	}
	row, err := rec.CSVRow()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("sink is closed")
	}
	if _, err := s.logFile.Write(line); err != nil {
		return fmt.Errorf("failed to write log sink: %w", err)
	}
	if s.header == nil {
		s.header = rec.CSVHeader()
	}
	s.rows = append(s.rows, row)
	return nil
}

// Count 已写入的记录数
func (s *DualSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Paths 返回 (csv, jsonl) 路径
func (s *DualSink) Paths() (string, string) {
	return s.csvPath, s.logPath
}

// Close 关闭日志并写出 CSV
// CSV 先写入临时文件再重命名，读者不会看到写了一半的表格
func (s *DualSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	logErr := s.logFile.Close()
	csvErr := s.writeCSV()
	return errors.Join(logErr, csvErr)
}

func (s *DualSink) writeCSV() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.csvPath), ".tabular-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if s.header != nil {
		if err := w.Write(s.header); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write csv: %w", err)
		}
	}
	if err := w.WriteAll(s.rows); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.csvPath); err != nil {
		return fmt.Errorf("failed to publish csv: %w", err)
	}
	return nil
}

// encodeLine 编码为一行 JSON，不转义 HTML 字符，保留非 ASCII 原文
func encodeLine(rec model.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return buf.Bytes(), nil
}
