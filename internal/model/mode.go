// Package model 定义数据增强任务的核心数据模型
package model

import (
	"fmt"
	"strings"
)

// Mode 生成模式
type Mode string

const (
	ModeSingleSFT   Mode = "single-sft"   // 单轮 SFT
	ModeMultiSFT    Mode = "multi-sft"    // 多轮 SFT
	ModeSingleAlign Mode = "single-align" // 单轮对齐
	ModeMultiAlign  Mode = "multi-align"  // 多轮对齐
)

// AllModes 全部模式，顺序即 UI 展示顺序
var AllModes = []Mode{ModeSingleSFT, ModeMultiSFT, ModeSingleAlign, ModeMultiAlign}

// ParseMode 解析模式字符串
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.TrimSpace(s))
	for _, known := range AllModes {
		if m == known {
			return m, nil
		}
	}
	names := make([]string, len(AllModes))
	for i, known := range AllModes {
		names[i] = string(known)
	}
	return "", &ConfigError{
		Field:  "mode",
		Reason: fmt.Sprintf("%q is not one of %s", s, strings.Join(names, ", ")),
	}
}

// Tag 输出文件名中使用的模式标签
func (m Mode) Tag() string {
	return strings.ReplaceAll(string(m), "-", "_")
}

// IsAlignment 是否为偏好对齐模式
func (m Mode) IsAlignment() bool {
	return m == ModeSingleAlign || m == ModeMultiAlign
}

// Label 展示名称
func (m Mode) Label() string {
	switch m {
	case ModeSingleSFT:
		return "Single-turn SFT"
	case ModeMultiSFT:
		return "Multi-turn SFT"
	case ModeSingleAlign:
		return "Single-turn Alignment"
	case ModeMultiAlign:
		return "Multi-turn Alignment"
	}
	return string(m)
}
