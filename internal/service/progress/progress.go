// Package progress 提供任务进度条
package progress

import (
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Bar 单个任务的进度条
type Bar struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

// New 创建写入 w 的进度条，w 为 nil 时丢弃输出
func New(w io.Writer, name string, total int) *Bar {
	if w == nil {
		w = io.Discard
	}
	p := mpb.New(mpb.WithOutput(w), mpb.WithWidth(40))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(name+" "),
			decor.CountersNoUnit("%d/%d", decor.WCSyncSpace),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done!"),
		),
	)
	return &Bar{p: p, bar: bar}
}

// Writer 写入的内容在下次刷新时打印到进度条上方，Wait 之后不可再用
func (b *Bar) Writer() io.Writer {
	return b.p
}

// Increment 完成一项
func (b *Bar) Increment() {
	b.bar.Increment()
}

// Wait 结束进度条并等待最后一次渲染
// 提前结束时（总数未达到）也会把进度条标记为完成
func (b *Bar) Wait() {
	if !b.bar.Completed() {
		b.bar.SetTotal(-1, true)
	}
	b.p.Wait()
}
