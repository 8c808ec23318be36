// Package progress renders counting progress bars for long file walks.
package progress

import (
	"context"
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Bar counts processed items. The zero value and a nil *Bar are no-ops.
type Bar struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

// New returns a bar rendering to w. A nil w disables rendering.
func New(ctx context.Context, w io.Writer, name string, total int) *Bar {
	if w == nil {
		return &Bar{}
	}
	p := mpb.NewWithContext(ctx, mpb.WithOutput(w), mpb.WithWidth(64), mpb.WithAutoRefresh())
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(name+": "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.Name(" "),
			decor.AverageETA(decor.ET_STYLE_GO),
		),
	)
	return &Bar{p: p, bar: bar}
}

// Increment is safe for concurrent use.
func (b *Bar) Increment() {
	if b == nil || b.bar == nil {
		return
	}
	b.bar.Increment()
}

// Wait flushes the bar. A bar that did not reach its total is aborted
// so Wait never blocks on early returns.
func (b *Bar) Wait() {
	if b == nil || b.p == nil {
		return
	}
	if !b.bar.Completed() {
		b.bar.Abort(false)
	}
	b.p.Wait()
}
