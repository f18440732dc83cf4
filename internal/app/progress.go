package app

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gosuri/uiprogress"

	"github.com/heartmarshall/myenglish-deckgen/internal/app/deckgen"
)

// progressBar renders pipeline progress as kibibytes of input read.
// The bar is created on the first update, when the input size is known.
type progressBar struct {
	mu    sync.Mutex
	bar   *uiprogress.Bar
	lines atomic.Int64
}

func newProgressBar() *progressBar {
	return &progressBar{}
}

// Update is passed to deckgen.WithProgress.
func (p *progressBar) Update(pr deckgen.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		uiprogress.Start()
		p.bar = uiprogress.AddBar(kib(pr.TotalBytes) + 1)
		p.bar.AppendCompleted()
		p.bar.PrependElapsed()
		p.bar.AppendFunc(func(*uiprogress.Bar) string {
			return fmt.Sprintf("%d lines", p.lines.Load())
		})
	}
	p.lines.Store(int64(pr.Lines))
	_ = p.bar.Set(kib(pr.Bytes))
}

// Stop stops rendering if the bar was ever shown.
func (p *progressBar) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		_ = p.bar.Set(p.bar.Total)
		uiprogress.Stop()
	}
}

func kib(n int64) int {
	return int(n / 1024)
}
