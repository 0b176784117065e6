// Package progress renders download progress. A writer is attached to the
// context with Open; without one every Progress is a silent no-op, which is
// what tests and non-interactive runs get.
package progress

import (
	"context"
	"io"
	"time"

	pb "github.com/schollz/progressbar/v3"
)

type pbKey struct{}

type pbVal struct {
	w io.Writer
}

// Open returns a context whose progress bars render to w.
func Open(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, pbKey{}, pbVal{w})
}

// Progress is an io.Writer that advances a byte-counting bar.
type Progress struct {
	bar *pb.ProgressBar
}

var _ io.WriteCloser = &Progress{}

// Bytes starts a byte bar. total -1 means the size is unknown and a
// spinner is shown instead.
func Bytes(ctx context.Context, total int64, desc string) *Progress {
	h, ok := ctx.Value(pbKey{}).(pbVal)
	if !ok || h.w == nil {
		return &Progress{}
	}

	bar := pb.NewOptions64(
		total,
		pb.OptionSetDescription(desc),
		pb.OptionSetWriter(h.w),
		pb.OptionSetWidth(20),
		pb.OptionThrottle(65*time.Millisecond),
		pb.OptionShowBytes(true),
		pb.OptionSpinnerType(14),
		pb.OptionClearOnFinish(),
	)
	_ = bar.RenderBlank()

	return &Progress{bar: bar}
}

func (p *Progress) Write(b []byte) (int, error) {
	if p.bar == nil {
		return len(b), nil
	}
	return p.bar.Write(b)
}

func (p *Progress) Close() error {
	if p.bar == nil {
		return nil
	}
	return p.bar.Finish()
}
