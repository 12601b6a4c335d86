package pipeline

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome of one job in RenderAll.
type BatchItem struct {
	Input  RenderInput
	Result *Result
	Err    error
}

// RenderAll renders inputs concurrently, at most limit at a time. One failed job does not stop the others.
// Items are returned in input order.
func (p *Pipeline) RenderAll(ctx context.Context, inputs []RenderInput, limit int) []BatchItem {
	items := make([]BatchItem, len(inputs))
	g, gCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, in := range inputs {
		if in.JobID == "" {
			in.JobID = uuid.NewString()
		}
		items[i].Input = in
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Result, items[i].Err = p.Render(gCtx, in)
			return nil
		})
	}
	_ = g.Wait()
	return items
}
