package imagesource

import (
	"context"
	"image"

	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/easel/scene"
)

// Batch buffers remote images resolved ahead of their paint step. Results are
// addressed by element index, so fetch completion order never affects the
// order in which the caller consumes them.
type Batch struct {
	slots     map[int]*slot
	group     errgroup.Group
	cancel    context.CancelFunc
	scheduled chan struct{}
}

type slot struct {
	done chan struct{}
	img  image.Image
	err  error
}

// Prefetch starts resolving every remote image in elements, at most limit at
// a time. Inline sources are left to the paint step. The returned Batch must
// be closed; Close cancels outstanding fetches and waits for them to exit.
func (r *Resolver) Prefetch(ctx context.Context, elements []scene.Element, limit int) *Batch {
	ctx, cancel := context.WithCancel(ctx)
	b := &Batch{slots: map[int]*slot{}, cancel: cancel, scheduled: make(chan struct{})}
	if limit > 0 {
		b.group.SetLimit(limit)
	}
	type job struct {
		slot *slot
		src  *scene.RemoteSource
	}
	var jobs []job
	for i, el := range elements {
		img, ok := el.(*scene.Image)
		if !ok {
			continue
		}
		src, ok := img.Source.(*scene.RemoteSource)
		if !ok {
			continue
		}
		s := &slot{done: make(chan struct{})}
		b.slots[i] = s
		jobs = append(jobs, job{slot: s, src: src})
	}

	// Go blocks once the limit is reached, so scheduling runs off the
	// caller's goroutine and painting can start with the first result.
	go func() {
		defer close(b.scheduled)
		for _, j := range jobs {
			b.group.Go(func() error {
				defer close(j.slot.done)
				if err := ctx.Err(); err != nil {
					j.slot.err = err
					return nil
				}
				j.slot.img, j.slot.err = r.Resolve(ctx, j.src)
				return nil
			})
		}
	}()
	return b
}

// Has reports whether element i was scheduled for prefetching.
func (b *Batch) Has(i int) bool {
	if b == nil {
		return false
	}
	_, ok := b.slots[i]
	return ok
}

// Wait blocks until element i has been resolved or ctx is done.
func (b *Batch) Wait(ctx context.Context, i int) (image.Image, error) {
	if b == nil {
		return nil, nil
	}
	s, ok := b.slots[i]
	if !ok {
		return nil, nil
	}
	select {
	case <-s.done:
		return s.img, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close cancels pending fetches and waits for all workers to return.
func (b *Batch) Close() {
	if b == nil {
		return
	}
	b.cancel()
	<-b.scheduled
	b.group.Wait()
}
