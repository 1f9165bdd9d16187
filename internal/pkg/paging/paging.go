package paging

import (
	"context"
	"errors"
	"fmt"
)

var ErrInvalidPageSize = errors.New("page size must be positive")

// Request selects a 1-based page of Size items.
type Request struct {
	Number int
	Size   int
}

// Normalize clamps Number to at least 1 and rejects non-positive sizes.
func (r Request) Normalize() (Request, error) {
	if r.Size <= 0 {
		return Request{}, fmt.Errorf("%w: %d", ErrInvalidPageSize, r.Size)
	}
	if r.Number < 1 {
		r.Number = 1
	}
	return r, nil
}

func (r Request) Offset() int {
	return (r.Number - 1) * r.Size
}

type Page[T any] struct {
	Items       []T
	CurrentPage int
	PageSize    int
	TotalCount  int
	TotalPages  int
}

// Sequence is a filtered, ordered source that can report its size before
// being sliced. Count and Slice must observe the same filter and order.
type Sequence[T any] interface {
	Count(ctx context.Context) (int, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

func TotalPages(totalCount, size int) int {
	if size <= 0 || totalCount <= 0 {
		return 0
	}
	return (totalCount + size - 1) / size
}

func Paginate[T any](ctx context.Context, seq Sequence[T], req Request) (Page[T], error) {
	req, err := req.Normalize()
	if err != nil {
		return Page[T]{}, err
	}

	total, err := seq.Count(ctx)
	if err != nil {
		return Page[T]{}, fmt.Errorf("count sequence: %w", err)
	}

	page := Page[T]{
		Items:       []T{},
		CurrentPage: req.Number,
		PageSize:    req.Size,
		TotalCount:  total,
		TotalPages:  TotalPages(total, req.Size),
	}
	if req.Offset() >= total {
		return page, nil
	}

	items, err := seq.Slice(ctx, req.Offset(), req.Size)
	if err != nil {
		return Page[T]{}, fmt.Errorf("slice sequence: %w", err)
	}
	if items != nil {
		page.Items = items
	}

	return page, nil
}

// FromSlice pages an already ordered in-memory slice.
func FromSlice[T any](items []T, req Request) (Page[T], error) {
	return Paginate[T](context.Background(), SliceSequence[T](items), req)
}

type SliceSequence[T any] []T

func (s SliceSequence[T]) Count(context.Context) (int, error) {
	return len(s), nil
}

func (s SliceSequence[T]) Slice(_ context.Context, offset, limit int) ([]T, error) {
	if offset < 0 || offset >= len(s) {
		return []T{}, nil
	}
	end := offset + limit
	if end > len(s) {
		end = len(s)
	}

	out := make([]T, end-offset)
	copy(out, s[offset:end])
	return out, nil
}
