package wb

import (
	"context"
	"iter"
)

// offsetPages yields every item of an offset-paginated listing. It stops
// after the first page shorter than limit, or at the first error.
func offsetPages[T any](
	ctx context.Context,
	limit int,
	fetch func(ctx context.Context, limit, offset int) ([]T, error),
) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		offset := 0
		for {
			if err := ctx.Err(); err != nil {
				var zero T
				yield(zero, err)
				return
			}
			page, err := fetch(ctx, limit, offset)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range page {
				if !yield(item, nil) {
					return
				}
			}
			if len(page) < limit {
				return
			}
			offset += limit
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
