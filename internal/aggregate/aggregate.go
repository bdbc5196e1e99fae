// Package aggregate fans out to the data gateways, applies the heuristic
// classifiers and assembles the context objects handed to the text generator.
//
// Every data source is fetched in its own branch. A branch never fails the
// group: its error is captured in a fetchResult and the builder unwraps it
// to an empty list, so one unavailable source cannot affect its siblings.
package aggregate

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"meetprep/internal/models"
)

// fetchResult is the outcome of one data-source fetch, either a value or the
// error that prevented it.
type fetchResult[T any] struct {
	items []T
	err   error
}

func fetch[T any](ctx context.Context, fn func(context.Context) ([]T, error)) fetchResult[T] {
	items, err := fn(ctx)
	return fetchResult[T]{items: items, err: err}
}

// orEmpty returns the fetched items, or nil after logging the failure.
func (r fetchResult[T]) orEmpty(logger *slog.Logger, source string) []T {
	if r.err != nil {
		logger.Warn("Data source unavailable, continuing without it", "source", source, "error", r.err)
		return nil
	}
	return r.items
}

// join runs every branch concurrently and waits for all of them. Branches
// report their own outcome through captured fetchResults.
func join(ctx context.Context, branches ...func(context.Context)) {
	g, gctx := errgroup.WithContext(ctx)
	for _, branch := range branches {
		g.Go(func() error {
			branch(gctx)
			return nil
		})
	}
	_ = g.Wait()
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

const hydrateConcurrency = 5

// hydrate fetches up to limit messages by id, keeping the search order. A
// message that cannot be fetched is skipped.
func hydrate(ctx context.Context, logger *slog.Logger, ids []string, limit int, get func(context.Context, string) (models.EmailMessage, error)) []models.EmailMessage {
	if len(ids) > limit {
		ids = ids[:limit]
	}
	msgs := make([]models.EmailMessage, len(ids))
	fetched := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			msg, err := get(gctx, id)
			if err != nil {
				logger.Debug("Skipping message that could not be fetched", "id", id, "error", err)
				return nil
			}
			msgs[i], fetched[i] = msg, true
			return nil
		})
	}
	_ = g.Wait()

	out := msgs[:0]
	for i := range msgs {
		if fetched[i] {
			out = append(out, msgs[i])
		}
	}
	return out
}
