// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package progress estimates how far a checkpoint is through its context's ordered item sequence.
package progress

import (
	"context"

	"github.com/ManuGH/resumer/internal/checkpoint"
	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/ManuGH/resumer/internal/metrics"
	"github.com/ManuGH/resumer/internal/player"
)

// DefaultPageSize is the number of items requested per catalog page.
const DefaultPageSize = 100

// Result is the outcome of one estimate. Percent is meaningless when Found is false.
type Result struct {
	Percent  int
	Found    bool
	Position int
	Total    int
}

// Estimator walks the item sequence of a context through the catalog.
type Estimator struct {
	catalog  player.Catalog
	pageSize int
}

// New returns an estimator. A non-positive pageSize selects DefaultPageSize.
func New(catalog player.Catalog, pageSize int) *Estimator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Estimator{catalog: catalog, pageSize: pageSize}
}

// Percent returns floor(i*100/n); zero for an empty sequence.
func Percent(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	return i * 100 / n
}

// Estimate fetches every page of the sequence and locates cp.ItemURI in it.
// The whole sequence is consumed because the percentage needs its length.
// Catalog failures are logged and reported as Found=false.
func (e *Estimator) Estimate(ctx context.Context, contextURI string, cp checkpoint.Checkpoint) Result {
	logger := xglog.WithComponentFromContext(ctx, "progress")

	position := -1
	total := 0
	offset := 0
	for {
		page, err := e.catalog.ListItems(ctx, contextURI, offset, e.pageSize)
		if err != nil {
			metrics.RecordProgressEstimate("fetch_error")
			logger.Warn().
				Err(err).
				Str(xglog.FieldEvent, "progress.fetch_failed").
				Str(xglog.FieldContextURI, contextURI).
				Int("offset", offset).
				Msg("could not fetch context items")
			return Result{}
		}
		for _, item := range page.Items {
			if position < 0 && item.URI == cp.ItemURI {
				position = total
			}
			total++
		}
		offset += len(page.Items)
		if !page.HasMore || len(page.Items) == 0 {
			break
		}
	}

	if position < 0 {
		metrics.RecordProgressEstimate("not_found")
		logger.Debug().
			Str(xglog.FieldEvent, "progress.item_missing").
			Str(xglog.FieldContextURI, contextURI).
			Str(xglog.FieldItemURI, cp.ItemURI).
			Int("total", total).
			Msg("checkpoint item not in context")
		return Result{Total: total}
	}

	metrics.RecordProgressEstimate("found")
	return Result{
		Percent:  Percent(position, total),
		Found:    true,
		Position: position,
		Total:    total,
	}
}
