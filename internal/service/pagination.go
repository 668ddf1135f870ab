package service

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Paging defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest is a normalized offset page.
type PageRequest struct {
	Page     int
	PageSize int
}

// ParsePageRequest reads raw query values. Missing, non-numeric or
// non-positive values fall back to the defaults; pageSize is capped.
func ParsePageRequest(page, pageSize string) PageRequest {
	return NewPageRequest(parsePositive(page, DefaultPage), parsePositive(pageSize, DefaultPageSize))
}

// NewPageRequest normalizes numeric page values.
func NewPageRequest(page, pageSize int) PageRequest {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return PageRequest{Page: page, PageSize: pageSize}
}

// Offset returns the row offset of the page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is one page of rows plus the total row count.
type Page[T any] struct {
	Data     []T   `json:"data"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

func parsePositive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// fetchPage runs the page query and the count query concurrently.
// scope must build a fresh statement on every call.
func fetchPage[T any](ctx context.Context, scope func() *gorm.DB, order string, req PageRequest) (Page[T], error) {
	var (
		rows  []T
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scope().WithContext(gctx).Order(order).Limit(req.PageSize).Offset(req.Offset()).Find(&rows).Error
	})
	g.Go(func() error {
		return scope().WithContext(gctx).Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return Page[T]{}, err
	}
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{Data: rows, Total: total, Page: req.Page, PageSize: req.PageSize}, nil
}
