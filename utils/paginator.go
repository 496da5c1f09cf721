package utils

import (
	"strconv"
	"strings"
)

// Source is an ordered collection that can be counted and sliced.
type Source[T any] interface {
	Count() (int64, error)
	Slice(offset, limit int) ([]T, error)
}

// Page is one fixed-size window over a Source.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Number      int   `json:"number"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
	// StartIndex and EndIndex are 1-based positions of the first and last item; both 0 on an empty page.
	StartIndex int64 `json:"start_index"`
	EndIndex   int64 `json:"end_index"`
}

// PageNumber parses a raw page parameter. Missing, malformed or non-positive values mean page 1.
func PageNumber(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Paginate returns the requested page of src. Pages past the end are clamped to the last page.
func Paginate[T any](src Source[T], perPage int, pageParam string) (Page[T], error) {
	if perPage < 1 {
		perPage = 1
	}
	total, err := src.Count()
	if err != nil {
		return Page[T]{}, err
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	number := PageNumber(pageParam)
	if totalPages > 0 && number > totalPages {
		number = totalPages
	}
	if totalPages == 0 {
		number = 1
	}

	page := Page[T]{
		Items:       []T{},
		Number:      number,
		PerPage:     perPage,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     number < totalPages,
		HasPrevious: number > 1,
	}
	if total == 0 {
		return page, nil
	}

	offset := (number - 1) * perPage
	items, err := src.Slice(offset, perPage)
	if err != nil {
		return Page[T]{}, err
	}
	if items != nil {
		page.Items = items
	}
	page.StartIndex = int64(offset) + 1
	page.EndIndex = int64(offset) + int64(len(items))
	return page, nil
}

// SliceSource adapts an in-memory slice to Source.
type SliceSource[T any] []T

func (s SliceSource[T]) Count() (int64, error) { return int64(len(s)), nil }

func (s SliceSource[T]) Slice(offset, limit int) ([]T, error) {
	if offset >= len(s) {
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

// MapPage converts the items of p with f, keeping the page metadata.
func MapPage[T, U any](p Page[T], f func(T) U) Page[U] {
	items := make([]U, len(p.Items))
	for i, item := range p.Items {
		items[i] = f(item)
	}
	return Page[U]{
		Items:       items,
		Number:      p.Number,
		PerPage:     p.PerPage,
		Total:       p.Total,
		TotalPages:  p.TotalPages,
		HasNext:     p.HasNext,
		HasPrevious: p.HasPrevious,
		StartIndex:  p.StartIndex,
		EndIndex:    p.EndIndex,
	}
}
