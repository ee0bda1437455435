package query

const (
	DefaultPage       = 1
	DefaultPageLength = 25
	MaxPageLength     = 1000
	DefaultSortBy     = "created_at"
)

// PagingModel is the paging part of an inbound search. Nil fields take the
// defaults.
type PagingModel struct {
	Page             *int   `json:"page,omitempty" yaml:"page,omitempty"`
	PageLength       *int   `json:"page_length,omitempty" yaml:"page_length,omitempty"`
	SortBy           string `json:"sort_by,omitempty" yaml:"sort_by,omitempty"`
	IsSortDescending *bool  `json:"is_sort_descending,omitempty" yaml:"is_sort_descending,omitempty"`
}

// ResultantPagingModel echoes the paging that was actually applied.
type ResultantPagingModel struct {
	Page             int    `json:"page" yaml:"page"`
	PageLength       int    `json:"page_length" yaml:"page_length"`
	SortBy           string `json:"sort_by" yaml:"sort_by"`
	IsSortDescending bool   `json:"is_sort_descending" yaml:"is_sort_descending"`
	TotalRecordCount int64  `json:"total_record_count" yaml:"total_record_count"`
}

// Offset is the number of records skipped before the page.
func (r ResultantPagingModel) Offset() int {
	return r.PageLength * (r.Page - 1)
}

// ItemList is the response shape of every list operation.
type ItemList[T any] struct {
	Items  []T                  `json:"items" yaml:"items"`
	Paging ResultantPagingModel `json:"paging" yaml:"paging"`
}

// Normalize applies defaults and bounds. defaultSort is used when SortBy is
// empty; an empty defaultSort means DefaultSortBy. A nil receiver is
// allowed.
func (p *PagingModel) Normalize(defaultSort string) ResultantPagingModel {
	if defaultSort == "" {
		defaultSort = DefaultSortBy
	}
	r := ResultantPagingModel{
		Page:       DefaultPage,
		PageLength: DefaultPageLength,
		SortBy:     defaultSort,
	}
	if p == nil {
		return r
	}

	if p.Page != nil && *p.Page >= 1 {
		r.Page = *p.Page
	}
	if p.PageLength != nil {
		r.PageLength = min(max(*p.PageLength, 1), MaxPageLength)
	}
	if p.SortBy != "" {
		r.SortBy = p.SortBy
	}
	if p.IsSortDescending != nil {
		r.IsSortDescending = *p.IsSortDescending
	}
	return r
}
