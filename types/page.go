/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

// DefaultPageSize is used when a page request carries no positive size.
const DefaultPageSize = 10

// Pageable describes which slice of a result set to load. Pages are 1-based.
type Pageable interface {
	IsPaged() bool
	GetPage() int
	GetPageSize() int
	GetOffset() int
	GetSort() Sort
}

// PageRequest is a paged Pageable with optional sorting.
type PageRequest struct {
	page     int
	pageSize int
	sort     Sort
}

var _ Pageable = (*PageRequest)(nil)

func (p *PageRequest) IsPaged() bool { return true }

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = DefaultPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetSort() Sort {
	return p.sort
}

// Next returns the request for the following page.
func (p *PageRequest) Next() *PageRequest {
	return NewPageRequest(p.GetPage()+1, p.GetPageSize(), p.sort)
}

// NewPageRequest constructs a PageRequest with sorting.
func NewPageRequest(page int, pageSize int, sort Sort) *PageRequest {
	return &PageRequest{page: page, pageSize: pageSize, sort: sort}
}

// NewDefaultPageRequest constructs an unsorted PageRequest.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, Unsorted())
}

type unpaged struct {
	sort Sort
}

// Unpaged returns a Pageable that loads everything, optionally sorted.
func Unpaged(sort Sort) Pageable { return unpaged{sort: sort} }

func (u unpaged) IsPaged() bool    { return false }
func (u unpaged) GetPage() int     { return 1 }
func (u unpaged) GetPageSize() int { return 0 }
func (u unpaged) GetOffset() int   { return 0 }
func (u unpaged) GetSort() Sort    { return u.sort }

// PageInfo is the page metadata without content.
type PageInfo struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// TotalPages returns the number of pages; an unpaged result is one page.
func (p PageInfo) TotalPages() int {
	if p.PageSize <= 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

func (p PageInfo) HasNext() bool { return p.Page < p.TotalPages() }

func (p PageInfo) HasPrevious() bool { return p.Page > 1 }

func (p PageInfo) IsFirst() bool { return !p.HasPrevious() }

func (p PageInfo) IsLast() bool { return !p.HasNext() }

// Page holds one page of results along with pagination metadata.
type Page[E any] struct {
	PageInfo
	Content []E `json:"content"`
}

func (p *Page[E]) NumberOfElements() int { return len(p.Content) }

// NewPage builds a page from content and a known total.
func NewPage[E any](content []E, pageable Pageable, total int) *Page[E] {
	if content == nil {
		content = make([]E, 0)
	}
	info := PageInfo{Page: 1, Total: total}
	if pageable != nil && pageable.IsPaged() {
		info.Page = pageable.GetPage()
		info.PageSize = pageable.GetPageSize()
	}
	return &Page[E]{PageInfo: info, Content: content}
}

// MapPage converts the content of a page keeping its metadata.
func MapPage[E, R any](p *Page[E], fn func(E) R) *Page[R] {
	content := make([]R, len(p.Content))
	for i, e := range p.Content {
		content[i] = fn(e)
	}
	return &Page[R]{PageInfo: p.PageInfo, Content: content}
}

// GetPage builds a page, calling total only when the total cannot be derived
// from the content and the pageable.
func GetPage[E any](content []E, pageable Pageable, total func() (int, error)) (*Page[E], error) {
	n, err := ResolveTotal(len(content), pageable, total)
	if err != nil {
		return nil, err
	}
	return NewPage(content, pageable, n), nil
}

// ResolveTotal returns the total number of elements for a page holding size
// elements. total is skipped when the pageable is unpaged, when the first
// page is not full, or when a later page is neither empty nor full.
func ResolveTotal(size int, pageable Pageable, total func() (int, error)) (int, error) {
	if pageable == nil || !pageable.IsPaged() {
		return size, nil
	}
	if pageable.GetOffset() == 0 {
		if pageable.GetPageSize() > size {
			return size, nil
		}
		return total()
	}
	if size != 0 && pageable.GetPageSize() > size {
		return pageable.GetOffset() + size, nil
	}
	return total()
}
