package product

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) PageRequest {
	t.Helper()
	q, err := url.ParseQuery(raw)
	require.NoError(t, err)
	req, err := ParsePageRequest(q)
	require.NoError(t, err)
	return req
}

func TestParsePageRequest_Defaults(t *testing.T) {
	req := mustParse(t, "")

	assert.Equal(t, ModeOffset, req.Mode)
	assert.Equal(t, DefaultLimit, req.Limit)
	assert.Equal(t, 0, req.Offset)
	assert.Equal(t, 1, req.Page)
	assert.False(t, req.Filtered())
}

func TestParsePageRequest_PageMode(t *testing.T) {
	req := mustParse(t, "page=3&limit=5&offset=99")

	assert.Equal(t, ModePage, req.Mode)
	assert.Equal(t, 3, req.Page)
	assert.Equal(t, 0, req.Offset, "offset is ignored in page mode")
	assert.Equal(t, 10, req.Start())
}

func TestParsePageRequest_FilterAndSort(t *testing.T) {
	req := mustParse(t, "category=retro&sort=DESC")

	assert.Equal(t, CategoryRetro, req.Category)
	assert.Equal(t, SortDesc, req.Sort)
	assert.True(t, req.Filtered())
}

func TestParsePageRequest_Errors(t *testing.T) {
	_, err := ParsePageRequest(url.Values{"category": {"pelotas"}})
	require.ErrorIs(t, err, ErrUnknownCategory)

	_, err = ParsePageRequest(url.Values{"sort": {"up"}})
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "sort", qerr.Param)
	assert.Equal(t, "Invalid sort query", qerr.Error())
}

func TestPageRequest_Check(t *testing.T) {
	tests := []struct {
		name  string
		query string
		total int
		param string
	}{
		{"valid offset", "limit=2&offset=4", 5, ""},
		{"empty collection skips checks", "limit=abc&offset=-3", 0, ""},
		{"malformed limit", "limit=abc", 5, "limit"},
		{"malformed offset", "offset=x", 5, "offset"},
		{"zero limit", "limit=0", 5, "limit"},
		{"limit above max", "limit=21", 50, "limit"},
		{"negative offset", "offset=-1", 5, "offset"},
		{"offset past end", "offset=5", 5, "offset"},
		{"valid last page", "page=3&limit=2", 5, ""},
		{"page past end", "page=4&limit=2", 5, "page"},
		{"page zero", "page=0", 5, "page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mustParse(t, tt.query).Check(tt.total)
			if tt.param == "" {
				require.NoError(t, err)
				return
			}
			var qerr *QueryError
			require.ErrorAs(t, err, &qerr)
			assert.Equal(t, tt.param, qerr.Param)
		})
	}
}

func TestPage_OffsetLinks(t *testing.T) {
	base := url.URL{Scheme: "http", Host: "localhost:8080", Path: "/api/products"}

	first := &Page{Request: mustParse(t, "limit=1&offset=0"), Total: 2}
	assert.False(t, first.HasPrevious())
	assert.True(t, first.HasNext())
	assert.Empty(t, first.PreviousLink(base))
	assert.Equal(t, "http://localhost:8080/api/products?limit=1&offset=1", first.NextLink(base))

	last := &Page{Request: mustParse(t, "limit=1&offset=1"), Total: 2}
	assert.True(t, last.HasPrevious())
	assert.False(t, last.HasNext())
	assert.Equal(t, "http://localhost:8080/api/products?limit=1&offset=0", last.PreviousLink(base))
	assert.Empty(t, last.NextLink(base))
}

func TestPage_PageModeLinks(t *testing.T) {
	base := url.URL{Scheme: "https", Host: "shop.example", Path: "/api/products"}
	p := &Page{Request: mustParse(t, "page=2&limit=1&category=retro&sort=desc"), Total: 3}

	assert.Equal(t, 3, p.TotalPages())
	assert.Equal(t, "https://shop.example/api/products?category=retro&limit=1&page=1&sort=desc", p.PreviousLink(base))
	assert.Equal(t, "https://shop.example/api/products?category=retro&limit=1&page=3&sort=desc", p.NextLink(base))
}

func TestPage_Empty(t *testing.T) {
	base := url.URL{Scheme: "http", Host: "x", Path: "/api/products"}
	for _, raw := range []string{"", "limit=-5", "page=-3", "page=4&limit=2", "offset=50"} {
		t.Run(raw, func(t *testing.T) {
			req := mustParse(t, raw)
			require.NoError(t, req.Check(0))

			p := &Page{Request: req, Total: 0}
			assert.Equal(t, 1, p.TotalPages())
			assert.False(t, p.HasPrevious())
			assert.False(t, p.HasNext())
			assert.Empty(t, p.NextLink(base))
			assert.Empty(t, p.PreviousLink(base))
		})
	}
}
