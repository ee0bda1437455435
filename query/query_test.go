package query

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/samson-dev/samson-db/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int    { return &n }
func boolp(b bool) *bool { return &b }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		in     *PagingModel
		expect ResultantPagingModel
	}{
		{"nil", nil, ResultantPagingModel{Page: 1, PageLength: 25, SortBy: "created_at"}},
		{"zero page", &PagingModel{Page: intp(0)}, ResultantPagingModel{Page: 1, PageLength: 25, SortBy: "created_at"}},
		{"negative length", &PagingModel{PageLength: intp(-4)}, ResultantPagingModel{Page: 1, PageLength: 1, SortBy: "created_at"}},
		{"length capped", &PagingModel{PageLength: intp(5000)}, ResultantPagingModel{Page: 1, PageLength: 1000, SortBy: "created_at"}},
		{"explicit", &PagingModel{Page: intp(12), PageLength: intp(5), SortBy: "name", IsSortDescending: boolp(true)},
			ResultantPagingModel{Page: 12, PageLength: 5, SortBy: "name", IsSortDescending: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.in.Normalize(""))
		})
	}

	assert.Equal(t, "id", (&PagingModel{}).Normalize("id").SortBy)
	assert.Equal(t, 55, ResultantPagingModel{Page: 12, PageLength: 5}.Offset())
}

func TestItemListJSON(t *testing.T) {
	list := ItemList[Record]{
		Items:  []Record{{"id": "a"}},
		Paging: ResultantPagingModel{Page: 2, PageLength: 10, SortBy: "created_at", TotalRecordCount: 11},
	}

	out, err := json.Marshal(list)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"items": [{"id": "a"}],
		"paging": {"page": 2, "page_length": 10, "sort_by": "created_at", "is_sort_descending": false, "total_record_count": 11}
	}`, string(out))
}

func TestParseHydration(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, []string{}, ParseHydration(h))

	h.Set(HydrationHeader, "")
	assert.Equal(t, []string{}, ParseHydration(h))

	h.Set(HydrationHeader, "product,location")
	assert.Equal(t, []string{"product", "location"}, ParseHydration(h))

	h.Set(HydrationHeader, " product , ,product.vendor,product,")
	assert.Equal(t, []string{"product", "product.vendor"}, ParseHydration(h))

	h = http.Header{}
	h.Set("samson-hydration", "vendor")
	assert.Equal(t, RequestOperators{Hydration: []string{"vendor"}}, OperatorsFromHeaders(h))
}

func TestSetHydrationHeader(t *testing.T) {
	h := http.Header{}
	SetHydrationHeader(h, []string{"product", "product.vendor"})
	assert.Equal(t, "product,product.vendor", h.Get(HydrationHeader))
	assert.Equal(t, []string{"product", "product.vendor"}, ParseHydration(h))

	SetHydrationHeader(h, nil)
	assert.Empty(t, h.Values(HydrationHeader))
}

func TestHydrationPaths(t *testing.T) {
	hydration := []string{"product", "product.vendor", "product.vendor.retailer", "location"}

	assert.Equal(t, []string{"product", "location"}, HydrationRoots(hydration))
	assert.Equal(t, []string{"vendor", "vendor.retailer"}, SubHydration("product", hydration))
	assert.Empty(t, SubHydration("location", hydration))
	assert.Empty(t, SubHydration("prod", hydration))
}

func TestParseIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	ids, err := ParseIDs(a.String() + ", " + b.String())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)

	ids, err = ParseIDs("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	v1 := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	_, err = ParseIDs(a.String() + ",nope," + v1)
	var invalid *InvalidIDsError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, map[int]string{1: "nope", 2: v1}, invalid.Invalid)
	assert.Contains(t, err.Error(), `1: "nope"`)
}

func TestTerms_Postgres(t *testing.T) {
	b := NewBuilder(database.Postgres)
	where := b.Where([]Term{
		ExactMatch{Column: "name", Value: "Acme", IgnoreCase: true},
		Like{Column: "sku", Value: "AB", Mode: StartsWith},
		InList{Column: "id", Values: []any{"x", "y"}},
		Range{Column: "price", Min: 10, Max: 20},
		Range{Column: "created_at", Min: "2024-01-01"},
		Range{Column: "deleted_at"},
		ExactMatch{Column: "qty", Value: 3, IgnoreCase: true},
	})

	assert.Equal(t, ` WHERE (LOWER("name") = LOWER($1))`+
		` AND ("sku" ILIKE $2)`+
		` AND ("id" IN ($3, $4))`+
		` AND ("price" >= $5 AND "price" <= $6)`+
		` AND ("created_at" >= $7)`+
		` AND ("deleted_at" = "deleted_at" OR "deleted_at" IS NULL)`+
		` AND ("qty" = $8)`, where)
	assert.Equal(t, []any{"Acme", "AB%", "x", "y", 10, 20, "2024-01-01", 3}, b.Args())
}

func TestTerms_EdgeCases(t *testing.T) {
	b := NewBuilder(database.MySQL)

	assert.Equal(t, "`id` IN (NULL)", InList{Column: "id"}.SQL(b))
	assert.Equal(t, "`name` LIKE ?", Like{Column: "name", Value: "cme", CaseSensitive: true}.SQL(b))
	assert.Equal(t, "`name` LIKE ?", Like{Column: "name", Value: "me", Mode: EndsWith}.SQL(b))
	assert.Equal(t, "`price` <= ?", Range{Column: "price", Max: 5}.SQL(b))
	assert.Equal(t, []any{"%cme%", "%me", 5}, b.Args())
	assert.Empty(t, b.Where(nil))
}

func TestToInt64(t *testing.T) {
	for _, v := range []any{int64(7), int32(7), 7, uint64(7), "7", []byte("7")} {
		n, err := toInt64(v)
		require.NoError(t, err)
		assert.EqualValues(t, 7, n)
	}
	_, err := toInt64(errors.New("x"))
	assert.Error(t, err)
}
