package domain

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() ProductInput {
	return ProductInput{
		Name:        "Colar Lua",
		Description: "Banhado a ouro",
		Variations: []VariationInput{{
			Color:  "Dourado",
			Size:   "U",
			Price:  decimal.RequireFromString("89.90"),
			Stock:  4,
			Images: []Image{{URL: "https://cdn.example.com/colar.jpg", AltText: "Colar", Primary: true}},
		}},
	}
}

func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestProductInputValidate(t *testing.T) {
	require.NoError(t, validInput().Validate())

	zeroStock := validInput()
	zeroStock.Variations[0].Stock = 0
	require.NoError(t, zeroStock.Validate())

	cases := map[string]struct {
		mutate func(*ProductInput)
		field  string
	}{
		"blank name":       {func(in *ProductInput) { in.Name = "  " }, "name"},
		"long name":        {func(in *ProductInput) { in.Name = strings.Repeat("a", 101) }, "name"},
		"long description": {func(in *ProductInput) { in.Description = strings.Repeat("a", 1001) }, "description"},
		"no variations":    {func(in *ProductInput) { in.Variations = nil }, "variations"},
		"blank color":      {func(in *ProductInput) { in.Variations[0].Color = "" }, "variations[0].color"},
		"long color":       {func(in *ProductInput) { in.Variations[0].Color = strings.Repeat("c", 51) }, "variations[0].color"},
		"blank size":       {func(in *ProductInput) { in.Variations[0].Size = "" }, "variations[0].size"},
		"long size":        {func(in *ProductInput) { in.Variations[0].Size = "EXTRA-LARGE" }, "variations[0].size"},
		"zero price":       {func(in *ProductInput) { in.Variations[0].Price = decimal.Zero }, "variations[0].price"},
		"negative stock":   {func(in *ProductInput) { in.Variations[0].Stock = -1 }, "variations[0].stock"},
		"no images":        {func(in *ProductInput) { in.Variations[0].Images = nil }, "variations[0].images"},
		"blank url":        {func(in *ProductInput) { in.Variations[0].Images[0].URL = "" }, "variations[0].images[0].url"},
		"relative url":     {func(in *ProductInput) { in.Variations[0].Images[0].URL = "/img/a.jpg" }, "variations[0].images[0].url"},
		"ftp url":          {func(in *ProductInput) { in.Variations[0].Images[0].URL = "ftp://cdn/a.jpg" }, "variations[0].images[0].url"},
		"long alt text":    {func(in *ProductInput) { in.Variations[0].Images[0].AltText = strings.Repeat("x", 256) }, "variations[0].images[0].altText"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			err := in.Validate()
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestNewProductAssignsIdentifiers(t *testing.T) {
	in := validInput()
	in.Name = "  Colar Lua "
	in.Variations = append(in.Variations, VariationInput{
		Color: "Prata", Size: "U", Price: decimal.RequireFromString("79.90"), Stock: 2,
		Images: []Image{{URL: "https://cdn.example.com/prata.jpg"}},
	})
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.FixedZone("BRT", -3*3600))

	p := NewProduct(in, sequence(), now)
	assert.Equal(t, "id-1", p.ID)
	assert.Equal(t, "Colar Lua", p.Name)
	assert.True(t, p.Active)
	require.Len(t, p.Variations, 2)
	assert.Equal(t, "id-2", p.Variations[0].ID)
	assert.Equal(t, "id-3", p.Variations[1].ID)
	assert.Equal(t, 6, p.TotalStock())
	assert.Equal(t, time.UTC, p.CreatedAt.Location())

	v, ok := p.Variation("id-3")
	require.True(t, ok)
	assert.Equal(t, "Prata", v.Color)
	_, ok = p.Variation("missing")
	assert.False(t, ok)
}

func TestReplaceKeepsIdentity(t *testing.T) {
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	next := sequence()
	p := NewProduct(validInput(), next, created)
	p.Active = false

	in := validInput()
	in.Name = "Colar Sol"
	in.Variations[0].Stock = 10
	p.Replace(in, next, created.Add(time.Hour))

	assert.Equal(t, "id-1", p.ID)
	assert.Equal(t, "Colar Sol", p.Name)
	assert.False(t, p.Active)
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, created.Add(time.Hour), p.UpdatedAt)
	require.Len(t, p.Variations, 1)
	assert.Equal(t, "id-3", p.Variations[0].ID)
	assert.Equal(t, 10, p.Variations[0].Stock)
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		total int64
		size  int
		pages int
	}{
		{0, 6, 0},
		{6, 6, 1},
		{7, 6, 2},
		{13, 6, 3},
	}
	for _, tt := range tests {
		p := NewPage(nil, 0, tt.size, tt.total)
		assert.Equal(t, tt.pages, p.TotalPages, "total=%d size=%d", tt.total, tt.size)
		assert.NotNil(t, p.Items)
	}
}
