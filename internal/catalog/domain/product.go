// Package domain models the storefront catalog: products sold in variations
// (color and size), each with its own price, stock level and images.
package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// ValidationError names the first invalid field of a product payload.
// Nested fields use paths such as variations[0].images[1].url.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

const (
	maxNameLen        = 100
	maxDescriptionLen = 1000
	maxColorLen       = 50
	maxSizeLen        = 10
	maxImageURLLen    = 500
	maxAltTextLen     = 255
)

type Product struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Active      bool        `json:"active"`
	Variations  []Variation `json:"variations"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type Variation struct {
	ID     string          `json:"id"`
	Color  string          `json:"color"`
	Size   string          `json:"size"`
	Price  decimal.Decimal `json:"price"`
	Stock  int             `json:"stock"`
	Images []Image         `json:"images"`
}

type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText,omitempty"`
	Primary bool   `json:"primary"`
}

// ProductInput is the client-supplied shape of a product. Identifiers are
// always assigned by the service.
type ProductInput struct {
	Name        string
	Description string
	Variations  []VariationInput
}

type VariationInput struct {
	Color  string
	Size   string
	Price  decimal.Decimal
	Stock  int
	Images []Image
}

func (in ProductInput) Validate() error {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return &ValidationError{Field: "name", Message: "is mandatory"}
	case utf8.RuneCountInString(name) > maxNameLen:
		return &ValidationError{Field: "name", Message: fmt.Sprintf("must have at most %d characters", maxNameLen)}
	case utf8.RuneCountInString(in.Description) > maxDescriptionLen:
		return &ValidationError{Field: "description", Message: fmt.Sprintf("must have at most %d characters", maxDescriptionLen)}
	case len(in.Variations) == 0:
		return &ValidationError{Field: "variations", Message: "at least one variation is mandatory"}
	}
	for i, v := range in.Variations {
		if err := v.validate(fmt.Sprintf("variations[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func (v VariationInput) validate(path string) error {
	switch {
	case strings.TrimSpace(v.Color) == "":
		return &ValidationError{Field: path + ".color", Message: "is mandatory"}
	case utf8.RuneCountInString(v.Color) > maxColorLen:
		return &ValidationError{Field: path + ".color", Message: fmt.Sprintf("must have at most %d characters", maxColorLen)}
	case strings.TrimSpace(v.Size) == "":
		return &ValidationError{Field: path + ".size", Message: "is mandatory"}
	case utf8.RuneCountInString(v.Size) > maxSizeLen:
		return &ValidationError{Field: path + ".size", Message: fmt.Sprintf("must have at most %d characters", maxSizeLen)}
	case !v.Price.IsPositive():
		return &ValidationError{Field: path + ".price", Message: "must be positive"}
	case v.Stock < 0:
		return &ValidationError{Field: path + ".stock", Message: "must not be negative"}
	case len(v.Images) == 0:
		return &ValidationError{Field: path + ".images", Message: "at least one image is mandatory"}
	}
	for i, img := range v.Images {
		field := fmt.Sprintf("%s.images[%d]", path, i)
		if err := validateImageURL(img.URL); err != nil {
			return &ValidationError{Field: field + ".url", Message: err.Error()}
		}
		if utf8.RuneCountInString(img.AltText) > maxAltTextLen {
			return &ValidationError{Field: field + ".altText", Message: fmt.Sprintf("must have at most %d characters", maxAltTextLen)}
		}
	}
	return nil
}

func validateImageURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("is mandatory")
	}
	if len(raw) > maxImageURLLen {
		return fmt.Errorf("must have at most %d characters", maxImageURLLen)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("invalid image url")
	}
	return nil
}

// NewProduct builds an active product from validated input. newID is called
// once for the product and once per variation.
func NewProduct(in ProductInput, newID func() string, now time.Time) Product {
	now = now.UTC()
	return Product{
		ID:          newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Active:      true,
		Variations:  buildVariations(in.Variations, newID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Replace overwrites the product's content. Variations are rebuilt with new
// identifiers; ID, Active and CreatedAt are kept.
func (p *Product) Replace(in ProductInput, newID func() string, now time.Time) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Variations = buildVariations(in.Variations, newID)
	p.UpdatedAt = now.UTC()
}

// Variation returns the variation with the given id.
func (p Product) Variation(id string) (Variation, bool) {
	for _, v := range p.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

// TotalStock sums the stock of all variations.
func (p Product) TotalStock() int {
	total := 0
	for _, v := range p.Variations {
		total += v.Stock
	}
	return total
}

func buildVariations(in []VariationInput, newID func() string) []Variation {
	out := make([]Variation, 0, len(in))
	for _, v := range in {
		images := make([]Image, len(v.Images))
		copy(images, v.Images)
		out = append(out, Variation{
			ID:     newID(),
			Color:  strings.TrimSpace(v.Color),
			Size:   strings.TrimSpace(v.Size),
			Price:  v.Price,
			Stock:  v.Stock,
			Images: images,
		})
	}
	return out
}

// Page is one slice of the catalog listing. Page numbers start at zero.
type Page struct {
	Items      []Product `json:"items"`
	Page       int       `json:"page"`
	Size       int       `json:"size"`
	TotalItems int64     `json:"totalItems"`
	TotalPages int       `json:"totalPages"`
}

func NewPage(items []Product, page, size int, total int64) Page {
	if items == nil {
		items = []Product{}
	}
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Page{Items: items, Page: page, Size: size, TotalItems: total, TotalPages: pages}
}
