package http

import (
	"github.com/shopspring/decimal"

	"github.com/meninadourada/storefront/internal/catalog/domain"
)

type productRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Variations  []variationRequest `json:"variations"`
}

type variationRequest struct {
	Color  string          `json:"color"`
	Size   string          `json:"size"`
	Price  decimal.Decimal `json:"price"`
	Stock  int             `json:"stock"`
	Images []imageRequest  `json:"images"`
}

type imageRequest struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
	Primary bool   `json:"primary"`
}

func (r productRequest) toInput() domain.ProductInput {
	in := domain.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Variations:  make([]domain.VariationInput, 0, len(r.Variations)),
	}
	for _, v := range r.Variations {
		images := make([]domain.Image, 0, len(v.Images))
		for _, img := range v.Images {
			images = append(images, domain.Image{URL: img.URL, AltText: img.AltText, Primary: img.Primary})
		}
		in.Variations = append(in.Variations, domain.VariationInput{
			Color:  v.Color,
			Size:   v.Size,
			Price:  v.Price,
			Stock:  v.Stock,
			Images: images,
		})
	}
	return in
}

type deleteAllResponse struct {
	Deleted int64 `json:"deleted"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
