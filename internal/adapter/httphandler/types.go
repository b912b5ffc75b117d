package httphandler

import "github.com/niksmo/prodmng/internal/core/domain"

type (
	Product struct {
		ID          domain.ID `json:"id"`
		Title       string    `json:"title"`
		Price       float64   `json:"price"`
		Description string    `json:"description"`
		Category    string    `json:"category"`
		Image       string    `json:"image"`
		Rating      *Rating   `json:"rating,omitempty"`
	}

	Rating struct {
		Rate  float64 `json:"rate"`
		Count int     `json:"count"`
	}
)

type ProductsResponse struct {
	Products      []Product `json:"products"`
	Total         int       `json:"total"`
	Shown         int       `json:"shown"`
	Degraded      bool      `json:"degraded"`
	Notice        string    `json:"notice,omitempty"`
	Categories    []string  `json:"categories"`
	ActiveFilters []string  `json:"active_filters"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

type MutationResponse struct {
	Product Product `json:"product"`
	Synced  bool    `json:"synced"`
	Message string  `json:"message"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func toDomain(p Product) domain.Product {
	dp := domain.Product{
		ID:          p.ID,
		Title:       p.Title,
		Price:       p.Price,
		Description: p.Description,
		Category:    p.Category,
		Image:       p.Image,
	}
	if p.Rating != nil {
		dp.Rating = &domain.Rating{Rate: p.Rating.Rate, Count: p.Rating.Count}
	}
	return dp
}

func fromDomain(dp domain.Product) Product {
	p := Product{
		ID:          dp.ID,
		Title:       dp.Title,
		Price:       dp.Price,
		Description: dp.Description,
		Category:    dp.Category,
		Image:       dp.Image,
	}
	if dp.Rating != nil {
		p.Rating = &Rating{Rate: dp.Rating.Rate, Count: dp.Rating.Count}
	}
	return p
}

func fromDomainList(dps []domain.Product) []Product {
	ps := make([]Product, len(dps))
	for i := range dps {
		ps[i] = fromDomain(dps[i])
	}
	return ps
}
