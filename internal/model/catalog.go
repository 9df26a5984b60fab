package model

import "github.com/shopspring/decimal"

// CatalogProduct is one result from the third-party sneaker catalog. It is
// only used to prefill the add/edit forms and is never stored.
type CatalogProduct struct {
	Title        string          `json:"title"`
	Brand        string          `json:"brand"`
	ModelNo      string          `json:"model_no"`
	Nickname     string          `json:"nickname"`
	Image        string          `json:"image"`
	Colorway     string          `json:"colorway"`
	ReleaseDate  string          `json:"release_date"`
	LowestPrice  decimal.Decimal `json:"lowest_price"`
	HighestPrice decimal.Decimal `json:"highest_price"`
}

// Prefill returns the form values a selected product supplies.
// The title falls back to the nickname when the catalog has no title.
func (p CatalogProduct) Prefill() NewSneaker {
	ns := NewSneaker{
		Brand: p.Brand,
		Title: p.Title,
	}
	if ns.Title == "" {
		ns.Title = p.Nickname
	}
	if p.Image != "" {
		img := p.Image
		ns.Image = &img
	}
	return ns
}

// Model returns the model number, or the nickname when there is none.
func (p CatalogProduct) Model() string {
	if p.ModelNo != "" {
		return p.ModelNo
	}
	return p.Nickname
}

// HasPrice reports whether the catalog returned a price range.
func (p CatalogProduct) HasPrice() bool {
	return p.LowestPrice.IsPositive()
}
