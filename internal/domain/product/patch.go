package product

import "github.com/shopspring/decimal"

// Patch carries a partial product update. Nil fields are left untouched, so
// zero values such as Status=false or Stock=0 are applied like any other.
type Patch struct {
	Title       *string
	Description *string
	Code        *string
	Price       *decimal.Decimal
	Status      *bool
	Stock       *int
	Category    *Category
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Code == nil &&
		p.Price == nil && p.Status == nil && p.Stock == nil && p.Category == nil
}

// Apply copies every present field onto dst.
func (p Patch) Apply(dst *Product) {
	if p.Title != nil {
		dst.Title = *p.Title
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.Code != nil {
		dst.Code = *p.Code
	}
	if p.Price != nil {
		dst.Price = *p.Price
	}
	if p.Status != nil {
		dst.Status = *p.Status
	}
	if p.Stock != nil {
		dst.Stock = *p.Stock
	}
	if p.Category != nil {
		dst.Category = *p.Category
	}
}

// PatchOf returns a patch that sets every field of p.
func PatchOf(p Product) Patch {
	return Patch{
		Title:       &p.Title,
		Description: &p.Description,
		Code:        &p.Code,
		Price:       &p.Price,
		Status:      &p.Status,
		Stock:       &p.Stock,
		Category:    &p.Category,
	}
}
