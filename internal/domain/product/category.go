package product

import (
	"strings"

	"github.com/go-faster/errors"
)

// ErrUnknownCategory is returned when a category filter resolves to nothing.
var ErrUnknownCategory = errors.New("category not found")

// Category is one of the fixed catalog sections.
type Category string

const (
	CategoryHome        Category = "Camisetas locales"
	CategoryAway        Category = "Camisetas visitantes"
	CategoryAlternative Category = "Camisetas alternativas"
	CategoryRetro       Category = "Camisetas retro"
	CategoryTraining    Category = "Ropa de entrenamiento"
	CategoryAccessories Category = "Accesorios"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryHome,
	CategoryAway,
	CategoryAlternative,
	CategoryRetro,
	CategoryTraining,
	CategoryAccessories,
}

// friendlyNames maps the short names accepted in query strings to categories.
var friendlyNames = map[string]Category{
	"locales":       CategoryHome,
	"visitantes":    CategoryAway,
	"alternativas":  CategoryAlternative,
	"retro":         CategoryRetro,
	"entrenamiento": CategoryTraining,
	"accesorios":    CategoryAccessories,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// LookupCategory resolves a query value, either a friendly name or the
// category itself, case-insensitively.
func LookupCategory(name string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if c, ok := friendlyNames[key]; ok {
		return c, nil
	}
	for _, c := range Categories {
		if strings.ToLower(string(c)) == key {
			return c, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownCategory, "lookup %q", name)
}
