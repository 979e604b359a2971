package entity

import (
	"errors"
	"fmt"
	"strings"
)

// Category identifies the section of the sign-up sheet an entry belongs to.
// The set is fixed and the display values are stored verbatim, emoji included.
type Category string

const (
	CategoryMains      Category = "🍗 Mains"
	CategorySidesApps  Category = "🥗 Sides & Apps"
	CategoryDessert    Category = "🍰 Dessert"
	CategoryDrinks     Category = "🍺 Drinks"
	CategoryAppetizers Category = "🥨 Appetizers"
)

// Categories returns the fixed category set in canonical display order.
func Categories() []Category {
	return []Category{
		CategoryMains,
		CategorySidesApps,
		CategoryDessert,
		CategoryDrinks,
		CategoryAppetizers,
	}
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryMains, CategorySidesApps, CategoryDessert, CategoryDrinks, CategoryAppetizers:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ErrDuplicateDish is returned when a candidate's dish name matches an
// existing entry under NormalizeDish comparison.
var ErrDuplicateDish = errors.New("dish is already on the list")

// ValidationError reports a rejected candidate entry. Field names the first
// failing field in check order: name, then dish, then category.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid entry: %s: %s", e.Field, e.Reason)
}

// Entry is one row of the shared sign-up sheet. Name, Dish and Note carry
// their display form; Dish identity is decided by DishKey, not by Dish
// itself. Note is "" when the contributor left it blank.
type Entry struct {
	Name     string
	Category Category
	Dish     string
	Note     string
}

// NewEntry builds a validated Entry. Name and Dish are trimmed of
// surrounding whitespace; interior spacing and case are preserved.
func NewEntry(name string, category Category, dish, note string) (Entry, error) {
	e := Entry{
		Name:     strings.TrimSpace(name),
		Category: category,
		Dish:     strings.TrimSpace(dish),
		Note:     note,
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Validate checks the entry fields in order (name, dish, category) and
// returns a *ValidationError for the first failure. Whitespace-only values
// count as empty.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &ValidationError{Field: "name", Reason: "contributor name must not be empty"}
	}
	if strings.TrimSpace(e.Dish) == "" {
		return &ValidationError{Field: "dish", Reason: "dish name must not be empty"}
	}
	if !e.Category.Valid() {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", string(e.Category))}
	}
	return nil
}

// DishKey returns the identity key used for duplicate detection.
func (e Entry) DishKey() string {
	return NormalizeDish(e.Dish)
}

// NormalizeDish lowercases and trims a dish name. Two entries refer to the
// same dish exactly when their normalized forms are equal, so "Lasagna",
// " lasagna " and "LASAGNA" all share one key.
func NormalizeDish(dish string) string {
	return strings.ToLower(strings.TrimSpace(dish))
}

// ContainsDish reports whether any entry in the list shares the dish's
// identity key.
func ContainsDish(entries []Entry, dish string) bool {
	key := NormalizeDish(dish)
	for _, e := range entries {
		if e.DishKey() == key {
			return true
		}
	}
	return false
}

// CombineNames joins a contributor with an optional partner as "A & B".
// A blank partner leaves the name unchanged; a blank name stays blank so
// that validation still rejects it.
func CombineNames(name, partner string) string {
	name = strings.TrimSpace(name)
	partner = strings.TrimSpace(partner)
	if name == "" || partner == "" {
		return name
	}
	return name + " & " + partner
}
