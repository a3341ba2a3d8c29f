package menu

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryAppetizers Category = "appetizers"
	CategoryMainCourse Category = "main-course"
	CategoryDesserts   Category = "desserts"
	CategoryBeverages  Category = "beverages"
	CategorySnacks     Category = "snacks"
	CategoryPizza      Category = "pizza"
	CategoryBurgers    Category = "burgers"
	CategoryChinese    Category = "chinese"
	CategoryIndian     Category = "indian"
	CategoryItalian    Category = "italian"
)

var validCategories = map[Category]bool{
	CategoryAppetizers: true,
	CategoryMainCourse: true,
	CategoryDesserts:   true,
	CategoryBeverages:  true,
	CategorySnacks:     true,
	CategoryPizza:      true,
	CategoryBurgers:    true,
	CategoryChinese:    true,
	CategoryIndian:     true,
	CategoryItalian:    true,
}

func (c Category) Valid() bool {
	return validCategories[c]
}

type SpiceLevel string

const (
	SpiceNone     SpiceLevel = "none"
	SpiceMild     SpiceLevel = "mild"
	SpiceMedium   SpiceLevel = "medium"
	SpiceHot      SpiceLevel = "hot"
	SpiceExtraHot SpiceLevel = "extra-hot"
)

const DefaultImage = "default-food.jpg"

type MenuItem struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	Category        Category        `json:"category"`
	Image           string          `json:"image"`
	Ingredients     []string        `json:"ingredients"`
	IsVegetarian    bool            `json:"isVegetarian"`
	IsVegan         bool            `json:"isVegan"`
	IsGlutenFree    bool            `json:"isGlutenFree"`
	SpiceLevel      SpiceLevel      `json:"spiceLevel"`
	PreparationTime int             `json:"preparationTime"`
	IsAvailable     bool            `json:"isAvailable"`
	Rating          decimal.Decimal `json:"rating"`
	ReviewCount     int             `json:"reviewCount"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CatalogEntry is the priceable view of a menu item used while placing an order.
type CatalogEntry struct {
	ItemID      string
	Name        string
	Price       decimal.Decimal
	Image       string
	IsAvailable bool
}

type ListFilter struct {
	Category   *Category
	Search     string
	Vegetarian bool
	Vegan      bool
	GlutenFree bool
}
