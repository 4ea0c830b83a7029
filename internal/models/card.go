package models

import "github.com/google/uuid"

// Category is what a card depicts. A SET is four cards of one category.
type Category string

const (
	CategoryMango      Category = "mango"
	CategoryPotato     Category = "potato"
	CategoryEggplant   Category = "eggplant"
	CategoryOkra       Category = "okra"
	CategoryCarrot     Category = "carrot"
	CategoryBanana     Category = "banana"
	CategoryLemon      Category = "lemon"
	CategoryOnion      Category = "onion"
	CategoryTomato     Category = "tomato"
	CategoryWatermelon Category = "watermelon"
)

// Categories lists every category in a fixed order. A round with P players
// uses the first P entries, four copies of each.
var Categories = []Category{
	CategoryMango,
	CategoryPotato,
	CategoryEggplant,
	CategoryOkra,
	CategoryCarrot,
	CategoryBanana,
	CategoryLemon,
	CategoryOnion,
	CategoryTomato,
	CategoryWatermelon,
}

// Card is a single playing card. IDs are unique within a room.
type Card struct {
	ID       uuid.UUID `json:"id"`
	Category Category  `json:"category"`
}
