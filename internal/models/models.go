package models

import (
	"time"
)

// Wear is the exterior tier shown on an item card's wear bar.
type Wear int

const (
	FactoryNew Wear = iota
	MinimalWear
	FieldTested
	WellWorn
	BattleScarred
)

var wearLabels = [...]string{
	FactoryNew:    "Factory New",
	MinimalWear:   "Minimal Wear",
	FieldTested:   "Field-Tested",
	WellWorn:      "Well-Worn",
	BattleScarred: "Battle-Scarred",
}

// Label returns the market name label, e.g. "Field-Tested".
func (w Wear) Label() string {
	if w < FactoryNew || w > BattleScarred {
		return wearLabels[FactoryNew]
	}
	return wearLabels[w]
}

func (w Wear) String() string {
	return w.Label()
}

// ItemVariant is what a listing card shows about one item.
type ItemVariant struct {
	DisplayName string `json:"display_name"`
	Subcategory string `json:"subcategory"`
	Wear        Wear   `json:"wear"`
}

// Tier classifies reference price per displayed coin.
type Tier string

const (
	Underpriced Tier = "underpriced"
	Fair        Tier = "fair"
	Overpriced  Tier = "overpriced"
)

// ComparisonResult is derived per card and never persisted.
type ComparisonResult struct {
	Ratio float64 `json:"ratio"`
	Tier  Tier    `json:"tier"`
}

// Settings are the user-supplied values persisted by the background process.
type Settings struct {
	APIKey   string `json:"apiKey"`
	Currency string `json:"currency"`
}

// DefaultCurrency is used when no currency has been saved.
const DefaultCurrency = "USD"

// KVEntry backs the key/value store in MySQL.
type KVEntry struct {
	Key       string    `json:"key" gorm:"primaryKey;size:64"`
	Value     []byte    `json:"value" gorm:"type:longblob"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "pricecheck_kv"
}
