package engine

import "github.com/Egg3901/corpgame-sub003/internal/sectors"

// DefaultTable is the last tier of the price lookup chain, used when neither
// the live feed nor the configuration knows a commodity.
type DefaultTable struct {
	Resources map[string]float64               // name -> base price
	Products  map[string]sectors.ProductConfig // name -> reference value / floor
}

// DefaultCommodities is the stock game balance shipped with the engine.
var DefaultCommodities = DefaultTable{
	Resources: map[string]float64{
		"Oil":         50,
		"Iron Ore":    100,
		"Coal":        40,
		"Copper":      120,
		"Natural Gas": 45,
		"Timber":      30,
		"Grain":       20,
		"Livestock":   60,
		"Rare Earth":  400,
		"Water":       5,
	},
	Products: map[string]sectors.ProductConfig{
		"Electricity":             {Name: "Electricity", ReferenceValue: 200, MinPrice: 20},
		"Manufactured Goods":      {Name: "Manufactured Goods", ReferenceValue: 1500, MinPrice: 150},
		"Defense Equipment":       {Name: "Defense Equipment", ReferenceValue: 15000, MinPrice: 1500},
		"Steel":                   {Name: "Steel", ReferenceValue: 400, MinPrice: 40},
		"Consumer Goods":          {Name: "Consumer Goods", ReferenceValue: 900, MinPrice: 90},
		"Food Products":           {Name: "Food Products", ReferenceValue: 150, MinPrice: 15},
		"Fuel":                    {Name: "Fuel", ReferenceValue: 250, MinPrice: 25},
		"Technology Products":     {Name: "Technology Products", ReferenceValue: 5000, MinPrice: 500},
		"Construction Materials":  {Name: "Construction Materials", ReferenceValue: 350, MinPrice: 35},
		"Pharmaceutical Products": {Name: "Pharmaceutical Products", ReferenceValue: 3000, MinPrice: 300},
	},
}
