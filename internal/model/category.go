package model

// Category is a canonical spending or income tag. The value is its display label.
type Category string

const (
	CategorySalary        Category = "Salary"
	CategoryFreelance     Category = "Freelance"
	CategoryInvestment    Category = "Investment"
	CategoryTransfer      Category = "Transfer"
	CategoryShopping      Category = "Shopping"
	CategoryFood          Category = "Food"
	CategoryHousing       Category = "Housing"
	CategoryTransport     Category = "Transport"
	CategoryHealth        Category = "Health"
	CategoryEntertainment Category = "Entertainment"
	CategoryUtilities     Category = "Utilities"
	CategorySubscriptions Category = "Subscriptions"
	CategoryOther         Category = "Other"
)

type categoryMeta struct {
	income bool
	icon   string
	color  string
}

var categoryOrder = []Category{
	CategorySalary,
	CategoryFreelance,
	CategoryInvestment,
	CategoryTransfer,
	CategoryShopping,
	CategoryFood,
	CategoryHousing,
	CategoryTransport,
	CategoryHealth,
	CategoryEntertainment,
	CategoryUtilities,
	CategorySubscriptions,
	CategoryOther,
}

var categoryMetadata = map[Category]categoryMeta{
	CategorySalary:        {income: true, icon: "banknote.fill", color: "#34C759"},
	CategoryFreelance:     {income: true, icon: "laptopcomputer", color: "#30B0C7"},
	CategoryInvestment:    {income: true, icon: "chart.line.uptrend.xyaxis", color: "#5856D6"},
	CategoryTransfer:      {icon: "arrow.left.arrow.right", color: "#8E8E93"},
	CategoryShopping:      {icon: "bag.fill", color: "#FF2D55"},
	CategoryFood:          {icon: "fork.knife", color: "#FF9500"},
	CategoryHousing:       {icon: "house.fill", color: "#A2845E"},
	CategoryTransport:     {icon: "car.fill", color: "#007AFF"},
	CategoryHealth:        {icon: "heart.fill", color: "#FF3B30"},
	CategoryEntertainment: {icon: "gamecontroller.fill", color: "#AF52DE"},
	CategoryUtilities:     {icon: "bolt.fill", color: "#FFCC00"},
	CategorySubscriptions: {icon: "repeat", color: "#64D2FF"},
	CategoryOther:         {icon: "square.grid.2x2.fill", color: "#636366"},
}

// Categories returns the closed category set in canonical order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Valid reports whether c is one of the canonical categories.
func (c Category) Valid() bool {
	_, ok := categoryMetadata[c]
	return ok
}

// IsIncome reports whether c is an income category.
func (c Category) IsIncome() bool { return categoryMetadata[c].income }

// Icon returns the display icon token, or the Other icon for unknown values.
func (c Category) Icon() string { return c.meta().icon }

// Color returns the display color token as #RRGGBB.
func (c Category) Color() string { return c.meta().color }

// Rank returns the position of c in canonical order. Unknown values sort last.
func (c Category) Rank() int {
	for i, cat := range categoryOrder {
		if cat == c {
			return i
		}
	}
	return len(categoryOrder)
}

func (c Category) String() string { return string(c) }

func (c Category) meta() categoryMeta {
	if m, ok := categoryMetadata[c]; ok {
		return m
	}
	return categoryMetadata[CategoryOther]
}
