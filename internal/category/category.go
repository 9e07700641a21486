// Package category maps free-text category labels from statement classifiers
// onto the closed model.Category set.
package category

import (
	"strings"

	"github.com/cleared-dev/tally/internal/model"
)

// synonyms maps lowercase labels onto canonical categories. Labels arrive in the
// statement's language, which is not necessarily the UI language, so every
// entry carries English and Russian spellings.
var synonyms = map[string]model.Category{
	// Transfers
	"transfer":        model.CategoryTransfer,
	"transfers":       model.CategoryTransfer,
	"p2p":             model.CategoryTransfer,
	"перевод":         model.CategoryTransfer,
	"переводы":        model.CategoryTransfer,
	"перевод средств": model.CategoryTransfer,

	// Shopping
	"shopping":     model.CategoryShopping,
	"marketplace":  model.CategoryShopping,
	"marketplaces": model.CategoryShopping,
	"clothing":     model.CategoryShopping,
	"покупки":      model.CategoryShopping,
	"маркетплейс":  model.CategoryShopping,
	"маркетплейсы": model.CategoryShopping,
	"одежда":       model.CategoryShopping,

	// Food
	"food":             model.CategoryFood,
	"supermarket":      model.CategoryFood,
	"supermarkets":     model.CategoryFood,
	"groceries":        model.CategoryFood,
	"restaurant":       model.CategoryFood,
	"restaurants":      model.CategoryFood,
	"cafe":             model.CategoryFood,
	"cafes":            model.CategoryFood,
	"fast food":        model.CategoryFood,
	"еда":              model.CategoryFood,
	"супермаркет":      model.CategoryFood,
	"супермаркеты":     model.CategoryFood,
	"продукты":         model.CategoryFood,
	"ресторан":         model.CategoryFood,
	"рестораны":        model.CategoryFood,
	"кафе":             model.CategoryFood,
	"кафе и рестораны": model.CategoryFood,
	"фастфуд":          model.CategoryFood,

	// Housing
	"housing":  model.CategoryHousing,
	"rent":     model.CategoryHousing,
	"mortgage": model.CategoryHousing,
	"жильё":    model.CategoryHousing,
	"жилье":    model.CategoryHousing,
	"аренда":   model.CategoryHousing,
	"ипотека":  model.CategoryHousing,

	// Transport
	"transport":      model.CategoryTransport,
	"transportation": model.CategoryTransport,
	"taxi":           model.CategoryTransport,
	"fuel":           model.CategoryTransport,
	"транспорт":      model.CategoryTransport,
	"такси":          model.CategoryTransport,
	"топливо":        model.CategoryTransport,
	"азс":            model.CategoryTransport,

	// Subscriptions
	"subscription":  model.CategorySubscriptions,
	"subscriptions": model.CategorySubscriptions,
	"подписка":      model.CategorySubscriptions,
	"подписки":      model.CategorySubscriptions,

	// Health
	"health":   model.CategoryHealth,
	"pharmacy": model.CategoryHealth,
	"medicine": model.CategoryHealth,
	"здоровье": model.CategoryHealth,
	"аптека":   model.CategoryHealth,
	"аптеки":   model.CategoryHealth,
	"медицина": model.CategoryHealth,

	// Entertainment
	"entertainment": model.CategoryEntertainment,
	"cinema":        model.CategoryEntertainment,
	"games":         model.CategoryEntertainment,
	"развлечения":   model.CategoryEntertainment,
	"кино":          model.CategoryEntertainment,
	"игры":          model.CategoryEntertainment,

	// Utilities
	"utilities":           model.CategoryUtilities,
	"communal":            model.CategoryUtilities,
	"communal services":   model.CategoryUtilities,
	"mobile":              model.CategoryUtilities,
	"internet":            model.CategoryUtilities,
	"коммунальные":        model.CategoryUtilities,
	"коммунальные услуги": model.CategoryUtilities,
	"жкх":                 model.CategoryUtilities,
	"связь":               model.CategoryUtilities,
	"мобильная связь":     model.CategoryUtilities,

	// Salary
	"salary":           model.CategorySalary,
	"payroll":          model.CategorySalary,
	"wages":            model.CategorySalary,
	"зарплата":         model.CategorySalary,
	"заработная плата": model.CategorySalary,

	// Freelance
	"freelance":     model.CategoryFreelance,
	"contract work": model.CategoryFreelance,
	"фриланс":       model.CategoryFreelance,
	"подработка":    model.CategoryFreelance,

	// Investment
	"investment":  model.CategoryInvestment,
	"investments": model.CategoryInvestment,
	"dividends":   model.CategoryInvestment,
	"interest":    model.CategoryInvestment,
	"инвестиции":  model.CategoryInvestment,
	"дивиденды":   model.CategoryInvestment,
	"проценты":    model.CategoryInvestment,

	// Other
	"other":  model.CategoryOther,
	"другое": model.CategoryOther,
	"прочее": model.CategoryOther,
}

// Normalize maps an optional classifier label onto a canonical category.
// Absent, empty and unrecognized labels map to model.CategoryOther.
func Normalize(label *string) model.Category {
	if label == nil {
		return model.CategoryOther
	}
	return NormalizeString(*label)
}

// NormalizeString is Normalize for a plain string.
func NormalizeString(label string) model.Category {
	key := strings.ToLower(strings.TrimSpace(label))
	if key == "" {
		return model.CategoryOther
	}
	if c, ok := synonyms[key]; ok {
		return c
	}
	if c, ok := Lookup(key); ok {
		return c
	}
	return model.CategoryOther
}

// Lookup returns the canonical category whose label matches name, ignoring case.
func Lookup(name string) (model.Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range model.Categories() {
		if strings.EqualFold(string(c), name) {
			return c, true
		}
	}
	return "", false
}

// Income returns the income categories in canonical order.
func Income() []model.Category {
	return filter(true)
}

// Expenses returns the non-income categories in canonical order.
func Expenses() []model.Category {
	return filter(false)
}

func filter(income bool) []model.Category {
	var out []model.Category
	for _, c := range model.Categories() {
		if c.IsIncome() == income {
			out = append(out, c)
		}
	}
	return out
}
