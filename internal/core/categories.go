package core

// Category vocabularies offered on entry. The store keeps whatever category a
// transaction was saved with, even if it later disappears from these lists.
var (
	IncomeCategories = []string{
		"Allowance",
		"Part-time Job",
		"Scholarship",
		"Freelance",
		"Gift",
		"Other",
	}

	ExpenseCategories = []string{
		"Food",
		"Transport",
		"Books & Stationery",
		"Rent",
		"Mobile Recharge",
		"Entertainment",
		"Shopping",
		"Health",
		"Other",
	}
)

// CategoriesFor returns a copy of the vocabulary for t. Anything that is not
// income gets the expense list, matching the entry form's default type.
func CategoriesFor(t TransactionType) []string {
	src := ExpenseCategories
	if t == Income {
		src = IncomeCategories
	}
	return append([]string(nil), src...)
}

// IsKnownCategory reports whether category is in t's current vocabulary.
func IsKnownCategory(t TransactionType, category string) bool {
	if !t.Valid() {
		return false
	}
	for _, c := range CategoriesFor(t) {
		if c == category {
			return true
		}
	}
	return false
}
