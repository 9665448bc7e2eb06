package types

// ShoppingList is the ordered list of items derived from a shopping request.
// Order is processing order; duplicates are kept as the model returned them.
type ShoppingList struct {
	Items []string `json:"items"`
}

// Len returns the number of items.
func (l ShoppingList) Len() int {
	return len(l.Items)
}

// ItemCategory is the storefront category chosen for a single item.
type ItemCategory struct {
	CategoryName string `json:"category_name"`
	CategoryPath string `json:"category_path"`
}

// String renders the category the way it is reported to the operator.
func (c ItemCategory) String() string {
	return c.CategoryName + " (" + c.CategoryPath + ")"
}
