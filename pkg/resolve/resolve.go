// Package resolve turns a free-text shopping request into items and maps each
// item onto the storefront taxonomy with two language-model calls.
package resolve

import (
	"context"

	"github.com/entrhq/okaimono/pkg/llm"
	"github.com/entrhq/okaimono/pkg/logging"
	"github.com/entrhq/okaimono/pkg/taxonomy"
	"github.com/entrhq/okaimono/pkg/types"
)

const (
	itemsPrompt = "あなたはお買い物アシスタントです。ユーザのクエリからお買い物すべき商品のリストを作ります。"

	categoryPromptHeader = "あなたはお買い物アシスタントです。ユーザーが探している食材からカテゴリーのパスを返してください。\n\nカテゴリー："

	itemInputPrefix = "商品："

	// Both stages sample greedily so the same request resolves the same way.
	temperature = 0
)

// Resolver runs the item and category stages against one provider.
type Resolver struct {
	provider       llm.Provider
	taxonomy       *taxonomy.Taxonomy
	logger         *logging.Logger
	listSchema     *llm.Schema
	categorySchema *llm.Schema
	categoryPrompt string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTaxonomy replaces the embedded storefront taxonomy.
func WithTaxonomy(t *taxonomy.Taxonomy) Option {
	return func(r *Resolver) {
		if t != nil {
			r.taxonomy = t
		}
	}
}

// WithLogger sets the resolver's logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Resolver.
func New(provider llm.Provider, opts ...Option) *Resolver {
	r := &Resolver{
		provider: provider,
		taxonomy: taxonomy.Default(),
		logger:   logging.Discard("resolve"),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.listSchema = ShoppingListSchema()
	r.categorySchema = ItemCategorySchema(r.taxonomy)
	r.categoryPrompt = categoryPromptHeader + r.taxonomy.PromptJSON()
	return r
}

// Taxonomy returns the taxonomy categories are checked against.
func (r *Resolver) Taxonomy() *taxonomy.Taxonomy {
	return r.taxonomy
}

// ShoppingListSchema describes {"items": [string, ...]}.
func ShoppingListSchema() *llm.Schema {
	return llm.ObjectSchema("shopping_list", "買い物のアイテムリスト",
		map[string]interface{}{
			"items": map[string]interface{}{
				"type":        "array",
				"description": "買い物のアイテムリスト",
				"items":       map[string]interface{}{"type": "string"},
			},
		},
		[]string{"items"},
	)
}

// ItemCategorySchema describes {"category_name": ..., "category_path": ...}
// with the path restricted to the taxonomy's paths.
func ItemCategorySchema(t *taxonomy.Taxonomy) *llm.Schema {
	entries := t.Entries()
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}

	return llm.ObjectSchema("item_category", "商品のカテゴリー",
		map[string]interface{}{
			"category_name": map[string]interface{}{
				"type":        "string",
				"description": "商品のカテゴリー名",
			},
			"category_path": map[string]interface{}{
				"type":        "string",
				"description": "商品のカテゴリーへのパス",
				"enum":        paths,
			},
		},
		[]string{"category_name", "category_path"},
	)
}

// ResolveItems derives the items to buy from query with one model call.
// The model's order and duplicates are kept. A model or decoding failure is
// returned as an *llm.InvocationError.
func (r *Resolver) ResolveItems(ctx context.Context, query string) (types.ShoppingList, error) {
	var list types.ShoppingList
	if err := llm.Invoke(ctx, r.provider, itemsPrompt, query, r.listSchema, &list, llm.WithTemperature(temperature)); err != nil {
		r.logger.Errorf("item list for %q: %v", query, err)
		return types.ShoppingList{}, err
	}
	if list.Items == nil {
		list.Items = []string{}
	}
	r.logger.Infof("query %q -> %d item(s): %v", query, list.Len(), list.Items)
	return list, nil
}

// ResolveCategory maps item to a taxonomy category with one model call.
//
// The returned category always names a taxonomy path. A reply whose path is
// unknown but whose name matches an entry is corrected to that entry; any
// other off-taxonomy reply yields (nil, nil) so the caller can skip the item.
func (r *Resolver) ResolveCategory(ctx context.Context, item string) (*types.ItemCategory, error) {
	var cat types.ItemCategory
	if err := llm.Invoke(ctx, r.provider, r.categoryPrompt, itemInputPrefix+item, r.categorySchema, &cat, llm.WithTemperature(temperature)); err != nil {
		r.logger.Errorf("category for %q: %v", item, err)
		return nil, err
	}

	if entry, ok := r.taxonomy.LookupPath(cat.CategoryPath); ok {
		return &types.ItemCategory{CategoryName: entry.Name, CategoryPath: entry.Path}, nil
	}
	if entry, ok := r.taxonomy.LookupName(cat.CategoryName); ok {
		r.logger.Warnf("item %q: path %q not in taxonomy, using %q from name", item, cat.CategoryPath, entry.Path)
		return &types.ItemCategory{CategoryName: entry.Name, CategoryPath: entry.Path}, nil
	}

	r.logger.Warnf("item %q: %s is outside the taxonomy", item, cat)
	return nil, nil
}
