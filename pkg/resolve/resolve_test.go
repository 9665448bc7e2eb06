package resolve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/okaimono/pkg/llm"
	"github.com/entrhq/okaimono/pkg/llm/llmtest"
	"github.com/entrhq/okaimono/pkg/taxonomy"
	"github.com/entrhq/okaimono/pkg/types"
)

func TestResolveItems(t *testing.T) {
	provider := llmtest.New(map[string]string{
		"カレーを作りたい": `{"items": ["玉ねぎ", "にんじん", "カレールー", "玉ねぎ"]}`,
	})
	r := New(provider)

	list, err := r.ResolveItems(context.Background(), "カレーを作りたい")
	require.NoError(t, err)
	assert.Equal(t, []string{"玉ねぎ", "にんじん", "カレールー", "玉ねぎ"}, list.Items, "order and duplicates kept")

	reqs := provider.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "あなたはお買い物アシスタントです。ユーザのクエリからお買い物すべき商品のリストを作ります。", reqs[0].System)
	assert.Equal(t, "カレーを作りたい", reqs[0].User)
	require.NotNil(t, reqs[0].Schema)
	assert.Equal(t, "shopping_list", reqs[0].Schema.Name)
	assert.Equal(t, []string{"items"}, reqs[0].Schema.Required())
	require.NotNil(t, reqs[0].Temperature, "items are sampled greedily")
	assert.Equal(t, 0.0, *reqs[0].Temperature)
}

func TestResolveItemsEmptyQuery(t *testing.T) {
	provider := llmtest.New(map[string]string{"": `{"items": []}`})

	list, err := New(provider).ResolveItems(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, list.Items)
	assert.Empty(t, list.Items)
}

func TestResolveItemsToleratesWrappedReply(t *testing.T) {
	provider := llmtest.New(map[string]string{
		"milk": "Here you go:\n```json\n{\"items\": [\"牛乳\",]}\n```",
	})

	list, err := New(provider).ResolveItems(context.Background(), "milk")
	require.NoError(t, err)
	assert.Equal(t, []string{"牛乳"}, list.Items)
}

func TestResolveItemsFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{name: "backend error", err: errors.New("connection refused")},
		{name: "no JSON", reply: "I cannot help with that."},
		{name: "missing items", reply: `{"list": ["牛乳"]}`},
		{name: "null items", reply: `{"items": null}`},
		{name: "non-string items", reply: `{"items": [1, 2]}`},
		{name: "items not a list", reply: `{"items": "牛乳"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := llmtest.New(map[string]string{"q": tt.reply})
			if tt.err != nil {
				provider.Errors = map[string]error{"q": tt.err}
			}

			list, err := New(provider).ResolveItems(context.Background(), "q")
			require.Error(t, err)
			assert.ErrorIs(t, err, llm.ErrInvocation)
			assert.Empty(t, list.Items, "no partial result on failure")

			var invErr *llm.InvocationError
			require.True(t, errors.As(err, &invErr))
			assert.Equal(t, "shopping_list", invErr.Schema)
		})
	}
}

func TestResolveCategory(t *testing.T) {
	provider := llmtest.New(map[string]string{
		"商品：牛乳": `{"category_name": "卵・牛乳・乳製品", "category_path": "shop#卵・牛乳・乳製品"}`,
	})
	r := New(provider)

	cat, err := r.ResolveCategory(context.Background(), "牛乳")
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, types.ItemCategory{CategoryName: "卵・牛乳・乳製品", CategoryPath: "shop#卵・牛乳・乳製品"}, *cat)

	reqs := provider.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, strings.HasPrefix(reqs[0].System, "あなたはお買い物アシスタントです。ユーザーが探している食材からカテゴリーのパスを返してください。"))
	assert.Contains(t, reqs[0].System, taxonomy.Default().PromptJSON())
	assert.Equal(t, "商品：牛乳", reqs[0].User)
	assert.Equal(t, "item_category", reqs[0].Schema.Name)
	require.NotNil(t, reqs[0].Temperature)
	assert.Equal(t, 0.0, *reqs[0].Temperature)
}

func TestResolveCategoryPathEnum(t *testing.T) {
	schema := ItemCategorySchema(taxonomy.Default())

	props := schema.Definition["properties"].(map[string]interface{})
	path := props["category_path"].(map[string]interface{})
	enum := path["enum"].([]string)

	assert.Len(t, enum, 18)
	assert.Equal(t, "shop#果物・野菜", enum[0])
	assert.Equal(t, "shop#ベビー・ペット", enum[17])
}

func TestResolveCategoryCorrectsPathFromName(t *testing.T) {
	provider := llmtest.New(map[string]string{
		"商品：ビール": `{"category_name": "お酒", "category_path": "shop/alcohol"}`,
	})

	cat, err := New(provider).ResolveCategory(context.Background(), "ビール")
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, "shop#お酒", cat.CategoryPath)
}

func TestResolveCategoryCanonicalizesName(t *testing.T) {
	provider := llmtest.New(map[string]string{
		"商品：鮭": `{"category_name": "魚", "category_path": " shop#お魚 "}`,
	})

	cat, err := New(provider).ResolveCategory(context.Background(), "鮭")
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, types.ItemCategory{CategoryName: "お魚", CategoryPath: "shop#お魚"}, *cat)
}

func TestResolveCategoryOutsideTaxonomy(t *testing.T) {
	provider := llmtest.New(map[string]string{
		"商品：電池": `{"category_name": "家電", "category_path": "shop#家電"}`,
	})

	cat, err := New(provider).ResolveCategory(context.Background(), "電池")
	assert.NoError(t, err)
	assert.Nil(t, cat)
}

func TestResolveCategoryFailurePropagates(t *testing.T) {
	provider := llmtest.New(map[string]string{
		"商品：牛乳": `{"category_name": "卵・牛乳・乳製品"}`,
	})

	cat, err := New(provider).ResolveCategory(context.Background(), "牛乳")
	assert.ErrorIs(t, err, llm.ErrInvocation)
	assert.Nil(t, cat)
}

func TestResolveCategoryCustomTaxonomy(t *testing.T) {
	tax, err := taxonomy.New([]taxonomy.Entry{{Name: "Drinks", Path: "shop#drinks"}})
	require.NoError(t, err)

	provider := llmtest.New(map[string]string{
		"商品：water": `{"category_name": "Drinks", "category_path": "shop#drinks"}`,
		"商品：beer":  `{"category_name": "お酒", "category_path": "shop#お酒"}`,
	})
	r := New(provider, WithTaxonomy(tax))

	cat, err := r.ResolveCategory(context.Background(), "water")
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, "shop#drinks", cat.CategoryPath)

	cat, err = r.ResolveCategory(context.Background(), "beer")
	require.NoError(t, err)
	assert.Nil(t, cat, "default taxonomy path rejected under a custom taxonomy")
}

func TestResolveIsStableForSameReplies(t *testing.T) {
	provider := llmtest.New(map[string]string{
		"q": `{"items": ["b", "a", "b"]}`,
	})
	r := New(provider)

	first, err := r.ResolveItems(context.Background(), "q")
	require.NoError(t, err)
	second, err := r.ResolveItems(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
