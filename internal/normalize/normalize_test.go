package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_KeyedBlocks_SortedByDeclaredOrder(t *testing.T) {
	record := map[string]any{
		"title": "Taqueria Los Amigos",
		"url":   "https://maps.example.com/place/123",
		"menu": map[string]any{
			"desserts": map[string]any{
				"sort": float64(3),
				"items": []any{
					map[string]any{"name": "Flan", "price": "4.50"},
				},
			},
			"main_dishes": map[string]any{
				"sort": float64(1),
				"items": []any{
					map[string]any{"name": "Carne Asada", "price": 14.99},
					map[string]any{"name": "★ Al Pastor", "price": map[string]any{"amount": 12.5, "display": "$12.50"}},
				},
			},
			"drinks-cold": map[string]any{
				"sort": float64(2),
				"items": []any{
					map[string]any{"name": "Horchata", "price": "$3.00"},
				},
			},
		},
	}

	s, err := Normalize(record)
	require.NoError(t, err)

	require.Len(t, s.Categories, 3)
	assert.Equal(t, "Main Dishes", s.Categories[0].Name)
	assert.Equal(t, "Drinks Cold", s.Categories[1].Name)
	assert.Equal(t, "Desserts", s.Categories[2].Name)

	// Promoted-item marker stripped.
	assert.Equal(t, "Al Pastor", s.Categories[0].Items[1].Name)
	require.NotNil(t, s.Categories[0].Items[1].PriceCents)
	assert.Equal(t, int64(1250), *s.Categories[0].Items[1].PriceCents)

	assert.Equal(t, 4, s.ItemCount())
}

func TestNormalize_KeyedBlocks_PrecedenceOverFlatList(t *testing.T) {
	record := map[string]any{
		"title": "Cafe One",
		"menu": map[string]any{
			"coffee": map[string]any{
				"sort":  float64(1),
				"items": []any{map[string]any{"name": "Espresso"}},
			},
		},
		"items": []any{
			map[string]any{"name": "Should Be Ignored", "category": "other"},
		},
	}

	s, err := Normalize(record)
	require.NoError(t, err)
	require.Len(t, s.Categories, 1)
	assert.Equal(t, "Coffee", s.Categories[0].Name)
}

func TestNormalize_FlatList_GroupedByItemCategory(t *testing.T) {
	record := map[string]any{
		"name": "Burger Shack",
		"items": []any{
			map[string]any{"name": "Cheeseburger", "category": "burgers", "price": "8.99"},
			map[string]any{"name": "Fries", "category": "sides", "price": "3.49"},
			map[string]any{"name": "Double Burger", "category": "burgers", "price": "11.99"},
			map[string]any{"name": "Mystery Special"},
		},
	}

	s, err := Normalize(record)
	require.NoError(t, err)

	require.Len(t, s.Categories, 3)
	assert.Equal(t, "Burgers", s.Categories[0].Name)
	assert.Len(t, s.Categories[0].Items, 2)
	assert.Equal(t, "Sides", s.Categories[1].Name)
	assert.Equal(t, DefaultCategory, s.Categories[2].Name)
	assert.Equal(t, "Mystery Special", s.Categories[2].Items[0].Name)
	assert.Nil(t, s.Categories[2].Items[0].PriceCents)
}

func TestNormalize_NoMenuContent(t *testing.T) {
	s, err := Normalize(map[string]any{"title": "Empty Venue"})
	require.NoError(t, err)
	assert.Empty(t, s.Categories)
	assert.Equal(t, 0, s.ItemCount())
}

func TestNormalize_MissingName(t *testing.T) {
	_, err := Normalize(map[string]any{"items": []any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no name")
}

func TestNormalize_NilRecord(t *testing.T) {
	_, err := Normalize(nil)
	require.Error(t, err)
}

func TestNormalize_MalformedBlock(t *testing.T) {
	_, err := Normalize(map[string]any{
		"title": "Broken",
		"menu": map[string]any{
			"starters": "not an object",
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken")
}

func TestNormalize_VenueFields(t *testing.T) {
	s, err := Normalize(map[string]any{
		"title":      "Pho Real",
		"street":     "42 Main St",
		"city":       "Springfield",
		"state":      "IL",
		"postalCode": "62704",
		"phone":      "+1 555 0100",
		"website":    "https://phoreal.example.com",
		"url":        "https://maps.example.com/place/abc",
		"placeId":    "abc123",
	})
	require.NoError(t, err)

	assert.Equal(t, "Pho Real", s.Name)
	assert.Equal(t, "42 Main St", s.Street)
	assert.Equal(t, "Springfield", s.City)
	assert.Equal(t, "62704", s.ZipCode)
	assert.Equal(t, "https://maps.example.com/place/abc", s.SourceURL)
	assert.Equal(t, "abc123", s.ExternalID)
}

func TestStripReviews(t *testing.T) {
	record := map[string]any{
		"title":   "Reviewed Place",
		"reviews": []any{map[string]any{"author": "someone", "text": "great"}},
		"reviewsDistribution": map[string]any{"fiveStar": 12},
		"items":   []any{},
	}

	StripReviews(record)

	assert.NotContains(t, record, "reviews")
	assert.NotContains(t, record, "reviewsDistribution")
	assert.Contains(t, record, "items")
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"main_dishes", "Main Dishes"},
		{"drinks-cold", "Drinks Cold"},
		{"DESSERTS", "Desserts"},
		{"  soups ", "Soups"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, displayName(tt.in), "displayName(%q)", tt.in)
	}
}
