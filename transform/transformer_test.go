package transform

import (
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/cruisekb/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullInfo = `{
  "cruise": {
    "name_i18n": {"en": "Volga Dreams", "de": "Wolga Traeume"},
    "description": "<p>A&nbsp;journey <b>down</b> the Volga.</p>",
    "simple_itinerary_description": "Moscow to Astrakhan"
  },
  "rivers": [
    {"name_i18n": {"en": "Volga"}, "description_i18n": {"en": "Longest river of Europe"}},
    {"name_i18n": {"en": "Oka"}, "description_i18n": {"en": "Longest river of Europe"}},
    {"name_i18n": {"en": "Volga"}}
  ],
  "portMaybe": {
    "name_i18n": {"en": "Moscow"},
    "description_i18n": {"en": "Capital city"},
    "country_gen_i18n": {"en": "Russia"}
  },
  "itineraries": [
    {"city": {"name_i18n": {"en": "Kazan"}, "country_name_i18n": {"en": "Russia"},
              "country_description_i18n": {"en": "Big country"}, "description_i18n": {"en": "Tatar capital"}}},
    {"city": {"name_i18n": {"en": "Samara"}, "country_name_i18n": {"en": ""},
              "description_i18n": {"en": "River port"}}},
    {"city": {"name_i18n": {"en": "Kazan"}, "country_name_i18n": {"en": "Russia"}}}
  ],
  "lastPortMaybe": {
    "name_i18n": {"en": "Astrakhan"},
    "country_name_i18n": {"en": "Russia"},
    "description_i18n": {"en": "Delta city"}
  },
  "cruiseCategories": [
    {"name_i18n": {"en": "River"}, "description_i18n": {"en": "Inland waters"}},
    {"name_i18n": {"en": "Family"}}
  ],
  "cruiseCategoryType": {"name_i18n": {"en": "Standard"}}
}`

func mustTree(t *testing.T, raw string) core.Tree {
	t.Helper()
	tree, err := core.ParseTree([]byte(raw))
	require.NoError(t, err)
	return tree
}

func indexable() core.Summary {
	return core.Summary{
		MinPrice: 700,
		Dates:    []string{"202606", "202607"},
		Ranges:   []string{"R1", "R2"},
	}
}

func TestTransform_FullDocument(t *testing.T) {
	entity := &core.Entity{ID: "42", Code: "VOLGA", Info: mustTree(t, fullInfo)}

	doc, ok := New().Transform(entity, indexable())
	require.True(t, ok)

	want := strings.Join([]string{
		"The cruise is named Volga Dreams.",
		"A journey down the Volga.",
		"The itinerary is described as: Moscow to Astrakhan.",
		"The cruise goes along the following rivers: Volga, Oka.",
		"The rivers are described as: Longest river of Europe.",
		"The cruise may start from the port of Moscow.",
		"The starting port is described as: Capital city.",
		"The starting port is in Russia.",
		"The cruise visits the following cities: Kazan, Samara.",
		"The cities are in the following countries: Russia.",
		"The countries are described as: Big country.",
		"The cities are described as: Tatar capital, River port.",
		"The cruise may end at the port of Astrakhan.",
		"The ending port is in Russia.",
		"The ending port is described as: Delta city.",
		"The cruise belongs to the following categories: River, Family.",
		"The cruise categories are described as: Inland waters.",
		"The cruise category type is Standard.",
	}, " ")
	assert.Equal(t, want, doc.Text)

	assert.Equal(t, core.Metadata{
		EntityID:    "42",
		DisplayCode: "VOLGA",
		Cities:      "Kazan, Samara",
		Countries:   "Russia",
		Waterways:   "Volga, Oka",
		SeaCruise:   false,
		MinPrice:    700,
		MaxPrice:    0,
		Dates:       "202606, 202607",
		Ranges:      "R1, R2",
		Links:       "http://uat.center.cruises/cruise-R1-VOLGA, http://uat.center.cruises/cruise-R2-VOLGA",
	}, doc.Metadata)
	assert.Equal(t, "42", doc.ID)
	assert.NoError(t, core.ValidateDocument(doc))
}

func TestTransform_Deterministic(t *testing.T) {
	entity := &core.Entity{ID: "42", Code: "VOLGA", Info: mustTree(t, fullInfo)}
	tr := New()

	first, _ := tr.Transform(entity, indexable())
	for range 5 {
		again, _ := tr.Transform(entity, indexable())
		assert.Equal(t, first, again)
	}
}

func TestTransform_NoValidDatesProducesNothing(t *testing.T) {
	entity := &core.Entity{ID: "42", Code: "VOLGA", Info: mustTree(t, fullInfo)}

	doc, ok := New().Transform(entity, core.Summary{MinPrice: 500, Dates: []string{}, Ranges: []string{}})
	assert.False(t, ok)
	assert.Nil(t, doc)

	doc, ok = New().Transform(nil, indexable())
	assert.False(t, ok)
	assert.Nil(t, doc)
}

func TestTransform_SeaCruise(t *testing.T) {
	entity := &core.Entity{ID: "7", Code: "SEA", Info: mustTree(t, `{"cruise": {"name_i18n": {"en": "Baltic"}}, "rivers": []}`)}

	doc, ok := New().Transform(entity, indexable())
	require.True(t, ok)
	assert.Equal(t, "The cruise is named Baltic.", doc.Text)
	assert.True(t, doc.Metadata.SeaCruise)
	assert.Empty(t, doc.Metadata.Waterways)
}

func TestTransform_MalformedTrees(t *testing.T) {
	trees := []string{
		`null`,
		`[]`,
		`"just a string"`,
		`42`,
		`{"cruise": "flat"}`,
		`{"cruise": {"name_i18n": "not localized", "description": 17}}`,
		`{"rivers": {"name_i18n": {"en": "Volga"}}}`,
		`{"rivers": [null, 1, "x", {"name_i18n": null}]}`,
		`{"itineraries": [{"city": []}, {"city": {"name_i18n": {"en": 3}}}]}`,
		`{"portMaybe": [], "lastPortMaybe": null, "cruiseCategories": "River", "cruiseCategoryType": 1}`,
	}

	for _, raw := range trees {
		t.Run(raw, func(t *testing.T) {
			entity := &core.Entity{ID: "x", Info: mustTree(t, raw)}
			assert.NotPanics(t, func() {
				doc, ok := New().Transform(entity, indexable())
				require.True(t, ok)
				assert.Empty(t, doc.Metadata.Links, "no code, no links")
			})
		})
	}
}

func TestTransform_NumericLocalizedValue(t *testing.T) {
	entity := &core.Entity{ID: "x", Info: mustTree(t, `{"itineraries": [{"city": {"name_i18n": {"en": 3}}}]}`)}

	doc, ok := New().Transform(entity, indexable())
	require.True(t, ok)
	assert.Equal(t, "3", doc.Metadata.Cities)
}

func TestTransform_WordBudgets(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 500))
	info := `{"cruise": {"description": "` + long + `", "simple_itinerary_description": "` + long + `"},
	          "cruiseCategories": [{"description_i18n": {"en": "` + long + `"}}]}`
	entity := &core.Entity{ID: "x", Info: mustTree(t, info)}

	tr := New()
	a := tr.attributes(entity.Info)
	assert.Len(t, strings.Fields(a.description), longWordLimit)
	assert.Len(t, strings.Fields(a.itinerary), shortWordLimit)
	assert.Len(t, strings.Fields(a.categoryDescs), shortWordLimit)
}

type stubTranslator struct {
	err   error
	langs []string
}

func (s *stubTranslator) ToEnglish(text, lang string) (string, error) {
	s.langs = append(s.langs, lang)
	if s.err != nil {
		return "", s.err
	}
	return "EN(" + text + ")", nil
}

func TestTransform_Localization(t *testing.T) {
	info := `{"cruise": {"name_i18n": {"ru": "Волга", "de": "Wolga"}}}`
	entity := &core.Entity{ID: "x", Info: mustTree(t, info)}

	t.Run("without translator non-English is dropped", func(t *testing.T) {
		doc, ok := New().Transform(entity, indexable())
		require.True(t, ok)
		assert.Empty(t, doc.Text)
	})

	t.Run("translator gets the first language in order", func(t *testing.T) {
		stub := &stubTranslator{}
		doc, ok := New(WithTranslator(stub)).Transform(entity, indexable())
		require.True(t, ok)
		assert.Equal(t, "The cruise is named EN(Wolga).", doc.Text)
		assert.Equal(t, []string{"de"}, stub.langs)
	})

	t.Run("translation failure drops the value", func(t *testing.T) {
		stub := &stubTranslator{err: errors.New("quota")}
		doc, ok := New(WithTranslator(stub)).Transform(entity, indexable())
		require.True(t, ok)
		assert.Empty(t, doc.Text)
	})

	t.Run("English is never translated", func(t *testing.T) {
		stub := &stubTranslator{}
		e := &core.Entity{ID: "x", Info: mustTree(t, `{"cruise": {"name_i18n": {"en": "Volga", "de": "Wolga"}}}`)}
		doc, _ := New(WithTranslator(stub)).Transform(e, indexable())
		assert.Equal(t, "The cruise is named Volga.", doc.Text)
		assert.Empty(t, stub.langs)
	})
}

func TestTransform_CustomLinkBase(t *testing.T) {
	entity := &core.Entity{ID: "1", Code: "X"}
	doc, ok := New(WithLinkBase("https://example.com/c/")).Transform(entity, indexable())
	require.True(t, ok)
	assert.Equal(t, "https://example.com/c/R1-X, https://example.com/c/R2-X", doc.Metadata.Links)
}
