package transform

import (
	"log/slog"
	"strings"

	"github.com/poiesic/cruisekb/core"
)

// Transformer builds retrieval documents from entities.
type Transformer struct {
	linkBase string
	local    localizer
	logger   *slog.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithTranslator routes non-English localized values through t.
func WithTranslator(t Translator) Option {
	return func(tr *Transformer) {
		tr.local.translator = t
	}
}

// WithLinkBase sets the prefix of booking links. Default is DefaultLinkBase.
func WithLinkBase(base string) Option {
	return func(tr *Transformer) {
		if base != "" {
			tr.linkBase = base
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(tr *Transformer) {
		if logger != nil {
			tr.logger = logger
		}
	}
}

// New creates a Transformer.
func New(opts ...Option) *Transformer {
	tr := &Transformer{
		linkBase: DefaultLinkBase,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(tr)
	}
	tr.logger = tr.logger.With("component", "transformer")
	tr.local.logger = tr.logger
	return tr
}

// Transform builds the document for entity. It reports false, producing
// nothing, when the summary holds no valid future departure.
func (tr *Transformer) Transform(entity *core.Entity, summary core.Summary) (*core.Document, bool) {
	if entity == nil || !summary.Indexable() {
		return nil, false
	}

	a := tr.attributes(entity.Info)
	doc := &core.Document{
		ID:   entity.ID,
		Text: a.text(),
		Metadata: core.Metadata{
			EntityID:    entity.ID,
			DisplayCode: entity.Code,
			Cities:      a.cities,
			Countries:   a.countries,
			Waterways:   a.rivers,
			SeaCruise:   a.rivers == "",
			MinPrice:    summary.MinPrice,
			MaxPrice:    summary.MaxPrice,
			Dates:       strings.Join(summary.Dates, ", "),
			Ranges:      strings.Join(summary.Ranges, ", "),
			Links:       strings.Join(Links(tr.linkBase, summary.Ranges, entity.Code), ", "),
		},
	}
	return doc, true
}

// attributes holds the resolved, cleaned values of one entity.
type attributes struct {
	name          string
	description   string
	itinerary     string
	rivers        string
	riverDescs    string
	startPort     string
	startPortDesc string
	startPortCtry string
	cities        string
	countries     string
	countryDescs  string
	cityDescs     string
	endPort       string
	endPortCtry   string
	endPortDesc   string
	categories    string
	categoryDescs string
	categoryType  string
}

func (tr *Transformer) attributes(info core.Tree) attributes {
	i18n := func(node core.Tree) string {
		return sanitize(tr.local.text(node))
	}
	// each resolves path under every element of list.
	each := func(list core.Tree, path ...string) []string {
		items := list.List()
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, i18n(item.Get(path...)))
		}
		return out
	}

	cruise := info.Get("cruise")
	rivers := info.Get("rivers")
	start := info.Get("portMaybe")
	end := info.Get("lastPortMaybe")
	stops := info.Get("itineraries")
	categories := info.Get("cruiseCategories")

	return attributes{
		name:          i18n(cruise.Get("name_i18n")),
		description:   truncateWords(sanitize(cruise.Get("description").String()), longWordLimit),
		itinerary:     truncateWords(sanitize(cruise.Get("simple_itinerary_description").String()), shortWordLimit),
		rivers:        uniqueJoin(each(rivers, "name_i18n")),
		riverDescs:    truncateWords(uniqueJoin(each(rivers, "description_i18n")), longWordLimit),
		startPort:     i18n(start.Get("name_i18n")),
		startPortDesc: truncateWords(i18n(start.Get("description_i18n")), longWordLimit),
		startPortCtry: i18n(start.Get("country_gen_i18n")),
		cities:        uniqueJoin(each(stops, "city", "name_i18n")),
		countries:     uniqueJoin(each(stops, "city", "country_name_i18n")),
		countryDescs:  truncateWords(uniqueJoin(each(stops, "city", "country_description_i18n")), longWordLimit),
		cityDescs:     truncateWords(uniqueJoin(each(stops, "city", "description_i18n")), longWordLimit),
		endPort:       i18n(end.Get("name_i18n")),
		endPortCtry:   i18n(end.Get("country_name_i18n")),
		endPortDesc:   truncateWords(i18n(end.Get("description_i18n")), longWordLimit),
		categories:    uniqueJoin(each(categories, "name_i18n")),
		categoryDescs: truncateWords(uniqueJoin(each(categories, "description_i18n")), shortWordLimit),
		categoryType:  i18n(info.Get("cruiseCategoryType", "name_i18n")),
	}
}

// text joins the non-empty sentences in their fixed order.
func (a attributes) text() string {
	parts := make([]string, 0, 18)
	add := func(value, format string) {
		if value != "" {
			parts = append(parts, strings.Replace(format, "%s", value, 1))
		}
	}

	add(a.name, "The cruise is named %s.")
	add(a.description, "%s")
	add(a.itinerary, "The itinerary is described as: %s.")
	add(a.rivers, "The cruise goes along the following rivers: %s.")
	add(a.riverDescs, "The rivers are described as: %s.")
	add(a.startPort, "The cruise may start from the port of %s.")
	add(a.startPortDesc, "The starting port is described as: %s.")
	add(a.startPortCtry, "The starting port is in %s.")
	add(a.cities, "The cruise visits the following cities: %s.")
	add(a.countries, "The cities are in the following countries: %s.")
	add(a.countryDescs, "The countries are described as: %s.")
	add(a.cityDescs, "The cities are described as: %s.")
	add(a.endPort, "The cruise may end at the port of %s.")
	add(a.endPortCtry, "The ending port is in %s.")
	add(a.endPortDesc, "The ending port is described as: %s.")
	add(a.categories, "The cruise belongs to the following categories: %s.")
	add(a.categoryDescs, "The cruise categories are described as: %s.")
	add(a.categoryType, "The cruise category type is %s.")

	return strings.Join(parts, " ")
}
