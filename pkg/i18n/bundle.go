package i18n

// Message keys used by the visualization.
const (
	KeyTitle          = "viz.title"
	KeyUnknownCountry = "label.country.unknown"
	KeyNoCollection   = "label.collection.none"
	KeyAllCountries   = "breadcrumb.all"
	KeyItems          = "summary.items"
	KeyWords          = "summary.words"
	KeyAverage        = "summary.average"
	KeyLoading        = "placeholder.loading"
	KeyDataError      = "placeholder.error"
	KeyNoData         = "placeholder.empty"
)

// Bundle holds message tables for the supported languages.
// Lookup order: requested language → default language → key itself.
type Bundle struct {
	messages    map[string]map[string]string
	defaultLang string
}

// NewBundle creates the built-in bundle (en, de, fr) with English fallback.
func NewBundle() *Bundle {
	return &Bundle{
		defaultLang: "en",
		messages: map[string]map[string]string{
			"en": {
				KeyTitle:          "Word distribution",
				KeyUnknownCountry: "Unknown",
				KeyNoCollection:   "No set",
				KeyAllCountries:   "All countries",
				KeyItems:          "Items",
				KeyWords:          "Total words",
				KeyAverage:        "Avg. words per item",
				KeyLoading:        "Loading…",
				KeyDataError:      "Data unavailable",
				KeyNoData:         "No data",
			},
			"de": {
				KeyTitle:          "Wortverteilung",
				KeyUnknownCountry: "Unbekannt",
				KeyNoCollection:   "Kein Set",
				KeyAllCountries:   "Alle Länder",
				KeyItems:          "Einträge",
				KeyWords:          "Wörter gesamt",
				KeyAverage:        "Ø Wörter pro Eintrag",
				KeyLoading:        "Wird geladen…",
				KeyDataError:      "Daten nicht verfügbar",
				KeyNoData:         "Keine Daten",
			},
			"fr": {
				KeyTitle:          "Répartition des mots",
				KeyUnknownCountry: "Inconnu",
				KeyNoCollection:   "Sans recueil",
				KeyAllCountries:   "Tous les pays",
				KeyItems:          "Éléments",
				KeyWords:          "Total des mots",
				KeyAverage:        "Mots par élément (moy.)",
				KeyLoading:        "Chargement…",
				KeyDataError:      "Données indisponibles",
				KeyNoData:         "Aucune donnée",
			},
		},
	}
}

// NewBundleWithMessages creates a bundle from custom message tables.
// Intended for hosts that ship their own translations.
func NewBundleWithMessages(messages map[string]map[string]string, defaultLang string) *Bundle {
	if defaultLang == "" {
		defaultLang = "en"
	}
	return &Bundle{messages: messages, defaultLang: defaultLang}
}

// Languages returns the codes this bundle has message tables for.
func (b *Bundle) Languages() []string {
	langs := make([]string, 0, len(b.messages))
	for code := range b.messages {
		langs = append(langs, code)
	}
	return langs
}

// Translator returns a translator bound to the given language.
// Unknown languages resolve through the default-language fallback.
func (b *Bundle) Translator(code string) Translator {
	return &translator{
		bundle:  b,
		code:    code,
		printer: newPrinter(code),
	}
}

// lookup resolves key for lang with fallback to the default language,
// then to the key itself.
func (b *Bundle) lookup(lang, key string) string {
	if table, ok := b.messages[lang]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if table, ok := b.messages[b.defaultLang]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	return key
}
