// Package locale resolves the configured language and country into the tag and
// settlement currency the rest of the service formats and charges with.
package locale

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

type Locale struct {
	Tag      language.Tag
	Region   language.Region
	Currency currency.Unit
}

// Parse combines a language ("en", "pt") and a country ("US", "BR") into a
// Locale. When currencyCode is empty the region's current tender is used.
func Parse(lang, country, currencyCode string) (Locale, error) {
	base, err := language.ParseBase(lang)
	if err != nil {
		return Locale{}, fmt.Errorf("locale: language %q: %w", lang, err)
	}
	region, err := language.ParseRegion(country)
	if err != nil {
		return Locale{}, fmt.Errorf("locale: country %q: %w", country, err)
	}
	tag, err := language.Compose(base, region)
	if err != nil {
		return Locale{}, fmt.Errorf("locale: compose %s-%s: %w", lang, country, err)
	}

	var unit currency.Unit
	if currencyCode != "" {
		unit, err = currency.ParseISO(currencyCode)
		if err != nil {
			return Locale{}, fmt.Errorf("locale: currency %q: %w", currencyCode, err)
		}
	} else {
		var ok bool
		unit, ok = currency.FromRegion(region)
		if !ok {
			return Locale{}, fmt.Errorf("locale: no currency for country %q", country)
		}
	}

	return Locale{Tag: tag, Region: region, Currency: unit}, nil
}

// CurrencyCode is the ISO 4217 code of the settlement currency.
func (l Locale) CurrencyCode() string { return l.Currency.String() }

func (l Locale) String() string { return l.Tag.String() }
