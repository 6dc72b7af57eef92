package configs

import (
	"github.com/goodsign/monday"
	"golang.org/x/text/language"

	"github.com/Humphrey-He/propview/pkg/format"
)

// dateLocales maps a base language to the month-name table used for long dates.
var dateLocales = map[string]monday.Locale{
	"de": monday.LocaleDeDE,
	"es": monday.LocaleEsES,
	"fr": monday.LocaleFrFR,
	"ru": monday.LocaleRuRU,
}

// Formatter builds the display formatter for these locale settings.
// Prices group digits the way Tag does unless Grouping overrides it.
// An unparseable tag falls back to British English month names.
//
// Formatter 根据这些区域设置构建显示格式化器。
// 无法解析的标签回退到英式英语月份名称。
func (l LocaleConfig) Formatter() *format.Formatter {
	f := format.Default()
	if l.CurrencySymbol != "" {
		f.Symbol = l.CurrencySymbol
	}
	switch l.Grouping {
	case "indian":
		f.Numbers = format.Indian
	case "western":
		f.Numbers = format.Western
	default:
		if t, err := language.Parse(l.Tag); err == nil {
			f.Numbers = t
		}
	}
	if l.DateLayout != "" {
		f.DateLayout = l.DateLayout
	}
	if l.PhonePrefix != "" {
		f.PhonePrefix = l.PhonePrefix
	}
	f.DateLocale = dateLocale(l.Tag)
	return f
}

func dateLocale(tag string) monday.Locale {
	t, err := language.Parse(tag)
	if err != nil {
		return monday.LocaleEnGB
	}
	base, _ := t.Base()
	if loc, ok := dateLocales[base.String()]; ok {
		return loc
	}
	if region, _ := t.Region(); base.String() == "en" && region.String() == "US" {
		return monday.LocaleEnUS
	}
	return monday.LocaleEnGB
}
