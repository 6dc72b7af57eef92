// Package format converts raw listing fields into display strings.
// Every function is total: missing input degrades to a placeholder
// instead of failing.
//
// Package format 将原始房源字段转换为显示字符串。
// 每个函数都是全函数：缺失的输入降级为占位符而不是失败。
package format

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholders returned for missing input.
const (
	PriceOnRequest = "Price on request"
	NotApplicable  = "N/A"
)

// Number locales for the two grouping styles.
var (
	// Indian groups the last three digits, then pairs: 85,00,000.
	Indian = language.MustParse("en-IN")
	// Western groups in threes: 8,500,000.
	Western = language.AmericanEnglish
)

// Formatter carries locale options. The zero value is not usable;
// use Default and override fields.
type Formatter struct {
	Symbol string
	// Numbers is the locale whose digit grouping prices use.
	Numbers     language.Tag
	DateLayout  string
	DateLocale  monday.Locale
	PhonePrefix string
}

// Default returns the en-IN formatter used by the package-level helpers.
func Default() *Formatter {
	return &Formatter{
		Symbol:      "₹",
		Numbers:     Indian,
		DateLayout:  "2 January 2006",
		DateLocale:  monday.LocaleEnGB,
		PhonePrefix: "+91",
	}
}

var std = Default()

// Price formats a price with zero fraction digits, or PriceOnRequest when zero.
func Price(price float64) string { return std.Price(price) }

// Area returns the area or N/A.
func Area(area string) string { return std.Area(area) }

// Phone formats a phone number.
func Phone(phone string) string { return std.Phone(phone) }

// Date formats a backend date string in long form.
func Date(date string) string { return std.Date(date) }

// Count formats an optional count such as bedrooms.
func Count(n *int) string { return std.Count(n) }

// Price formats a price with zero fraction digits.
func (f *Formatter) Price(price float64) string {
	if price == 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return PriceOnRequest
	}

	rounded := math.Round(price)
	if rounded == 0 {
		return PriceOnRequest
	}
	neg := rounded < 0
	grouped := message.NewPrinter(f.Numbers).Sprintf("%d", int64(math.Abs(rounded)))

	if neg {
		return "-" + f.Symbol + grouped
	}
	return f.Symbol + grouped
}

// Area returns the area unchanged or N/A.
func (f *Formatter) Area(area string) string {
	if strings.TrimSpace(area) == "" {
		return NotApplicable
	}
	return area
}

// Phone strips non-digits; exactly ten digits become "+91 XXXXX XXXXX",
// anything else is returned as given.
func (f *Formatter) Phone(phone string) string {
	if phone == "" {
		return NotApplicable
	}

	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	if len(cleaned) == 10 {
		local := cleaned[:5] + " " + cleaned[5:]
		if f.PhonePrefix == "" {
			return local
		}
		return f.PhonePrefix + " " + local
	}
	return phone
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Date renders a backend timestamp as a long-form date such as
// "18 October 2026". Unparseable input is returned unchanged.
func (f *Formatter) Date(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return NotApplicable
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return monday.Format(t, f.DateLayout, f.DateLocale)
		}
	}
	return date
}

// Time renders a time value as a long-form date.
func (f *Formatter) Time(t time.Time) string {
	if t.IsZero() {
		return NotApplicable
	}
	return monday.Format(t, f.DateLayout, f.DateLocale)
}

// Count returns N/A for nil, the number otherwise.
func (f *Formatter) Count(n *int) string {
	if n == nil {
		return NotApplicable
	}
	return strconv.Itoa(*n)
}

// Initials returns up to two upper-case initials for an avatar badge.
func Initials(first, last string) string {
	var out []rune
	for _, s := range []string{first, last} {
		for _, r := range strings.TrimSpace(s) {
			out = append(out, unicode.ToUpper(r))
			break
		}
	}
	return string(out)
}
