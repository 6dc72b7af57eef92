package format

import (
	"testing"
	"time"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, PriceOnRequest},
		{0.4, PriceOnRequest},
		{999, "₹999"},
		{1000, "₹1,000"},
		{100000, "₹1,00,000"},
		{8500000, "₹85,00,000"},
		{15000000, "₹1,50,00,000"},
		{8500000.5, "₹85,00,001"},
	}
	for _, tt := range tests {
		if got := Price(tt.in); got != tt.want {
			t.Errorf("Price(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPriceLargeValues(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{123456, "₹1,23,456"},
		{12345678, "₹1,23,45,678"},
		{1234567890, "₹1,23,45,67,890"},
		{-8500000, "-₹85,00,000"},
	}
	for _, tt := range tests {
		if got := Price(tt.in); got != tt.want {
			t.Errorf("Price(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWesternGrouping(t *testing.T) {
	f := Default()
	f.Numbers = Western
	f.Symbol = "$"
	if got := f.Price(8500000); got != "$8,500,000" {
		t.Errorf("Expected $8,500,000, got %q", got)
	}
	if got := f.Price(123); got != "$123" {
		t.Errorf("Expected $123, got %q", got)
	}
}

func TestArea(t *testing.T) {
	if got := Area(""); got != "N/A" {
		t.Errorf("Expected Area(\"\") to be N/A, got %q", got)
	}
	if got := Area("1200 sq ft"); got != "1200 sq ft" {
		t.Errorf("Expected pass-through, got %q", got)
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "N/A"},
		{"9876543210", "+91 98765 43210"},
		{"98765-43210", "+91 98765 43210"},
		{"(987) 654 3210", "+91 98765 43210"},
		{"12345", "12345"},
		{"+91 98765 43210", "+91 98765 43210"},
	}
	for _, tt := range tests {
		if got := Phone(tt.in); got != tt.want {
			t.Errorf("Phone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "N/A"},
		{"2026-10-18", "18 October 2026"},
		{"2025-01-02T10:20:30", "2 January 2025"},
		{"2025-01-02T10:20:30.123456", "2 January 2025"},
		{"2025-03-04T05:06:07Z", "4 March 2025"},
		{"not a date", "not a date"},
	}
	for _, tt := range tests {
		if got := Date(tt.in); got != tt.want {
			t.Errorf("Date(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTime(t *testing.T) {
	f := Default()
	if got := f.Time(time.Time{}); got != "N/A" {
		t.Errorf("Expected zero time to be N/A, got %q", got)
	}
	if got := f.Time(time.Date(2024, time.July, 9, 0, 0, 0, 0, time.UTC)); got != "9 July 2024" {
		t.Errorf("Expected '9 July 2024', got %q", got)
	}
}

func TestCount(t *testing.T) {
	if got := Count(nil); got != "N/A" {
		t.Errorf("Expected Count(nil) to be N/A, got %q", got)
	}
	zero := 0
	if got := Count(&zero); got != "0" {
		t.Errorf("Expected Count(0) to be 0, got %q", got)
	}
}

func TestInitials(t *testing.T) {
	if got := Initials("asha", "rao"); got != "AR" {
		t.Errorf("Expected AR, got %q", got)
	}
	if got := Initials("", "rao"); got != "R" {
		t.Errorf("Expected R, got %q", got)
	}
}
