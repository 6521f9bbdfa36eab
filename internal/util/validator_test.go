package util

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"50.00", "50", false},
		{"0.01", "0.01", false},
		{"1234.56", "1234.56", false},
		{"9999999.99", "9999999.99", false},
		{"0", "", true},
		{"0.00", "", true},
		{"-5.00", "", true},
		{"10000000", "", true},
		{"abc", "", true},
		{"", "", true},
		{"1,000", "", true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q) = %s, want error", tc.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q) error = %v", tc.input, err)
			continue
		}
		want, _ := decimal.NewFromString(tc.want)
		if !got.Equal(want) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tc.input, got, want)
		}
	}
}

func TestValidateDate(t *testing.T) {
	for _, ok := range []string{"2026-08-31", "2000-01-01", "2024-02-29"} {
		if err := ValidateDate(ok); err != nil {
			t.Errorf("ValidateDate(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "31/08/2026", "2026-13-01", "2026-08-31T00:00:00Z", "yesterday"} {
		if err := ValidateDate(bad); err == nil {
			t.Errorf("ValidateDate(%q) = nil, want error", bad)
		}
	}
}

func TestValidateCurrency(t *testing.T) {
	for _, ok := range []string{"HKD", "USD", "EUR"} {
		if err := ValidateCurrency(ok); err != nil {
			t.Errorf("ValidateCurrency(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "hkd", "HK", "HKDD", "HK1", "hk$"} {
		if err := ValidateCurrency(bad); err == nil {
			t.Errorf("ValidateCurrency(%q) = nil, want error", bad)
		}
	}
}
