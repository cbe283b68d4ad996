package fidate

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/rumor-ml/commons.systems/fidelity/internal/domain"
)

func TestEpochSeconds(t *testing.T) {
	tests := []struct {
		name string
		date civil.Date
		want int64
	}{
		{
			name: "EDT date",
			date: civil.Date{Year: 2025, Month: 9, Day: 30},
			want: 1759204800,
		},
		{
			name: "next EDT day is exactly 86400 later",
			date: civil.Date{Year: 2025, Month: 10, Day: 1},
			want: 1759291200,
		},
		{
			name: "EST date after fall-back",
			date: civil.Date{Year: 2025, Month: 11, Day: 28},
			want: 1764306000,
		},
		{
			name: "EST date in December",
			date: civil.Date{Year: 2025, Month: 12, Day: 2},
			want: 1764651600,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EpochSeconds(tt.date); got != tt.want {
				t.Errorf("EpochSeconds(%v) = %d; want %d", tt.date, got, tt.want)
			}
		})
	}
}

func TestEpochSecondsDSTTransition(t *testing.T) {
	// DST ended 2025-11-02 in America/New_York: that calendar day is 25 hours
	// long, so consecutive midnights are 90000 seconds apart, not 86400.
	before := EpochSeconds(civil.Date{Year: 2025, Month: 11, Day: 2})
	after := EpochSeconds(civil.Date{Year: 2025, Month: 11, Day: 3})
	if diff := after - before; diff != 90000 {
		t.Errorf("midnight delta across fall-back = %d; want 90000", diff)
	}

	// Spring forward 2025-03-09: a 23-hour day.
	before = EpochSeconds(civil.Date{Year: 2025, Month: 3, Day: 9})
	after = EpochSeconds(civil.Date{Year: 2025, Month: 3, Day: 10})
	if diff := after - before; diff != 82800 {
		t.Errorf("midnight delta across spring-forward = %d; want 82800", diff)
	}
}

func TestParseHistoryDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    civil.Date
		wantErr bool
	}{
		{
			name:  "valid date",
			input: "Nov-28-2025",
			want:  civil.Date{Year: 2025, Month: 11, Day: 28},
		},
		{
			name:  "valid date in another month",
			input: "Sep-30-2025",
			want:  civil.Date{Year: 2025, Month: 9, Day: 30},
		},
		{
			name:    "ISO format rejected",
			input:   "2025-11-28",
			wantErr: true,
		},
		{
			name:    "full month name rejected",
			input:   "November-28-2025",
			wantErr: true,
		},
		{
			name:    "empty string rejected",
			input:   "",
			wantErr: true,
		},
		{
			name:    "placeholder text rejected",
			input:   "Processing",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHistoryDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseHistoryDate(%q) should fail", tt.input)
				}
				if !errors.Is(err, &domain.Error{Kind: domain.KindFormat}) {
					t.Errorf("error should be a format error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHistoryDate(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseHistoryDate(%q) = %v; want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseHistoryDateRoundTrip(t *testing.T) {
	d, err := ParseHistoryDate("Dec-02-2025")
	if err != nil {
		t.Fatalf("ParseHistoryDate failed: %v", err)
	}
	if got := EpochSeconds(d); got != 1764651600 {
		t.Errorf("EpochSeconds after parse = %d; want 1764651600", got)
	}
}
