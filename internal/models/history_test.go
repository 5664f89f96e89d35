package models

import (
	"testing"
)

func TestTimeRange(t *testing.T) {
	tests := []struct {
		tr         TimeRange
		label      string
		flag       string
		days       int
		next, prev TimeRange
	}{
		{TimeRange24Hours, "24 Hours", "24h", 1, TimeRange7Days, TimeRangeAllTime},
		{TimeRange7Days, "7 Days", "7d", 7, TimeRange30Days, TimeRange24Hours},
		{TimeRange30Days, "30 Days", "30d", 30, TimeRangeAllTime, TimeRange7Days},
		{TimeRangeAllTime, "All Time", "all", 0, TimeRange24Hours, TimeRange30Days},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			if got := tt.tr.String(); got != tt.label {
				t.Errorf("String() = %q, want %q", got, tt.label)
			}
			if got := tt.tr.Flag(); got != tt.flag {
				t.Errorf("Flag() = %q, want %q", got, tt.flag)
			}
			if got := tt.tr.Days(); got != tt.days {
				t.Errorf("Days() = %d, want %d", got, tt.days)
			}
			if got := tt.tr.Next(); got != tt.next {
				t.Errorf("Next() = %v, want %v", got, tt.next)
			}
			if got := tt.tr.Prev(); got != tt.prev {
				t.Errorf("Prev() = %v, want %v", got, tt.prev)
			}
		})
	}

	if TimeRange(999).String() != "Unknown" || TimeRange(999).Days() != 30 {
		t.Error("out-of-range values should read as Unknown spanning 30 days")
	}
}

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeRange
		wantErr bool
	}{
		{"24h", TimeRange24Hours, false},
		{"7d", TimeRange7Days, false},
		{" 30D ", TimeRange30Days, false},
		{"all", TimeRangeAllTime, false},
		{"fortnight", TimeRange7Days, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeRange(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimeRange(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTimeRange(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTimeRange_FlagRoundTrip(t *testing.T) {
	for _, tr := range []TimeRange{TimeRange24Hours, TimeRange7Days, TimeRange30Days, TimeRangeAllTime} {
		got, err := ParseTimeRange(tr.Flag())
		if err != nil || got != tr {
			t.Errorf("ParseTimeRange(%q) = %v, %v; want %v", tr.Flag(), got, err, tr)
		}
	}
}

func TestUsageHistory(t *testing.T) {
	var empty UsageHistory
	if empty.HasData() {
		t.Error("an empty history has no data")
	}
	if hour, v := empty.GetPeakHour(); hour != 0 || v != 0 {
		t.Errorf("empty peak = %d/%v, want 0/0", hour, v)
	}

	h := UsageHistory{
		TotalRequests: 5,
		HourlyPatterns: []HourlyPattern{
			{Hour: 1, AvgRequests: 10},
			{Hour: 15, AvgRequests: 100},
			{Hour: 16, AvgRequests: 100},
			{Hour: 20, AvgRequests: 50.5},
		},
	}
	if !h.HasData() {
		t.Error("HasData should be true with requests")
	}
	hour, v := h.GetPeakHour()
	if hour != 15 || v != 100 {
		t.Errorf("peak = %d/%v, want the first busiest hour 15/100", hour, v)
	}
}
