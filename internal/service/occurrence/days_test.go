package occurrence

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDays_SingleDay(t *testing.T) {
	d := day(2024, time.January, 10)

	got := Days(d, d)

	if len(got) != 1 {
		t.Fatalf("got %d days, want 1", len(got))
	}
	if !got[0].Equal(d) {
		t.Errorf("day[0]: got %v, want %v", got[0], d)
	}
}

func TestDays_InclusiveRange(t *testing.T) {
	start := day(2024, time.January, 10)
	end := day(2024, time.January, 13)

	got := Days(start, end)

	if len(got) != 4 {
		t.Fatalf("got %d days, want 4", len(got))
	}
	for i, d := range got {
		want := start.AddDate(0, 0, i)
		if !d.Equal(want) {
			t.Errorf("day[%d]: got %v, want %v", i, d, want)
		}
	}
}

func TestDays_CapEnforced(t *testing.T) {
	start := day(2024, time.January, 1)
	end := start.AddDate(0, 0, 60)

	got := Days(start, end)

	if len(got) != MaxDays {
		t.Fatalf("got %d days, want %d", len(got), MaxDays)
	}
	if !got[0].Equal(start) {
		t.Errorf("first day: got %v, want %v", got[0], start)
	}
	wantLast := start.AddDate(0, 0, MaxDays-1)
	if !got[len(got)-1].Equal(wantLast) {
		t.Errorf("last day: got %v, want %v", got[len(got)-1], wantLast)
	}
}

func TestDays_InvertedRangeClamped(t *testing.T) {
	start := day(2024, time.March, 5)
	end := day(2024, time.March, 1)

	got := Days(start, end)

	if len(got) != 1 {
		t.Fatalf("got %d days, want 1", len(got))
	}
	if !got[0].Equal(start) {
		t.Errorf("day[0]: got %v, want %v", got[0], start)
	}
}

func TestDays_NormalizesTimeComponent(t *testing.T) {
	start := time.Date(2024, time.June, 1, 17, 45, 12, 0, time.UTC)

	got := Days(start, start)

	want := day(2024, time.June, 1)
	if len(got) != 1 || !got[0].Equal(want) {
		t.Fatalf("got %v, want [%v]", got, want)
	}
}

func TestDays_CrossesMonthBoundary(t *testing.T) {
	start := day(2024, time.January, 30)
	end := day(2024, time.February, 2)

	got := Days(start, end)

	if len(got) != 4 {
		t.Fatalf("got %d days, want 4", len(got))
	}
	if got[2].Month() != time.February || got[2].Day() != 1 {
		t.Errorf("day[2]: got %v, want 2024-02-01", got[2])
	}
}
