package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    Language
		wantErr bool
	}{
		{"en", English, false},
		{"es", Spanish, false},
		{"es-MX", Spanish, false},
		{"en_US", English, false},
		{"Spanish", Spanish, false},
		{"español", Spanish, false},
		{"", "", true},
		{"not a tag!", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLanguage(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLanguage) {
					t.Fatalf("expected ErrInvalidLanguage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseMysteryType(t *testing.T) {
	for _, m := range MysteryTypes {
		got, err := ParseMysteryType(string(m))
		if err != nil || got != m {
			t.Fatalf("parse %s: got %s, %v", m, got, err)
		}
	}
	if _, err := ParseMysteryType("cheerful"); !errors.Is(err, ErrInvalidMystery) {
		t.Fatalf("expected ErrInvalidMystery, got %v", err)
	}
}

func TestMysteryForDay(t *testing.T) {
	want := map[time.Weekday]MysteryType{
		time.Sunday:    Glorious,
		time.Monday:    Joyful,
		time.Tuesday:   Sorrowful,
		time.Wednesday: Glorious,
		time.Thursday:  Luminous,
		time.Friday:    Sorrowful,
		time.Saturday:  Joyful,
	}
	for d, m := range want {
		if got := MysteryForDay(d); got != m {
			t.Fatalf("%s: expected %s, got %s", d, m, got)
		}
	}
}

func TestStepTypeRoundTrip(t *testing.T) {
	for st := StepSignOfCrossStart; st <= StepComplete; st++ {
		got, ok := StepTypeFromString(st.String())
		if !ok || got != st {
			t.Fatalf("%d: round trip via %q failed", st, st.String())
		}
	}
}

func TestLitanyRows(t *testing.T) {
	l := &LitanyData{
		InitialPetitions:   []LitanyPair{{"a", "A"}, {"b", "B"}},
		TrinityInvocations: []LitanyPair{{"c", "C"}},
		MaryInvocations:    []LitanyPair{{"d", "D"}, {"e", "E"}, {"f", "F"}},
		AgnusDei:           []LitanyPair{{"g", "G"}},
	}
	if l.RowCount() != 7 {
		t.Fatalf("expected 7 rows, got %d", l.RowCount())
	}
	pair, group, ok := l.Row(3)
	if !ok || pair.Call != "d" || group != LitanyMaryInvocations {
		t.Fatalf("row 3: got %+v %s %v", pair, group, ok)
	}
	if _, _, ok := l.Row(7); ok {
		t.Fatal("row 7 should be out of range")
	}
	if got := l.GroupStart(LitanyAgnusDei); got != 6 {
		t.Fatalf("agnus dei start: expected 6, got %d", got)
	}
}

func TestProgressIsCurrent(t *testing.T) {
	now := time.Date(2026, 10, 18, 21, 0, 0, 0, time.UTC)
	p := Progress{Date: "2026-10-18"}
	if !p.IsCurrent(now) {
		t.Fatal("expected progress from today to be current")
	}
	p.Date = "2026-10-17"
	if p.IsCurrent(now) {
		t.Fatal("expected progress from yesterday to be stale")
	}
}
