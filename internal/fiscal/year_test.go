package fiscal

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSort(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "mixed eras",
			input: []string{"R6", "H27", "H28", "R5"},
			want:  []string{"H27", "H28", "R5", "R6"},
		},
		{
			name:  "numeric within era",
			input: []string{"R10", "R2", "R1"},
			want:  []string{"R1", "R2", "R10"},
		},
		{
			name:  "older era first regardless of number",
			input: []string{"R1", "H31", "H30"},
			want:  []string{"H30", "H31", "R1"},
		},
		{
			name:  "empty",
			input: []string{},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sort(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Sort() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSort_IndependentOfInputOrder(t *testing.T) {
	labels := []string{"H27", "H28", "H29", "H30", "R1", "R2", "R3", "R4", "R5", "R6"}
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), labels...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		if diff := cmp.Diff(labels, Sort(shuffled)); diff != "" {
			t.Fatalf("Sort(%v) mismatch (-want +got):\n%s", shuffled, diff)
		}
	}
}

func TestSort_DoesNotModifyInput(t *testing.T) {
	input := []string{"R6", "H27"}
	_ = Sort(input)
	if input[0] != "R6" || input[1] != "H27" {
		t.Errorf("Sort() modified its input: %v", input)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		label   string
		want    Year
		wantErr bool
	}{
		{"H27", Year{Era: "H", Number: 27}, false},
		{"R6", Year{Era: "R", Number: 6}, false},
		{"S60", Year{}, true},
		{"R", Year{}, true},
		{"Rx", Year{}, true},
		{"", Year{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := Parse(tt.label)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidLabel) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidLabel", tt.label, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.label, got, tt.want)
			}
			if err == nil && got.String() != tt.label {
				t.Errorf("String() = %q, want %q", got.String(), tt.label)
			}
		})
	}
}

func TestDefaultSelection(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		want      []string
	}{
		{"many years", []string{"R6", "H27", "R5", "R4"}, []string{"R5", "R6"}},
		{"two years", []string{"R6", "R5"}, []string{"R5", "R6"}},
		{"one year", []string{"H30"}, []string{"H30"}},
		{"none", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultSelection(tt.available)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DefaultSelection() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateSelection(t *testing.T) {
	available := []string{"H30", "R1", "R2", "R3", "R4", "R5", "R6"}

	tests := []struct {
		name     string
		selected []string
		wantErr  bool
	}{
		{"valid out of order", []string{"R6", "R4", "R5"}, false},
		{"empty", nil, true},
		{"too many", []string{"H30", "R1", "R2", "R3", "R4", "R5"}, true},
		{"duplicate", []string{"R5", "R5"}, true},
		{"unknown", []string{"R7"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSelection(tt.selected, available)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSelection() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSelection) {
				t.Errorf("ValidateSelection() error = %v, want ErrInvalidSelection", err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" R6, R4 ,,R5")
	want := []string{"R6", "R4", "R5"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SplitList() mismatch (-want +got):\n%s", diff)
	}
}

func TestYear_Ordinal(t *testing.T) {
	labels := []string{"H9", "H31", "R1", "R6", "R10"}
	prev := -1
	for _, l := range labels {
		y, err := Parse(l)
		if err != nil {
			t.Fatal(err)
		}
		if y.Ordinal() <= prev {
			t.Errorf("Ordinal(%s) = %d, not above previous %d", l, y.Ordinal(), prev)
		}
		prev = y.Ordinal()
	}
}

func TestYear_Gregorian(t *testing.T) {
	tests := map[string]int{"H27": 2015, "H30": 2018, "R1": 2019, "R6": 2024}
	for label, want := range tests {
		y, err := Parse(label)
		if err != nil {
			t.Fatal(err)
		}
		if got := y.Gregorian(); got != want {
			t.Errorf("Gregorian(%s) = %d, want %d", label, got, want)
		}
	}
}
