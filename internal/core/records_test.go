package core

import (
	"errors"
	"testing"

	"github.com/JonMunkholm/ImageFinder/internal/csv"
)

func TestBuildWorkItems(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		rows   [][]string
		column int
		want   []WorkItem
	}{
		{
			name:   "names trimmed",
			header: []string{"Name"},
			rows:   [][]string{{"  Widget "}, {"Gadget"}},
			column: 0,
			want:   []WorkItem{{0, "Widget"}, {1, "Gadget"}},
		},
		{
			name:   "blank cells dropped without renumbering",
			header: []string{"SKU", "Name"},
			rows:   [][]string{{"1", "Lamp"}, {"2", "   "}, {"3", "Desk"}},
			column: 1,
			want:   []WorkItem{{0, "Lamp"}, {2, "Desk"}},
		},
		{
			name:   "missing cell gets placeholder",
			header: []string{"SKU", "Name"},
			rows:   [][]string{{"1", "Lamp"}, {"2"}},
			column: 1,
			want:   []WorkItem{{0, "Lamp"}, {1, "Row 2 product"}},
		},
		{
			name:   "no rows",
			header: []string{"Name"},
			rows:   nil,
			column: 0,
			want:   []WorkItem{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildWorkItems(tt.rows, tt.header, tt.column)
			if err != nil {
				t.Fatalf("BuildWorkItems() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("BuildWorkItems() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("item[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildWorkItems_ColumnOutOfRange(t *testing.T) {
	header := []string{"A", "B"}
	for _, col := range []int{-1, 2, 10} {
		_, err := BuildWorkItems([][]string{{"x", "y"}}, header, col)
		if !errors.Is(err, ErrUnsupportedInput) {
			t.Errorf("column %d: error = %v, want ErrUnsupportedInput", col, err)
		}
	}
}

func TestBuildWorkItems_FromParsedFile(t *testing.T) {
	header, data, ok := csv.SplitHeader(csv.Parse("Name\nWidget,9\nGadget,\n,\n"))
	if !ok {
		t.Fatal("SplitHeader() ok = false")
	}

	got, err := BuildWorkItems(data, header, 0)
	if err != nil {
		t.Fatalf("BuildWorkItems() error = %v", err)
	}
	want := []WorkItem{{ID: 0, Name: "Widget"}, {ID: 1, Name: "Gadget"}}
	if len(got) != len(want) {
		t.Fatalf("BuildWorkItems() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
