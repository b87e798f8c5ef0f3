package csv

import (
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want [][]string
	}{
		{
			name: "simple rows",
			text: "Name,Price\nWidget,9\nGadget,12\n",
			want: [][]string{{"Name", "Price"}, {"Widget", "9"}, {"Gadget", "12"}},
		},
		{
			name: "no trailing newline keeps last row",
			text: "Name\nWidget",
			want: [][]string{{"Name"}, {"Widget"}},
		},
		{
			name: "CRLF line endings",
			text: "Name,Price\r\nWidget,9\r\n",
			want: [][]string{{"Name", "Price"}, {"Widget", "9"}},
		},
		{
			name: "bare CR line endings",
			text: "Name\rWidget\r",
			want: [][]string{{"Name"}, {"Widget"}},
		},
		{
			name: "blank lines collapse",
			text: "Name\n\n\nWidget\n\n",
			want: [][]string{{"Name"}, {"Widget"}},
		},
		{
			name: "quoted comma and escaped quote",
			text: "Name,Note\n\"Bolt, 10\"\"\",ok\n",
			want: [][]string{{"Name", "Note"}, {"Bolt, 10\"", "ok"}},
		},
		{
			name: "quoted newline stays in cell",
			text: "Name\n\"two\nlines\"\n",
			want: [][]string{{"Name"}, {"two\nlines"}},
		},
		{
			name: "empty trailing cells are kept",
			text: "Name\nWidget,9\nGadget,\n,\n",
			want: [][]string{{"Name"}, {"Widget", "9"}, {"Gadget", ""}, {"", ""}},
		},
		{
			name: "unterminated quote degrades without error",
			text: "Name\n\"Widget,9\n",
			want: [][]string{{"Name"}, {"Widget,9\n"}},
		},
		{
			name: "empty input",
			text: "",
			want: [][]string{},
		},
		{
			name: "multibyte content",
			text: "Name\nCafé crème\n",
			want: [][]string{{"Name"}, {"Café crème"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestParse_RowCountMatchesDataRows(t *testing.T) {
	for _, h := range []int{1, 2, 7, 50} {
		var b strings.Builder
		b.WriteString("Name,SKU\n")
		for i := 0; i < h; i++ {
			b.WriteString("item,sku\n")
		}

		_, data, ok := SplitHeader(Parse(b.String()))
		if !ok {
			t.Fatalf("SplitHeader reported no data rows for H=%d", h)
		}
		if len(data) != h {
			t.Errorf("data rows = %d, want %d", len(data), h)
		}
	}
}

func TestParse_QuotedRoundTrip(t *testing.T) {
	original := `Deluxe "Pro" stand, large, black`
	quoted := `"` + strings.ReplaceAll(original, `"`, `""`) + `"`

	rows := Parse("Name\n" + quoted + "\n")
	if len(rows) != 2 || len(rows[1]) != 1 {
		t.Fatalf("unexpected rows: %q", rows)
	}
	if rows[1][0] != original {
		t.Errorf("round trip = %q, want %q", rows[1][0], original)
	}
}

func TestSplitHeader(t *testing.T) {
	if _, _, ok := SplitHeader([][]string{{"Name"}}); ok {
		t.Error("SplitHeader(header only) ok = true, want false")
	}
	if _, _, ok := SplitHeader(nil); ok {
		t.Error("SplitHeader(nil) ok = true, want false")
	}

	header, data, ok := SplitHeader([][]string{{"Name"}, {"Widget"}})
	if !ok {
		t.Fatal("SplitHeader ok = false, want true")
	}
	if !reflect.DeepEqual(header, []string{"Name"}) {
		t.Errorf("header = %q", header)
	}
	if len(data) != 1 {
		t.Errorf("len(data) = %d, want 1", len(data))
	}
}
