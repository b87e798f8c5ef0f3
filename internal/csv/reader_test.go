package csv

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestDecode_SkipsBOM(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Name\nWidget\n")...)

	rows, err := Decode(bytes.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0][0] != "Name" {
		t.Errorf("header = %q, want %q", rows[0][0], "Name")
	}
}

func TestDecode_SanitizesInvalidUTF8(t *testing.T) {
	input := []byte("Name\nCaf\xe9\n")

	rows, err := Decode(bytes.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := rows[1][0]; got != "Caf?" {
		t.Errorf("sanitized cell = %q, want %q", got, "Caf?")
	}
}

func TestDecode_SplitRuneAcrossReads(t *testing.T) {
	// OneByteReader forces every multi-byte rune to straddle reads.
	input := "Name\nCafé crème\n"

	rows, err := Decode(iotest.OneByteReader(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := rows[1][0]; got != "Café crème" {
		t.Errorf("cell = %q, want %q", got, "Café crème")
	}
}

func TestDecode_ShortInputWithoutBOM(t *testing.T) {
	rows, err := Decode(strings.NewReader("A"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(rows) != 1 || rows[0][0] != "A" {
		t.Errorf("rows = %q, want [[A]]", rows)
	}
}

func TestDecode_PropagatesReadError(t *testing.T) {
	boom := errors.New("disk gone")

	_, err := Decode(iotest.ErrReader(boom))
	if !errors.Is(err, boom) {
		t.Errorf("Decode() error = %v, want wrapping %v", err, boom)
	}
}

func TestNewReader_Empty(t *testing.T) {
	data, err := io.ReadAll(NewReader(strings.NewReader("")))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(data) != 0 {
		t.Errorf("len(data) = %d, want 0", len(data))
	}
}
