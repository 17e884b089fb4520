package deck

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func newLoader() *Loader {
	return &Loader{
		Sheet:        "シート1",
		IDColumn:     "#",
		FirstColumn:  "上の句",
		SecondColumn: "下の句",
	}
}

// workbook builds an in-memory xlsx with rows written to sheet.
func workbook(t *testing.T, sheet string, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("SetSheetName: %v", err)
		}
	}
	for i := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName: %v", err)
		}
		if err := f.SetSheetRow(sheet, ref, &rows[i]); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestLoadWorkbook(t *testing.T) {
	data := workbook(t, "シート1", [][]interface{}{
		{"#", "上の句", "下の句"},
		{1, "  秋の田の かりほの庵の 苫をあらみ ", "わが衣手は 露にぬれつつ"},
		{2, "春過ぎて 夏来にけらし 白妙の", "衣ほすてふ 天の香具山"},
		{"", "no id", "dropped"},
		{"abc", "bad id", "dropped"},
		{3, "あしびきの", "ながながし夜を"},
	})

	deck, err := newLoader().Load(FromBytes("hyakunin.xlsx", data))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if deck.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", deck.Len())
	}
	card, ok := deck.Card(1)
	if !ok {
		t.Fatal("card 1 missing")
	}
	if card.FirstPhrase != "秋の田の かりほの庵の 苫をあらみ" {
		t.Errorf("FirstPhrase not trimmed: %q", card.FirstPhrase)
	}
	if card.SecondPhrase != "わが衣手は 露にぬれつつ" {
		t.Errorf("SecondPhrase = %q", card.SecondPhrase)
	}
	if deck.Name() != "hyakunin.xlsx" {
		t.Errorf("Name() = %q", deck.Name())
	}
}

func TestLoadWorkbookFallsBackToFirstSheet(t *testing.T) {
	data := workbook(t, "Sheet1", [][]interface{}{
		{"#", "上の句", "下の句"},
		{1, "A", "a"},
	})

	deck, err := newLoader().Load(FromBytes("renamed.xlsx", data))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if deck.Len() != 1 {
		t.Errorf("Len() = %d, want 1", deck.Len())
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		rows    [][]interface{}
		wantErr error
	}{
		{
			name: "missing second phrase column",
			rows: [][]interface{}{
				{"#", "上の句"},
				{1, "A"},
			},
			wantErr: ErrMissingColumn,
		},
		{
			name: "missing id column",
			rows: [][]interface{}{
				{"番号", "上の句", "下の句"},
				{1, "A", "a"},
			},
			wantErr: ErrMissingColumn,
		},
		{
			name: "no valid ids",
			rows: [][]interface{}{
				{"#", "上の句", "下の句"},
				{"x", "A", "a"},
				{"", "B", "b"},
			},
			wantErr: ErrNoValidRows,
		},
		{
			name: "duplicate ids",
			rows: [][]interface{}{
				{"#", "上の句", "下の句"},
				{1, "A", "a"},
				{1, "A2", "a2"},
				{2, "B", "b"},
			},
			wantErr: ErrDuplicateID,
		},
		{
			name:    "empty sheet",
			rows:    nil,
			wantErr: ErrNoValidRows,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := workbook(t, "シート1", tt.rows)
			_, err := newLoader().Load(FromBytes("deck.xlsx", data))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
			}
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Load() error %T is not a *LoadError", err)
			}
		})
	}
}

func TestLoadCSV(t *testing.T) {
	data := []byte("\xef\xbb\xbf#,上の句,下の句\n１,A ,a\n2,B,b\n,C,c\n")

	deck, err := newLoader().Load(FromBytes("deck.csv", data))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if deck.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", deck.Len())
	}
	card, ok := deck.Card(1)
	if !ok {
		t.Fatal("full-width id was not folded to 1")
	}
	if card.FirstPhrase != "A" {
		t.Errorf("FirstPhrase = %q, want A", card.FirstPhrase)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.xlsx")
	data := workbook(t, "シート1", [][]interface{}{
		{"#", "上の句", "下の句"},
		{10, "J", "j"},
	})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	deck, err := newLoader().Load(FromPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := deck.Card(10); !ok {
		t.Error("card 10 missing")
	}
}

func TestLoadMissingPath(t *testing.T) {
	_, err := newLoader().Load(FromPath(filepath.Join(t.TempDir(), "nope.xlsx")))
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("Load() error = %v, want ErrSourceNotFound", err)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := newLoader().Load(FromBytes("deck.pdf", []byte{0x25, 0x50, 0x44, 0x46, 0xff}))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Load() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{"1", 1, true},
		{" 42 ", 42, true},
		{"１００", 100, true},
		{"12.0", 12, true},
		{"12.5", 0, false},
		{"0", 0, false},
		{"-3", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseID(tt.raw)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseID(%q) = (%d, %v), want (%d, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}
