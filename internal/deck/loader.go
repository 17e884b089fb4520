// Package deck reads card decks from spreadsheet sources.
package deck

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"yomiage/internal/models"
)

var (
	ErrSourceNotFound    = errors.New("source not found")
	ErrUnsupportedFormat = errors.New("unsupported source format")
	ErrUnreadable        = errors.New("source is unreadable")
	ErrMissingColumn     = errors.New("missing required column")
	ErrNoValidRows       = errors.New("no rows with a valid id")
	ErrDuplicateID       = errors.New("duplicate id")
)

var (
	xlsxMagic = []byte("PK\x03\x04")
	utf8BOM   = []byte("\xef\xbb\xbf")
)

// LoadError reports why a source could not become a deck. It is fatal to
// starting a session and is shown to the user verbatim.
type LoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("load deck: %s", e.Reason)
	}
	return fmt.Sprintf("load deck %q: %s", e.Source, e.Reason)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Source is either raw file bytes or a filesystem path
type Source struct {
	Name string
	Data []byte
	Path string
}

// FromBytes wraps uploaded file contents. name is used for format detection and messages.
func FromBytes(name string, data []byte) Source {
	return Source{Name: name, Data: data}
}

// FromPath points at a file on disk
func FromPath(path string) Source {
	return Source{Name: filepath.Base(path), Path: path}
}

// Loader turns a source table into a deck
type Loader struct {
	Sheet        string
	IDColumn     string
	FirstColumn  string
	SecondColumn string
}

// Load reads src and returns the validated deck. Every failure is a *LoadError.
func (l *Loader) Load(src Source) (*models.Deck, error) {
	data := src.Data
	if data == nil {
		if src.Path == "" {
			return nil, &LoadError{Reason: "no source given", Err: ErrSourceNotFound}
		}
		raw, err := os.ReadFile(src.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &LoadError{
					Source: src.Path,
					Reason: fmt.Sprintf("file not found; place %q next to the app or upload it", filepath.Base(src.Path)),
					Err:    ErrSourceNotFound,
				}
			}
			return nil, &LoadError{Source: src.Path, Reason: err.Error(), Err: ErrUnreadable}
		}
		data = raw
	}

	rows, err := l.readRows(src.Name, data)
	if err != nil {
		return nil, err
	}

	cards, err := l.parseRows(src.Name, rows)
	if err != nil {
		return nil, err
	}

	deck, err := models.NewDeck(src.Name, cards)
	if err != nil {
		return nil, &LoadError{Source: src.Name, Reason: err.Error(), Err: ErrNoValidRows}
	}
	return deck, nil
}

// readRows picks the decoder for data and returns the raw table.
func (l *Loader) readRows(name string, data []byte) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case bytes.HasPrefix(data, xlsxMagic) || ext == ".xlsx":
		return l.readWorkbook(name, data)
	case ext == ".csv" || (ext == "" && utf8.Valid(data)):
		return readCSV(name, data)
	default:
		return nil, &LoadError{Source: name, Reason: fmt.Sprintf("unsupported file type %q", ext), Err: ErrUnsupportedFormat}
	}
}

func (l *Loader) readWorkbook(name string, data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Source: name, Reason: fmt.Sprintf("cannot open workbook: %v", err), Err: ErrUnreadable}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &LoadError{Source: name, Reason: "workbook has no sheets", Err: ErrNoValidRows}
	}

	// The configured sheet wins; a renamed sheet falls back to the first one
	sheet := sheets[0]
	for _, s := range sheets {
		if s == l.Sheet {
			sheet = s
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &LoadError{Source: name, Reason: fmt.Sprintf("cannot read sheet %q: %v", sheet, err), Err: ErrUnreadable}
	}
	return rows, nil
}

func readCSV(name string, data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, &LoadError{Source: name, Reason: fmt.Sprintf("cannot parse csv: %v", err), Err: ErrUnreadable}
	}
	return rows, nil
}

// parseRows locates the required columns and coerces every data row.
func (l *Loader) parseRows(name string, rows [][]string) ([]models.Card, error) {
	headerIdx := -1
	for i, row := range rows {
		if !blankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, &LoadError{Source: name, Reason: "table is empty", Err: ErrNoValidRows}
	}

	columns := make(map[string]int)
	for i, h := range rows[headerIdx] {
		key := strings.TrimSpace(norm.NFC.String(h))
		if _, seen := columns[key]; !seen {
			columns[key] = i
		}
	}

	required := []string{l.IDColumn, l.FirstColumn, l.SecondColumn}
	for _, col := range required {
		if _, ok := columns[col]; !ok {
			return nil, &LoadError{
				Source: name,
				Reason: fmt.Sprintf("required column %q is missing", col),
				Err:    fmt.Errorf("%w: %s", ErrMissingColumn, col),
			}
		}
	}

	idCol, firstCol, secondCol := columns[l.IDColumn], columns[l.FirstColumn], columns[l.SecondColumn]

	var cards []models.Card
	seen := make(map[int]int)
	for i, row := range rows[headerIdx+1:] {
		id, ok := ParseID(cell(row, idCol))
		if !ok {
			continue
		}

		line := headerIdx + i + 2
		if prev, dup := seen[id]; dup {
			return nil, &LoadError{
				Source: name,
				Reason: fmt.Sprintf("id %d appears on rows %d and %d", id, prev, line),
				Err:    fmt.Errorf("%w: %d", ErrDuplicateID, id),
			}
		}
		seen[id] = line

		cards = append(cards, models.Card{
			ID:           id,
			FirstPhrase:  cleanText(cell(row, firstCol)),
			SecondPhrase: cleanText(cell(row, secondCol)),
		})
	}

	if len(cards) == 0 {
		return nil, &LoadError{Source: name, Reason: "no rows with a valid id", Err: ErrNoValidRows}
	}
	return cards, nil
}

// ParseID coerces an id cell to a positive integer. Full-width digits are
// folded and whole floats such as "12.0" are accepted.
func ParseID(raw string) (int, bool) {
	s := strings.TrimSpace(width.Narrow.String(raw))
	if s == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(s); err == nil {
		return n, n > 0
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f <= 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
