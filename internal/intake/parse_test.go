package intake

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseCSV_HeaderKeyedRows(t *testing.T) {
	data := "case_id,applicant_name,dob\nC-1,Alice Smith,1990-05-10\nC-2,Bob Jones,1985-01-02\n"

	rows, err := ParseCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["case_id"] != "C-1" || rows[0]["applicant_name"] != "Alice Smith" {
		t.Errorf("row 0 = %v", rows[0])
	}
	if rows[1]["dob"] != "1985-01-02" {
		t.Errorf("row 1 dob = %q", rows[1]["dob"])
	}
}

func TestParseCSV_SkipsBOM(t *testing.T) {
	data := "\xEF\xBB\xBFcase_id,applicant_name\nC-1,Alice\n"

	rows, err := ParseCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if _, ok := rows[0]["case_id"]; !ok {
		t.Errorf("BOM not stripped from header, keys: %v", rows[0])
	}
}

func TestParseCSV_SanitizesInvalidUTF8(t *testing.T) {
	data := "case_id,applicant_name\nC-1,Al\xFFice\n"

	rows, err := ParseCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if rows[0]["applicant_name"] != "Al?ice" {
		t.Errorf("applicant_name = %q, want invalid byte replaced", rows[0]["applicant_name"])
	}
}

func TestParseCSV_ShortRecordFillsEmpty(t *testing.T) {
	data := "case_id,applicant_name,email\nC-1,Alice\n"

	rows, err := ParseCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if rows[0]["email"] != "" {
		t.Errorf("email = %q, want empty", rows[0]["email"])
	}
}

func TestParseCSV_CleansHeaderWhitespace(t *testing.T) {
	data := " case_id , applicant_name \nC-1,Alice\n"

	rows, err := ParseCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if rows[0]["case_id"] != "C-1" {
		t.Errorf("header not cleaned, keys: %v", rows[0])
	}
}

func TestParseCSV_EmptyFile(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	if !errors.Is(err, ErrEmptyFile) {
		t.Errorf("error = %v, want ErrEmptyFile", err)
	}
}

func TestParseXLSX_FirstSheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"case_id", "applicant_name", "dob"},
		{"C-1", "Alice Smith", "1990-05-10"},
		{"C-2", "Bob Jones", "1985-01-02"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseXLSX(&buf)
	if err != nil {
		t.Fatalf("ParseXLSX() error = %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("rows = %d, want 2", len(parsed))
	}
	if parsed[1]["applicant_name"] != "Bob Jones" {
		t.Errorf("row 1 = %v", parsed[1])
	}
}

func TestParse_DispatchesOnExtension(t *testing.T) {
	data := "case_id\nC-1\n"
	rows, err := Parse("Cases.CSV", strings.NewReader(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("rows = %d, want 1", len(rows))
	}

	if _, err := Parse("cases.pdf", strings.NewReader("")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSanitizedReader_MultiByteAcrossReads(t *testing.T) {
	// "é" split across two reads must survive intact.
	src := io.MultiReader(
		strings.NewReader("caf\xC3"),
		strings.NewReader("\xA9"),
	)
	out, err := io.ReadAll(newUTF8Sanitizer(src))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "café" {
		t.Errorf("output = %q, want %q", out, "café")
	}
}
