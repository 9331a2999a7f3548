package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"newsquarter/internal/models"
)

var sampleRecords = []models.Record{
	{Date: "2024.01.15.", Title: "반도체 수출 회복", Source: "연합뉴스", Contents: "본문, \"인용\"\n둘째 줄", Link: "https://n.news.naver.com/article/1"},
	{Date: "3시간", Title: "", Source: "", Contents: "", Link: "https://n.news.naver.com/article/2"},
}

func TestWriteCSV_HeaderAndBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "24Q1_테스트.csv")

	if err := WriteCSV(path, sampleRecords); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}

	if !bytes.HasPrefix(data, utf8BOM) {
		t.Error("Expected output to start with a UTF-8 BOM")
	}

	firstLine := strings.SplitN(string(data[len(utf8BOM):]), "\n", 2)[0]
	if firstLine != "date,title,source,contents,link" {
		t.Errorf("Unexpected header: %q", firstLine)
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.csv")

	if err := WriteCSV(path, sampleRecords); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	got, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	if !reflect.DeepEqual(got, sampleRecords) {
		t.Errorf("ReadCSV = %+v, want %+v", got, sampleRecords)
	}
}

func TestWriteCSV_EmptyTableHasHeader(t *testing.T) {
	var buf bytes.Buffer

	if err := EncodeCSV(&buf, nil); err != nil {
		t.Fatalf("EncodeCSV failed: %v", err)
	}

	records, err := DecodeCSV(&buf)
	if err != nil {
		t.Fatalf("DecodeCSV failed: %v", err)
	}

	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}

func TestDecodeCSV_ToleratesColumnDrift(t *testing.T) {
	input := "link,extra,title\nhttps://a/1,x,제목\nhttps://a/2\n"

	records, err := DecodeCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeCSV failed: %v", err)
	}

	want := []models.Record{
		{Link: "https://a/1", Title: "제목"},
		{Link: "https://a/2"},
	}

	if !reflect.DeepEqual(records, want) {
		t.Errorf("DecodeCSV = %+v, want %+v", records, want)
	}
}

func TestDecodeCSV_MissingLinkColumn(t *testing.T) {
	input := "date,title,source,contents\n2024.01.01.,제목,연합뉴스,본문\n"

	records, err := DecodeCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeCSV failed: %v", err)
	}

	want := []models.Record{
		{Date: "2024.01.01.", Title: "제목", Source: "연합뉴스", Contents: "본문"},
	}

	if !reflect.DeepEqual(records, want) {
		t.Errorf("DecodeCSV = %+v, want %+v", records, want)
	}
}

func TestDecodeCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "", wantErr: ErrEmptyTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCSV(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeCSV error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := DecodeCSV(strings.NewReader("link\n\"unterminated\n")); err == nil {
		t.Error("Expected error for malformed quoting")
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merged.xlsx")

	if err := WriteXLSX(path, sampleRecords); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}

	if len(rows) != len(sampleRecords)+1 {
		t.Fatalf("Expected %d rows, got %d", len(sampleRecords)+1, len(rows))
	}

	if !reflect.DeepEqual(rows[0], models.Columns) {
		t.Errorf("Unexpected header row: %v", rows[0])
	}

	if rows[1][1] != sampleRecords[0].Title || rows[2][4] != sampleRecords[1].Link {
		t.Errorf("Unexpected rows: %v", rows[1:])
	}
}
