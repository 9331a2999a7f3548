package merger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"newsquarter/internal/logger"
	"newsquarter/internal/models"
	"newsquarter/internal/storage"
)

func writeTable(t *testing.T, dir, name string, records []models.Record) {
	t.Helper()

	if err := storage.WriteCSV(filepath.Join(dir, name), records); err != nil {
		t.Fatalf("WriteCSV %s failed: %v", name, err)
	}
}

func TestMergeByQuarter_DedupFirstLoadedWins(t *testing.T) {
	dir := t.TempDir()

	writeTable(t, dir, "24Q1_가.csv", []models.Record{
		{Date: "2024.01.15.", Title: "first", Link: "https://n.news.naver.com/article/1"},
	})
	writeTable(t, dir, "24Q1_나.csv", []models.Record{
		{Date: "2024.01.15.", Title: "second", Link: "https://n.news.naver.com/article/1"},
		{Date: "2024.02.01.", Title: "other", Link: "https://n.news.naver.com/article/2"},
	})

	res, err := NewMerger(dir, logger.Discard()).MergeByQuarter(2024, 1, "")
	if err != nil {
		t.Fatalf("MergeByQuarter failed: %v", err)
	}

	if res.OutputPath != filepath.Join(dir, "merged_24Q1_quarter.csv") {
		t.Errorf("Unexpected output path: %s", res.OutputPath)
	}

	if res.CombinedRows != 3 || res.DuplicatesRemoved != 1 {
		t.Errorf("Expected 3 combined and 1 duplicate, got %d and %d", res.CombinedRows, res.DuplicatesRemoved)
	}

	records, err := storage.ReadCSV(res.OutputPath)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	count := 0

	for _, r := range records {
		if r.Link != "https://n.news.naver.com/article/1" {
			continue
		}

		count++

		if r.Title != "first" {
			t.Errorf("Expected row from first-loaded table, got title %q", r.Title)
		}
	}

	if count != 1 {
		t.Errorf("Expected exactly one row for the duplicated link, got %d", count)
	}
}

func TestMergeByQuarter_SortsDescendingNullsLast(t *testing.T) {
	dir := t.TempDir()

	writeTable(t, dir, "24Q1_k.csv", []models.Record{
		{Date: "2024.01.15.", Link: "https://a/2"},
		{Date: "N/A", Link: "https://a/3"},
		{Date: "2024.03.01.", Link: "https://a/1"},
	})

	res, err := NewMerger(dir, nil).MergeByQuarter(2024, 1, "")
	if err != nil {
		t.Fatalf("MergeByQuarter failed: %v", err)
	}

	records, err := storage.ReadCSV(res.OutputPath)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	var dates []string
	for _, r := range records {
		dates = append(dates, r.Date)
	}

	if got, want := strings.Join(dates, ","), "2024.03.01.,2024.01.15.,N/A"; got != want {
		t.Errorf("Dates = %s, want %s", got, want)
	}
}

func TestMergeByQuarter_NoFiles(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "24Q2_k.csv", []models.Record{{Link: "https://a/1"}})

	var progress bytes.Buffer

	res, err := NewMerger(dir, nil).WithProgress(&progress).MergeByQuarter(2024, 1, "")
	if !errors.Is(err, ErrNoSourceFiles) {
		t.Errorf("Expected ErrNoSourceFiles, got %v", err)
	}

	if res != nil {
		t.Errorf("Expected nil result, got %+v", res)
	}

	if _, statErr := os.Stat(filepath.Join(dir, "merged_24Q1_quarter.csv")); !os.IsNotExist(statErr) {
		t.Errorf("Expected no output file, stat error: %v", statErr)
	}

	if !strings.Contains(progress.String(), "No CSV files found") {
		t.Errorf("Expected narration of the empty search, got %q", progress.String())
	}
}

func TestMergeByQuarter_SkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()

	writeTable(t, dir, "24Q1_good.csv", []models.Record{{Date: "2024.01.02.", Link: "https://a/1"}})

	if err := os.WriteFile(filepath.Join(dir, "24Q1_bad.csv"), []byte("link\n\"unterminated\n"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := NewMerger(dir, nil).MergeByQuarter(2024, 1, "out.csv")
	if err != nil {
		t.Fatalf("MergeByQuarter failed: %v", err)
	}

	if len(res.Files) != 1 || len(res.SkippedFiles) != 1 {
		t.Errorf("Expected 1 loaded and 1 skipped file, got %v and %v", res.Files, res.SkippedFiles)
	}

	if res.OutputPath != filepath.Join(dir, "out.csv") {
		t.Errorf("Expected custom output name, got %s", res.OutputPath)
	}
}

func TestMergeByQuarter_TableWithoutLinkColumn(t *testing.T) {
	dir := t.TempDir()

	content := "date,title,source,contents\n2024.01.05.,제목,연합뉴스,본문\n"
	if err := os.WriteFile(filepath.Join(dir, "24Q1_a.csv"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := NewMerger(dir, nil).MergeByQuarter(2024, 1, "")
	if err != nil {
		t.Fatalf("MergeByQuarter failed: %v", err)
	}

	if len(res.Files) != 1 || len(res.SkippedFiles) != 0 {
		t.Errorf("Expected the table to load, got %v and skipped %v", res.Files, res.SkippedFiles)
	}

	if len(res.Records) != 1 || res.Records[0].Title != "제목" || res.Records[0].Link != "" {
		t.Errorf("Unexpected merged records: %+v", res.Records)
	}
}

func TestMergeByQuarter_NothingLoaded(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "24Q1_bad.csv"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	res, err := NewMerger(dir, nil).MergeByQuarter(2024, 1, "")
	if !errors.Is(err, ErrNoDataLoaded) || res != nil {
		t.Errorf("Expected ErrNoDataLoaded and nil result, got %v and %+v", err, res)
	}

	if _, statErr := os.Stat(filepath.Join(dir, "merged_24Q1_quarter.csv")); !os.IsNotExist(statErr) {
		t.Errorf("Expected no output file, stat error: %v", statErr)
	}
}

func TestMergeByQuarter_InvalidQuarter(t *testing.T) {
	_, err := NewMerger(t.TempDir(), nil).MergeByQuarter(2024, 5, "")
	if !errors.Is(err, models.ErrInvalidQuarter) {
		t.Errorf("Expected ErrInvalidQuarter, got %v", err)
	}
}

func TestMergeByDateRange(t *testing.T) {
	dir := t.TempDir()

	writeTable(t, dir, "2024_01_01_2024_03_31_ev.csv", []models.Record{{Date: "2024.2.5.", Link: "https://a/1"}})
	writeTable(t, dir, "24Q1_ev.csv", []models.Record{{Date: "2024.01.10.", Link: "https://a/2"}})

	res, err := NewMerger(dir, nil).MergeByDateRange("2024.01.01", "2024.03.31", "")
	if err != nil {
		t.Fatalf("MergeByDateRange failed: %v", err)
	}

	if res.OutputPath != filepath.Join(dir, "merged_2024.01.01_2024.03.31_quarter.csv") {
		t.Errorf("Unexpected output path: %s", res.OutputPath)
	}

	if len(res.Records) != 1 || res.Records[0].Date != "2024.02.05." {
		t.Errorf("Expected one re-rendered record, got %+v", res.Records)
	}

	if _, err := NewMerger(dir, nil).MergeByDateRange("", "2024.03.31", ""); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange, got %v", err)
	}
}

func TestDedupByLink_EmptyLinksCollapse(t *testing.T) {
	in := []models.Record{
		{Title: "a"},
		{Title: "b"},
		{Title: "c", Link: "https://a/1"},
	}

	out := DedupByLink(in)
	if len(out) != 2 || out[0].Title != "a" || out[1].Title != "c" {
		t.Errorf("Unexpected dedup result: %+v", out)
	}
}

func TestParseRecordDate(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{input: "2024.01.15.", ok: true},
		{input: "2024.1.5", ok: true},
		{input: " 2024.03.01. ", ok: true},
		{input: "N/A", ok: false},
		{input: "3시간 전", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		if _, ok := ParseRecordDate(tt.input); ok != tt.ok {
			t.Errorf("ParseRecordDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
		}
	}
}

func TestListQuarters(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"24Q2_a.csv", "23Q4_b.csv", "24Q2_c.csv", "merged_24Q1_quarter.csv", "notes.csv"} {
		writeTable(t, dir, name, nil)
	}

	quarters, err := ListQuarters(dir)
	if err != nil {
		t.Fatalf("ListQuarters failed: %v", err)
	}

	var got []string
	for _, q := range quarters {
		got = append(got, q.String())
	}

	if want := "2023 Q4,2024 Q1,2024 Q2"; strings.Join(got, ",") != want {
		t.Errorf("ListQuarters = %v, want %s", got, want)
	}

	if _, err := ListQuarters(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}

	if _, err := ListQuarters(t.TempDir()); !errors.Is(err, ErrNoSourceFiles) {
		t.Errorf("Expected ErrNoSourceFiles for empty directory, got %v", err)
	}
}
