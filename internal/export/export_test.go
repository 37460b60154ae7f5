package export

import (
	"testing"
	"time"

	"github.com/mcq-study/backend/internal/identity"
	"github.com/mcq-study/backend/internal/progress"
)

func TestWorkbook(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	records := []progress.Record{
		{QuestionID: "mgt-2-q1", ChapterID: "mgt-2", OptionID: "a", Correct: true, AnsweredAt: base.Add(2 * time.Minute)},
		{QuestionID: "eti-1-q2", ChapterID: "eti-1", OptionID: "b", Correct: false, AnsweredAt: base.Add(time.Minute)},
		{QuestionID: "eti-1-q1", ChapterID: "eti-1", OptionID: "a", Correct: true, AnsweredAt: base},
	}

	f, err := Workbook(identity.Identity{UserID: "u1", Name: "Ada"}, records)
	if err != nil {
		t.Fatalf("Workbook() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(answersSheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", answersSheet, err)
	}
	if len(rows) != 4 {
		t.Fatalf("answers rows = %d, want header + 3", len(rows))
	}
	if rows[0][0] != "Chapter" || rows[0][1] != "Question" {
		t.Errorf("header = %v", rows[0])
	}
	// Grouped by chapter, ordered by answer time within.
	wantOrder := []string{"eti-1-q1", "eti-1-q2", "mgt-2-q1"}
	for i, want := range wantOrder {
		if rows[i+1][1] != want {
			t.Errorf("row %d question = %q, want %q", i+1, rows[i+1][1], want)
		}
	}

	summary, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", summarySheet, err)
	}
	if summary[0][1] != "Ada" {
		t.Errorf("summary user = %q, want Ada", summary[0][1])
	}
	if summary[1][1] != "3" {
		t.Errorf("total answered = %q, want 3", summary[1][1])
	}

	var eti []string
	for _, row := range summary {
		if len(row) > 0 && row[0] == "eti-1" {
			eti = row
		}
	}
	if eti == nil {
		t.Fatal("no eti-1 summary row")
	}
	if eti[1] != "2" || eti[2] != "1" || eti[3] != "50%" {
		t.Errorf("eti-1 summary = %v, want 2 answered, 1 correct, 50%%", eti)
	}
}

func TestWorkbook_Empty(t *testing.T) {
	f, err := Workbook(identity.Identity{}, nil)
	if err != nil {
		t.Fatalf("Workbook() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if rows[0][1] != "anonymous" {
		t.Errorf("summary user = %q, want anonymous", rows[0][1])
	}
}
