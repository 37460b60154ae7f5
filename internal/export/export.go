// Package export renders a user's answer ledger as a spreadsheet.
package export

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/mcq-study/backend/internal/identity"
	"github.com/mcq-study/backend/internal/progress"
)

const (
	answersSheet = "Answers"
	summarySheet = "Summary"
)

var answerHeader = []any{"Chapter", "Question", "Selected Option", "Correct", "Answered At"}

// Workbook builds an xlsx file with one row per answered question plus a
// per-chapter summary sheet. Records are grouped by chapter and ordered by
// answer time within each chapter. The caller owns closing the returned
// file.
func Workbook(id identity.Identity, records []progress.Record) (*excelize.File, error) {
	f := excelize.NewFile()

	f.SetSheetName(f.GetSheetName(0), answersSheet)
	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("creating summary sheet: %w", err)
	}

	if err := writeAnswers(f, records); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummary(f, id, records); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeAnswers(f *excelize.File, records []progress.Record) error {
	if err := f.SetSheetRow(answersSheet, "A1", &answerHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	sorted := make([]progress.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ChapterID != sorted[j].ChapterID {
			return sorted[i].ChapterID < sorted[j].ChapterID
		}
		return sorted[i].AnsweredAt.Before(sorted[j].AnsweredAt)
	})

	for i, r := range sorted {
		row := []any{r.ChapterID, r.QuestionID, r.OptionID, r.Correct, r.AnsweredAt.Format("2006-01-02 15:04:05")}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(answersSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, id identity.Identity, records []progress.Record) error {
	byChapter := make(map[string][2]int)
	for _, r := range records {
		counts := byChapter[r.ChapterID]
		counts[0]++
		if r.Correct {
			counts[1]++
		}
		byChapter[r.ChapterID] = counts
	}
	chapters := make([]string, 0, len(byChapter))
	for c := range byChapter {
		chapters = append(chapters, c)
	}
	sort.Strings(chapters)

	owner := id.Name
	if owner == "" {
		owner = id.UserID
	}
	if owner == "" {
		owner = "anonymous"
	}
	rows := [][]any{
		{"User", owner},
		{"Total Answered", len(records)},
		{},
		{"Chapter", "Answered", "Correct", "Percentage"},
	}
	for _, c := range chapters {
		counts := byChapter[c]
		pct := 0
		if counts[0] > 0 {
			pct = counts[1] * 100 / counts[0]
		}
		rows = append(rows, []any{c, counts[0], counts[1], fmt.Sprintf("%d%%", pct)})
	}

	for i := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(summarySheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("writing summary row %d: %w", i+1, err)
		}
	}
	return nil
}
