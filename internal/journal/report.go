package journal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goodtune/breakbot/internal/storage"
)

// TypeSummary aggregates one break type over a day
type TypeSummary struct {
	BreakType    string `yaml:"break_type"`
	Breaks       int    `yaml:"breaks"`
	Late         int    `yaml:"late"`
	Expired      int    `yaml:"expired"`
	TotalMinutes int    `yaml:"total_minutes"`
}

// Report is a day's journal with per-type totals
type Report struct {
	Date         string                `yaml:"date"`
	Summary      []TypeSummary         `yaml:"summary"`
	Breaks       []storage.BreakRecord `yaml:"breaks"`
	Fines        []storage.FineRecord  `yaml:"fines"`
	FinesImposed int                   `yaml:"fines_imposed"`
	FinesWaived  int                   `yaml:"fines_waived"`
	FineTotal    int                   `yaml:"fine_total"`
	FineCurrency string                `yaml:"fine_currency,omitempty"`
}

// BuildReport loads the journal for the day of t
func BuildReport(ctx context.Context, store storage.JournalStore, day time.Time) (*Report, error) {
	date := storage.DateKey(day)

	breaks, err := store.ListBreaks(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list breaks for %s: %w", date, err)
	}

	fines, err := store.ListFines(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list fines for %s: %w", date, err)
	}

	return Summarize(date, breaks, fines), nil
}

// Summarize totals a day's records
func Summarize(date string, breaks []storage.BreakRecord, fines []storage.FineRecord) *Report {
	report := &Report{
		Date:   date,
		Breaks: breaks,
		Fines:  fines,
	}

	byType := make(map[string]*TypeSummary)
	for _, b := range breaks {
		s, ok := byType[b.BreakType]
		if !ok {
			s = &TypeSummary{BreakType: b.BreakType}
			byType[b.BreakType] = s
		}
		s.Breaks++
		s.TotalMinutes += b.DurationMinutes
		switch b.Outcome {
		case storage.OutcomeLate:
			s.Late++
		case storage.OutcomeExpired:
			s.Late++
			s.Expired++
		}
	}
	for _, s := range byType {
		report.Summary = append(report.Summary, *s)
	}
	sort.Slice(report.Summary, func(i, j int) bool {
		return report.Summary[i].BreakType < report.Summary[j].BreakType
	})

	for _, f := range fines {
		switch f.Decision {
		case DecisionImposed:
			report.FinesImposed++
			report.FineTotal += f.Amount
			report.FineCurrency = f.Currency
		case DecisionWaived:
			report.FinesWaived++
		}
	}

	return report
}
