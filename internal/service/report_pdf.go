package service

import (
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"emotiva/internal/models"
)

var (
	pdfHeaderColor  = props.Color{Red: 50, Green: 50, Blue: 50}
	pdfMutedColor   = props.Color{Red: 120, Green: 120, Blue: 120}
	pdfLineColor    = props.Color{Red: 200, Green: 200, Blue: 200}
	pdfWarningColor = props.Color{Red: 190, Green: 60, Blue: 40}
	pdfPositive     = props.Color{Red: 40, Green: 140, Blue: 70}
)

// The core PDF fonts have no emoji glyphs, so moods are spelled out.
func moodLabel(d models.DayBucket) string {
	if !d.HasCheckin {
		return "-"
	}
	switch d.Mood {
	case models.MoodHappy:
		return "Happy"
	case models.MoodSad:
		return "Sad"
	default:
		return "Neutral"
	}
}

func yesNo(b *bool) string {
	switch {
	case b == nil:
		return "-"
	case *b:
		return "yes"
	default:
		return "no"
	}
}

// RenderWeeklyPDF lays out a weekly report as an A4 document.
func RenderWeeklyPDF(r *models.WeeklyReport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(12, "Weekly report: "+r.ChildName, props.Text{
			Style: fontstyle.Bold,
			Size:  16,
			Color: &pdfHeaderColor,
		}),
	)
	m.AddRow(8,
		text.NewCol(12, fmt.Sprintf("%s to %s", r.WeekStart.Format("Jan 2, 2006"), r.WeekEnd.Format("Jan 2, 2006")), props.Text{
			Size:  12,
			Color: &pdfMutedColor,
		}),
	)
	m.AddRow(4, line.NewCol(12, props.Line{Color: &pdfLineColor}))
	m.AddRow(4)

	header := props.Text{Style: fontstyle.Bold, Size: 9, Color: &pdfHeaderColor}
	m.AddRow(7,
		text.NewCol(3, "Day", header),
		text.NewCol(2, "Mood", header),
		text.NewCol(1, "Time", header),
		text.NewCol(2, "Slept well", header),
		text.NewCol(2, "Bad event", header),
		text.NewCol(2, "Note", header),
	)

	for _, d := range r.Days {
		cell := props.Text{Size: 9}
		if !d.HasCheckin {
			cell.Color = &pdfMutedColor
		}
		m.AddRow(6,
			text.NewCol(3, fmt.Sprintf("%s %s", d.Weekday, d.Date.Format("02/01")), cell),
			text.NewCol(2, moodLabel(d), cell),
			text.NewCol(1, d.Time, cell),
			text.NewCol(2, yesNo(d.SleptWell), cell),
			text.NewCol(2, yesNo(d.SomethingBad), cell),
			text.NewCol(2, d.Note, cell),
		)
	}

	m.AddRow(4)
	m.AddRow(4, line.NewCol(12, props.Line{Color: &pdfLineColor}))
	m.AddRow(8,
		text.NewCol(12, fmt.Sprintf("Happy: %d   Neutral: %d   Sad: %d", r.Counts.Happy, r.Counts.Neutral, r.Counts.Sad), props.Text{
			Style: fontstyle.Bold,
			Size:  10,
			Align: align.Left,
		}),
	)

	for _, in := range r.Insights {
		color := &pdfPositive
		if in.Type == models.InsightWarning {
			color = &pdfWarningColor
		}
		m.AddRow(7, text.NewCol(12, in.Title, props.Text{Style: fontstyle.Bold, Size: 10, Color: color}))
		body := strings.TrimSpace(in.Description + " " + in.Suggestion)
		m.AddRow(10, text.NewCol(12, body, props.Text{Size: 9, Color: &pdfMutedColor}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating PDF: %w", err)
	}
	return doc.GetBytes(), nil
}
