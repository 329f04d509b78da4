// Package export renders a solved schedule as a file artifact: a Gantt-style
// timeline in SVG or PNG with a summary block hosts can embed in reports.
package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/planwork/pkg/model"
	"github.com/vanderheijden86/planwork/pkg/schedule"
)

// TimelineOptions controls timeline export behaviour.
type TimelineOptions struct {
	Path        string             // Output path; format inferred from extension when Format empty
	Format      string             // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title       string             // Optional title rendered in the summary block
	Tasks       []model.Task       // Tasks backing the schedule (priority + summary lookups)
	Schedule    schedule.Schedule  // Solved placement of every task
	Batch       []string           // Immediate batch; members render outlined
	Recommended *model.PlanPath    // Optional recommended path for the summary block
	DataHash    string             // Hash of the input request for provenance
}

// SaveTimeline renders the schedule to opts.Path. Lanes are ordered by start
// hour, bars span StartHour to EndHour on an hour-scaled axis, and color
// tracks task priority.
func SaveTimeline(opts TimelineOptions) error {
	if len(opts.Schedule.Slots()) == 0 {
		return fmt.Errorf("no schedule to export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildTimelineLayout(opts)

	switch format {
	case "svg":
		file, err := os.Create(opts.Path)
		if err != nil {
			return err
		}
		defer file.Close()
		return renderTimelineSVG(file, layout)
	default:
		return renderTimelinePNG(opts.Path, layout)
	}
}

// --- layout computation ----------------------------------------------------

type timelineLane struct {
	TaskID    string
	Summary   string
	Priority  model.Priority
	StartHour int
	EndHour   int
	InBatch   bool
	X, Y      float64
	W, H      float64
}

type timelineLayout struct {
	Lanes    []timelineLane
	Width    int
	Height   int
	Header   float64
	LabelW   float64
	HourPx   float64
	Makespan int
	Summary  timelineSummary
}

type timelineSummary struct {
	Title            string
	DataHash         string
	Makespan         int
	BatchSize        int
	RecommendedHours int
}

func buildTimelineLayout(opts TimelineOptions) timelineLayout {
	const (
		padding      = 36.0
		headerHeight = 120.0
		labelWidth   = 170.0
		laneHeight   = 26.0
		laneGap      = 12.0
		minHourPx    = 8.0
		maxHourPx    = 48.0
	)

	taskByID := make(map[string]model.Task, len(opts.Tasks))
	for _, t := range opts.Tasks {
		taskByID[t.ID] = t
	}
	inBatch := make(map[string]bool, len(opts.Batch))
	for _, id := range opts.Batch {
		inBatch[id] = true
	}

	makespan := opts.Schedule.Makespan()
	if makespan < 1 {
		makespan = 1
	}
	hourPx := 800.0 / float64(makespan)
	if hourPx < minHourPx {
		hourPx = minHourPx
	}
	if hourPx > maxHourPx {
		hourPx = maxHourPx
	}

	slots := append([]schedule.Slot(nil), opts.Schedule.Slots()...)
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].StartHour != slots[j].StartHour {
			return slots[i].StartHour < slots[j].StartHour
		}
		return slots[i].TaskID < slots[j].TaskID
	})

	lanes := make([]timelineLane, 0, len(slots))
	for i, slot := range slots {
		task := taskByID[slot.TaskID]
		lanes = append(lanes, timelineLane{
			TaskID:    slot.TaskID,
			Summary:   truncate(task.Summary, 36),
			Priority:  task.Priority,
			StartHour: slot.StartHour,
			EndHour:   slot.EndHour,
			InBatch:   inBatch[slot.TaskID],
			X:         padding + labelWidth + float64(slot.StartHour)*hourPx,
			Y:         padding + headerHeight + float64(i)*(laneHeight+laneGap),
			W:         float64(slot.EndHour-slot.StartHour) * hourPx,
			H:         laneHeight,
		})
	}

	width := int(padding*2 + labelWidth + float64(makespan)*hourPx)
	if width < 720 {
		width = 720
	}
	height := int(padding*2 + headerHeight + float64(len(lanes))*(laneHeight+laneGap))
	if height < 420 {
		height = 420
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Schedule Timeline"
	}
	recommendedHours := 0
	if opts.Recommended != nil {
		recommendedHours = opts.Recommended.TotalHours
	}

	return timelineLayout{
		Lanes:    lanes,
		Width:    width,
		Height:   height,
		Header:   headerHeight,
		LabelW:   labelWidth,
		HourPx:   hourPx,
		Makespan: makespan,
		Summary: timelineSummary{
			Title:            title,
			DataHash:         opts.DataHash,
			Makespan:         makespan,
			BatchSize:        len(opts.Batch),
			RecommendedHours: recommendedHours,
		},
	}
}

// --- rendering -------------------------------------------------------------

var (
	colorShowStopper = color.RGBA{0xef, 0x9a, 0x9a, 0xff}
	colorCritical    = color.RGBA{0xff, 0xcc, 0x80, 0xff}
	colorMajor       = color.RGBA{0xff, 0xf5, 0x9d, 0xff}
	colorNormal      = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorMinor       = color.RGBA{0xcf, 0xd8, 0xdc, 0xff}
	colorStroke      = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorBatch       = color.RGBA{0x1a, 0x56, 0xdb, 0xff}
	colorText        = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle      = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorGrid        = color.RGBA{0xd4, 0xd9, 0xdf, 0xff}
	colorBackdrop    = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG    = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG    = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

func priorityColor(p model.Priority) color.RGBA {
	switch p {
	case model.PriorityShowStopper:
		return colorShowStopper
	case model.PriorityCritical:
		return colorCritical
	case model.PriorityMajor:
		return colorMajor
	case model.PriorityMinor:
		return colorMinor
	default:
		return colorNormal
	}
}

// gridStep picks the hour-axis tick spacing so labels stay readable.
func gridStep(makespan int) int {
	switch {
	case makespan <= 24:
		return 2
	case makespan <= 80:
		return 8
	default:
		return 24
	}
}

func renderTimelineSVG(w io.Writer, layout timelineLayout) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	drawTimelineSummarySVG(canvas, layout)
	drawTimelineLegendSVG(canvas, layout)

	// hour grid
	gridTop := int(layout.Header + 24)
	gridBottom := layout.Height - 24
	step := gridStep(layout.Makespan)
	for h := 0; h <= layout.Makespan; h += step {
		x := int(36 + layout.LabelW + float64(h)*layout.HourPx)
		canvas.Line(x, gridTop, x, gridBottom, fmt.Sprintf("stroke:%s;stroke-width:1", css(colorGrid)))
		canvas.Text(x+3, gridTop+12, fmt.Sprintf("%dh", h),
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
	}

	for _, lane := range layout.Lanes {
		x := int(lane.X)
		y := int(lane.Y)
		stroke := css(colorStroke)
		strokeWidth := "1"
		if lane.InBatch {
			stroke = css(colorBatch)
			strokeWidth = "2.5"
		}
		canvas.Roundrect(x, y, int(lane.W), int(lane.H), 4, 4,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%s", css(priorityColor(lane.Priority)), stroke, strokeWidth))
		canvas.Text(36, y+17, lane.TaskID,
			fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
		canvas.Text(x+6, y+17, fmt.Sprintf("%s (%d-%dh)", lane.Summary, lane.StartHour, lane.EndHour),
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
	}

	canvas.End()
	return nil
}

func renderTimelinePNG(path string, layout timelineLayout) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	drawTimelineSummaryPNG(dc, layout)
	drawTimelineLegendPNG(dc, layout)

	gridTop := layout.Header + 24
	gridBottom := float64(layout.Height) - 24
	step := gridStep(layout.Makespan)
	for h := 0; h <= layout.Makespan; h += step {
		x := 36 + layout.LabelW + float64(h)*layout.HourPx
		dc.SetColor(colorGrid)
		dc.SetLineWidth(1)
		dc.DrawLine(x, gridTop, x, gridBottom)
		dc.Stroke()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(fmt.Sprintf("%dh", h), x+3, gridTop+8, 0, 0.5)
	}

	for _, lane := range layout.Lanes {
		dc.SetColor(priorityColor(lane.Priority))
		dc.DrawRoundedRectangle(lane.X, lane.Y, lane.W, lane.H, 4)
		dc.Fill()
		if lane.InBatch {
			dc.SetColor(colorBatch)
			dc.SetLineWidth(2.5)
		} else {
			dc.SetColor(colorStroke)
			dc.SetLineWidth(1)
		}
		dc.DrawRoundedRectangle(lane.X, lane.Y, lane.W, lane.H, 4)
		dc.Stroke()

		dc.SetColor(colorText)
		dc.DrawStringAnchored(lane.TaskID, 36, lane.Y+lane.H/2, 0, 0.5)
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(fmt.Sprintf("%s (%d-%dh)", lane.Summary, lane.StartHour, lane.EndHour),
			lane.X+6, lane.Y+lane.H/2, 0, 0.5)
	}

	return dc.SavePNG(path)
}

func drawTimelineSummarySVG(canvas *svg.SVG, layout timelineLayout) {
	s := layout.Summary
	canvas.Text(32, 44, s.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 64, fmt.Sprintf("data_hash: %s", s.DataHash), fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	canvas.Text(32, 84, fmt.Sprintf("makespan: %dh  batch: %d tasks", s.Makespan, s.BatchSize), fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	canvas.Text(32, 104, fmt.Sprintf("recommended path: %dh", s.RecommendedHours), fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
}

func drawTimelineSummaryPNG(dc *gg.Context, layout timelineLayout) {
	s := layout.Summary
	dc.SetColor(colorText)
	dc.DrawStringAnchored(s.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("data_hash: %s", s.DataHash), 32, 64, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("makespan: %dh  batch: %d tasks", s.Makespan, s.BatchSize), 32, 84, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("recommended path: %dh", s.RecommendedHours), 32, 104, 0, 0.5)
}

var legendRows = []struct {
	Color color.RGBA
	Label string
}{
	{colorShowStopper, "Show stopper"},
	{colorCritical, "Critical"},
	{colorMajor, "Major"},
	{colorNormal, "Normal"},
	{colorMinor, "Minor"},
}

func drawTimelineLegendSVG(canvas *svg.SVG, layout timelineLayout) {
	boxW := 170
	boxH := 16 + 16*len(legendRows) + 16
	x := layout.Width - boxW - 20
	y := 24
	canvas.Roundrect(x, y, boxW, boxH, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	canvas.Text(x+12, y+18, "Priority", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, row := range legendRows {
		ry := y + 36 + 16*i
		canvas.Roundrect(x+12, ry-8, 14, 14, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(row.Color), css(colorStroke)))
		canvas.Text(x+32, ry+3, row.Label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}
	by := y + 36 + 16*len(legendRows)
	canvas.Roundrect(x+12, by-8, 14, 14, 3, 3, fmt.Sprintf("fill:none;stroke:%s;stroke-width:2.5", css(colorBatch)))
	canvas.Text(x+32, by+3, "Immediate batch", fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
}

func drawTimelineLegendPNG(dc *gg.Context, layout timelineLayout) {
	boxW := 170.0
	boxH := float64(16 + 16*len(legendRows) + 16)
	x := float64(layout.Width) - boxW - 20
	y := 24.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Priority", x+12, y+18, 0, 0.5)
	for i, row := range legendRows {
		ry := y + 36 + 16*float64(i)
		dc.SetColor(row.Color)
		dc.DrawRoundedRectangle(x+12, ry-8, 14, 14, 3)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.DrawRoundedRectangle(x+12, ry-8, 14, 14, 3)
		dc.Stroke()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(row.Label, x+32, ry, 0, 0.5)
	}
	by := y + 36 + 16*float64(len(legendRows))
	dc.SetColor(colorBatch)
	dc.SetLineWidth(2.5)
	dc.DrawRoundedRectangle(x+12, by-8, 14, 14, 3)
	dc.Stroke()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored("Immediate batch", x+32, by, 0, 0.5)
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
