package export

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
	"github.com/vanderheijden86/spacewalk/pkg/browse"
	"github.com/vanderheijden86/spacewalk/pkg/metrics"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"
)

// Row is one exported tree row: a materialized node plus its captured Value
// attribute when one was read.
type Row struct {
	Depth       int
	Label       string
	Class       addrspace.NodeClass
	Ref         addrspace.NodeRef
	Expanded    bool
	HasChildren bool
	Value       string
	HasValue    bool
	Good        bool
}

// TreeSnapshotOptions controls tree snapshot export behaviour.
type TreeSnapshotOptions struct {
	Path       string // Output path; format inferred from extension when Format empty
	Format     string // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title      string // Optional title rendered in summary block
	Preset     string // Layout preset: "compact" (default) or "roomy"
	Source     string // Label of the source the rows came from
	CapturedAt string // Capture timestamp for snapshot sources, empty when live
	Rows       []Row  // Materialized rows in presentation order
}

// BuildRows converts materialized tree rows into export rows. When dir is
// non-nil the Value attribute of each variable is resolved through it;
// failed reads just leave the value column empty.
func BuildRows(ctx context.Context, tree []browse.TreeNode, dir addrspace.Directory) []Row {
	rows := make([]Row, 0, len(tree))
	for _, n := range tree {
		r := Row{
			Depth:       n.Level,
			Label:       n.Name,
			Class:       n.Class,
			Ref:         n.Ref,
			Expanded:    n.Expanded,
			HasChildren: n.HasChildren,
		}
		if dir != nil && n.Class == addrspace.ClassVariable {
			if attrs, err := dir.ReadAttributes(ctx, n.Ref); err == nil {
				for _, a := range attrs {
					if a.Name == "Value" {
						r.Value = a.Value
						r.HasValue = true
						r.Good = a.Good
						break
					}
				}
			}
		}
		rows = append(rows, r)
	}
	return rows
}

// SaveTreeSnapshot renders a static image (SVG or PNG) of the materialized
// tree with a minimal summary block. The visual language stays concise so the
// output is readable without auxiliary docs.
func SaveTreeSnapshot(opts TreeSnapshotOptions) error {
	stop := metrics.Timer(metrics.ExportRender)
	defer stop()

	if len(opts.Rows) == 0 {
		return fmt.Errorf("no rows to export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg" // safe default
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

	layout := buildTreeLayout(opts)

	switch format {
	case "svg":
		return renderTreeSVG(opts, layout)
	case "png":
		return renderTreePNG(opts, layout)
	default:
		return fmt.Errorf("unhandled format %q", format)
	}
}

// --- layout computation ----------------------------------------------------

type treeRow struct {
	Row
	Text   string // marker + label as drawn
	X, Y   float64
	Parent int // index of the nearest shallower row above, -1 for roots
}

type treeLayout struct {
	Rows    []treeRow
	Width   int
	Height  int
	RowH    float64
	Chip    float64
	ValueX  float64
	Header  float64
	Summary treeSummary
}

type treeSummary struct {
	Title      string
	Source     string
	CapturedAt string
	RowCount   int
	MaxDepth   int
}

func buildTreeLayout(opts TreeSnapshotOptions) treeLayout {
	const (
		rowHCompact   = 22.0
		rowGapCompact = 4.0
		indentCompact = 18.0
		rowHRoomy     = 28.0
		rowGapRoomy   = 8.0
		indentRoomy   = 24.0
		padding       = 36.0
		headerHeight  = 120.0
		chip          = 12.0
		charW         = 7.0 // monospace advance matching the 13px face
		labelMax      = 48
		valueMax      = 24
	)

	roomy := strings.EqualFold(opts.Preset, "roomy")
	rowH := rowHCompact
	rowGap := rowGapCompact
	indent := indentCompact
	if roomy {
		rowH = rowHRoomy
		rowGap = rowGapRoomy
		indent = indentRoomy
	}

	maxDepth := 0
	maxText := 0
	rows := make([]treeRow, 0, len(opts.Rows))
	// parent tracking: last row index seen at each depth
	lastAtDepth := make(map[int]int)
	for i, r := range opts.Rows {
		marker := "   "
		if r.HasChildren && r.Class.CanExpand() {
			if r.Expanded {
				marker = "[-]"
			} else {
				marker = "[+]"
			}
		}
		text := marker + " " + truncate(r.Label, labelMax)

		parent := -1
		if r.Depth > 0 {
			if p, ok := lastAtDepth[r.Depth-1]; ok {
				parent = p
			}
		}
		lastAtDepth[r.Depth] = i

		tr := treeRow{
			Row:    r,
			Text:   text,
			X:      padding + float64(r.Depth)*indent,
			Y:      padding + headerHeight + float64(i)*(rowH+rowGap),
			Parent: parent,
		}
		rows = append(rows, tr)

		if r.Depth > maxDepth {
			maxDepth = r.Depth
		}
		if n := len([]rune(text)); n > maxText {
			maxText = n
		}
	}

	labelEnd := padding + float64(maxDepth)*indent + chip + 8 + float64(maxText)*charW
	valueX := labelEnd + 24

	width := int(valueX + float64(valueMax)*charW + padding)
	if width < 640 {
		width = 640
	}
	height := int(padding*2 + headerHeight + float64(len(rows))*(rowH+rowGap))
	if height < 480 {
		height = 480
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Address Space Snapshot"
	}
	source := opts.Source
	if strings.TrimSpace(source) == "" {
		source = "unknown"
	}
	captured := opts.CapturedAt
	if strings.TrimSpace(captured) == "" {
		captured = "live"
	}

	return treeLayout{
		Rows:   rows,
		Width:  width,
		Height: height,
		RowH:   rowH,
		Chip:   chip,
		ValueX: valueX,
		Header: headerHeight,
		Summary: treeSummary{
			Title:      title,
			Source:     source,
			CapturedAt: captured,
			RowCount:   len(rows),
			MaxDepth:   maxDepth,
		},
	}
}

// --- rendering -------------------------------------------------------------

var (
	colorObjectChip   = color.RGBA{0xbb, 0xde, 0xfb, 0xff}
	colorVariableChip = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorMethodChip   = color.RGBA{0xe1, 0xbe, 0xe7, 0xff}
	colorViewChip     = color.RGBA{0xff, 0xf3, 0xe0, 0xff}
	colorTypeChip     = color.RGBA{0xcf, 0xd8, 0xdc, 0xff}
	colorUnknownChip  = color.RGBA{0xff, 0xcd, 0xd2, 0xff}
	colorStroke       = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorGuide        = color.RGBA{0x9f, 0xa8, 0xda, 0xff}
	colorText         = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle       = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBadValue     = color.RGBA{0xc6, 0x28, 0x28, 0xff}
	colorBackdrop     = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG     = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG     = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

func classColor(c addrspace.NodeClass) color.RGBA {
	switch c {
	case addrspace.ClassObject:
		return colorObjectChip
	case addrspace.ClassVariable:
		return colorVariableChip
	case addrspace.ClassMethod:
		return colorMethodChip
	case addrspace.ClassView:
		return colorViewChip
	case addrspace.ClassObjectType, addrspace.ClassVariableType,
		addrspace.ClassDataType, addrspace.ClassReferenceType:
		return colorTypeChip
	default:
		return colorUnknownChip
	}
}

func renderTreePNG(opts TreeSnapshotOptions, layout treeLayout) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	// header
	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)

	drawTreeSummaryBlock(dc, layout)
	drawTreeLegend(dc, layout)

	// connector guides first so rows draw over them
	dc.SetColor(colorGuide)
	dc.SetLineWidth(1)
	for _, r := range layout.Rows {
		if r.Parent < 0 {
			continue
		}
		p := layout.Rows[r.Parent]
		px := p.X + layout.Chip/2
		my := r.Y + layout.RowH/2
		dc.DrawLine(px, p.Y+layout.RowH, px, my)
		dc.Stroke()
		dc.DrawLine(px, my, r.X-4, my)
		dc.Stroke()
	}

	for _, r := range layout.Rows {
		drawTreeRow(dc, layout, r)
	}

	return dc.SavePNG(opts.Path)
}

func renderTreeSVG(opts TreeSnapshotOptions, layout treeLayout) error {
	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	return renderTreeSVGToWriter(file, layout)
}

func renderTreeSVGToWriter(w io.Writer, layout treeLayout) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	drawTreeSummaryBlockSVG(canvas, layout)
	drawTreeLegendSVG(canvas, layout)

	for _, r := range layout.Rows {
		if r.Parent < 0 {
			continue
		}
		p := layout.Rows[r.Parent]
		px := int(p.X + layout.Chip/2)
		my := int(r.Y + layout.RowH/2)
		style := fmt.Sprintf("stroke:%s;stroke-width:1", css(colorGuide))
		canvas.Line(px, int(p.Y+layout.RowH), px, my, style)
		canvas.Line(px, my, int(r.X-4), my, style)
	}

	for _, r := range layout.Rows {
		x := int(r.X)
		midY := int(r.Y + layout.RowH/2)
		chipY := int(r.Y + (layout.RowH-layout.Chip)/2)
		canvas.Roundrect(x, chipY, int(layout.Chip), int(layout.Chip), 3, 3,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(classColor(r.Class)), css(colorStroke)))
		canvas.Text(x+int(layout.Chip)+8, midY+4, r.Text,
			fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorText)))
		if r.HasValue {
			vc := colorSubtle
			if !r.Good {
				vc = colorBadValue
			}
			canvas.Text(int(layout.ValueX), midY+4, truncate(r.Value, 24),
				fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(vc)))
		}
	}

	canvas.End()
	return nil
}

func drawTreeRow(dc *gg.Context, layout treeLayout, r treeRow) {
	chipY := r.Y + (layout.RowH-layout.Chip)/2
	dc.SetColor(classColor(r.Class))
	dc.DrawRoundedRectangle(r.X, chipY, layout.Chip, layout.Chip, 3)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(r.X, chipY, layout.Chip, layout.Chip, 3)
	dc.Stroke()

	midY := r.Y + layout.RowH/2
	dc.SetColor(colorText)
	dc.DrawStringAnchored(r.Text, r.X+layout.Chip+8, midY, 0, 0.5)
	if r.HasValue {
		if r.Good {
			dc.SetColor(colorSubtle)
		} else {
			dc.SetColor(colorBadValue)
		}
		dc.DrawStringAnchored(truncate(r.Value, 24), layout.ValueX, midY, 0, 0.5)
	}
}

func drawTreeSummaryBlock(dc *gg.Context, layout treeLayout) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Summary.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("source: %s", layout.Summary.Source), 32, 64, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("rows: %d  depth: %d", layout.Summary.RowCount, layout.Summary.MaxDepth), 32, 84, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("captured: %s", layout.Summary.CapturedAt), 32, 104, 0, 0.5)
}

func drawTreeLegend(dc *gg.Context, layout treeLayout) {
	boxW := 180.0
	boxH := 106.0
	x := float64(layout.Width) - boxW - 20
	y := 24.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Legend", x+12, y+18, 0, 0.5)
	drawTreeLegendRow(dc, x+12, y+36, colorObjectChip, "Object / folder")
	drawTreeLegendRow(dc, x+12, y+52, colorVariableChip, "Variable")
	drawTreeLegendRow(dc, x+12, y+68, colorMethodChip, "Method")
	drawTreeLegendRow(dc, x+12, y+84, colorViewChip, "View")
	drawTreeLegendRow(dc, x+12, y+100, colorTypeChip, "Type")
}

func drawTreeLegendRow(dc *gg.Context, x, y float64, c color.RGBA, label string) {
	dc.SetColor(c)
	dc.DrawRoundedRectangle(x, y-8, 14, 14, 3)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y-8, 14, 14, 3)
	dc.Stroke()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(label, x+20, y, 0, 0.5)
}

func drawTreeSummaryBlockSVG(canvas *svg.SVG, layout treeLayout) {
	canvas.Text(32, 44, layout.Summary.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 64, fmt.Sprintf("source: %s", layout.Summary.Source), fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	canvas.Text(32, 84, fmt.Sprintf("rows: %d  depth: %d", layout.Summary.RowCount, layout.Summary.MaxDepth), fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	canvas.Text(32, 104, fmt.Sprintf("captured: %s", layout.Summary.CapturedAt), fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
}

func drawTreeLegendSVG(canvas *svg.SVG, layout treeLayout) {
	boxW := 180
	boxH := 106
	x := layout.Width - boxW - 20
	y := 24
	canvas.Roundrect(x, y, boxW, boxH, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	canvas.Text(x+12, y+18, "Legend", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	drawTreeLegendRowSVG(canvas, x+12, y+36, colorObjectChip, "Object / folder")
	drawTreeLegendRowSVG(canvas, x+12, y+52, colorVariableChip, "Variable")
	drawTreeLegendRowSVG(canvas, x+12, y+68, colorMethodChip, "Method")
	drawTreeLegendRowSVG(canvas, x+12, y+84, colorViewChip, "View")
	drawTreeLegendRowSVG(canvas, x+12, y+100, colorTypeChip, "Type")
}

func drawTreeLegendRowSVG(canvas *svg.SVG, x, y int, c color.RGBA, label string) {
	canvas.Roundrect(x, y-8, 14, 14, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(c), css(colorStroke)))
	canvas.Text(x+20, y, label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
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
