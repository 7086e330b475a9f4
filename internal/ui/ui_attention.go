package ui

import (
	"cmp"
	"fmt"
	"image/color"
	"log/slog"
	"slices"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/tartampluch/touch/internal/config"
	"github.com/tartampluch/touch/internal/engine"
)

// ShowAttentionWindow lists the contacts from the last collection, most
// urgent first. Clicking a header re-sorts by that column. Only one window
// is open at a time.
func (app *TouchApp) ShowAttentionWindow() {
	if app.attentionWindow != nil {
		slog.Debug(config.MsgFocusWin, config.LogKeyComponent, config.CompUI)
		app.attentionWindow.RequestFocus()
		return
	}

	w := app.App.NewWindow(app.GetMsg(config.TKeyWinAttention))
	w.Resize(fyne.NewSize(config.AttentionWinWidth, config.AttentionWinHeight))
	app.attentionWindow = w

	rows := app.SnapshotEntries()
	dark := app.Preferences.Bool(config.PrefDarkPalette)

	slog.Info(config.MsgOpenWin,
		config.LogKeyComponent, config.CompUI,
		config.LogKeyWindow, config.TKeyWinAttention,
		config.LogKeyCount, len(rows))

	sortCol, sortAsc := config.ColIDHealth, true
	var table *widget.Table

	table = widget.NewTable(
		func() (int, int) {
			return len(rows), config.AttentionColumns
		},
		func() fyne.CanvasObject {
			swatch := canvas.NewRectangle(color.Transparent)
			swatch.SetMinSize(fyne.NewSize(config.SwatchWidth, 0))
			return container.NewBorder(nil, nil, swatch, nil, widget.NewLabel(config.TablePlaceholder))
		},
		func(id widget.TableCellID, o fyne.CanvasObject) {
			if id.Row >= len(rows) {
				return
			}
			cell := o.(*fyne.Container)
			label := cell.Objects[0].(*widget.Label)
			swatch := cell.Objects[1].(*canvas.Rectangle)
			label.SetText(app.attentionCell(rows[id.Row], id.Col))

			swatch.FillColor = color.Transparent
			if id.Col == config.ColIDHealth {
				swatch.FillColor = hexColor(string(engine.HealthColorFor(rows[id.Row].Health, dark)))
			}
			swatch.Refresh()
		},
	)

	table.ShowHeaderRow = true
	table.CreateHeader = func() fyne.CanvasObject {
		return widget.NewButton("", nil)
	}
	table.UpdateHeader = func(id widget.TableCellID, o fyne.CanvasObject) {
		btn := o.(*widget.Button)
		text := app.GetMsg(attentionHeaders[id.Col])
		if id.Col == sortCol {
			if sortAsc {
				text += config.SortIconAsc
			} else {
				text += config.SortIconDesc
			}
		}
		btn.SetText(text)
		btn.OnTapped = func() {
			if sortCol == id.Col {
				sortAsc = !sortAsc
			} else {
				sortCol, sortAsc = id.Col, true
			}
			sortEntries(rows, sortCol, sortAsc)
			table.Refresh()
		}
	}

	table.SetColumnWidth(config.ColIDName, config.ColWidthName)
	table.SetColumnWidth(config.ColIDHealth, config.ColWidthHealth)
	table.SetColumnWidth(config.ColIDOverdue, config.ColWidthOverdue)

	w.SetContent(container.NewBorder(nil, nil, nil, nil, table))
	w.SetOnClosed(func() {
		app.attentionWindow = nil
	})
	w.Show()
}

var attentionHeaders = map[int]string{
	config.ColIDName:    config.TKeyColName,
	config.ColIDHealth:  config.TKeyColHealth,
	config.ColIDOverdue: config.TKeyColOverdue,
}

// SnapshotEntries copies the last collected entries.
func (app *TouchApp) SnapshotEntries() []engine.ReminderEntry {
	app.EntriesMut.RLock()
	defer app.EntriesMut.RUnlock()
	return slices.Clone(app.Entries)
}

func (app *TouchApp) attentionCell(e engine.ReminderEntry, col int) string {
	switch col {
	case config.ColIDName:
		return fmt.Sprintf(config.FormatNameCell, engine.Initials(e.ContactName), e.ContactName)
	case config.ColIDHealth:
		return fmt.Sprintf(config.FormatHealthCell, e.Health)
	default:
		if e.DaysOverdue <= 0 {
			if msg := app.GetMsg(config.TKeyDueSoon); msg != config.TKeyDueSoon {
				return msg
			}
			return config.FallbackDueSoon
		}
		if msg := app.Plural(config.TKeyOverdueDays, e.DaysOverdue); msg != "" {
			return msg
		}
		return fmt.Sprintf(config.FallbackOverdue, e.DaysOverdue)
	}
}

// sortEntries orders rows by column. Ties fall back to the name.
func sortEntries(rows []engine.ReminderEntry, col int, asc bool) {
	slices.SortStableFunc(rows, func(a, b engine.ReminderEntry) int {
		var c int
		switch col {
		case config.ColIDName:
			c = cmp.Compare(strings.ToLower(a.ContactName), strings.ToLower(b.ContactName))
		case config.ColIDHealth:
			c = cmp.Compare(a.Health, b.Health)
		default:
			c = cmp.Compare(a.DaysOverdue, b.DaysOverdue)
		}
		if !asc {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(a.ContactName, b.ContactName)
		}
		return c
	})
}

// hexColor parses "#RRGGBB"; anything else is transparent.
func hexColor(s string) color.Color {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.Transparent
	}
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}
