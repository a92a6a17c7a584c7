package ui

import (
	"fmt"

	"github.com/muesli/reflow/truncate"

	"github.com/Makepad-fr/tada/internal/model"
)

const maxTitleWidth = 80

// Title shortens s to width cells, ending in "...".
func Title(s string, width int) string {
	if width <= 0 {
		width = maxTitleWidth
	}
	return truncate.StringWithTail(s, uint(width), "...")
}

// Header is "Todos  ✔ 2  • 3  Total 5".
func Header(done, pending int) string {
	t := Current()
	return fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		t.Title.Render("Todos"),
		t.Success.Render(t.SymDone), done,
		t.Pending.Render(t.SymPending), pending,
		t.Accent.Render("Total"), done+pending,
	)
}

// Badges marks whether an item has a photo and a location.
func Badges(it model.Item) string {
	t := Current()
	out := ""
	if it.Photo() != "" {
		out += " " + t.SymPhoto
	}
	if it.Location != nil {
		out += " " + t.SymPin
	}
	return out
}

// ItemLine renders one item with its 1-based index.
func ItemLine(index int, it model.Item) string {
	t := Current()
	box, style := t.Muted.Render(t.BoxUnchecked), t.Title.UnsetBold()
	if it.Completed {
		box, style = t.Success.Render(t.BoxChecked), t.Done
	}
	return fmt.Sprintf("%s %s %s%s",
		t.Muted.Render(fmt.Sprintf("%2d.", index)), box,
		style.Render(Title(it.Title, maxTitleWidth)), t.Muted.Render(Badges(it)))
}

// FlatLines lists items in store order.
func FlatLines(items []model.Item) []string {
	if len(items) == 0 {
		return []string{Current().Muted.Render("no items")}
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		out = append(out, ItemLine(i+1, it))
	}
	return out
}

// GroupLines lists pending items first, then done ones. Indexes stay those of
// the flat list so `tada done N` keeps working.
func GroupLines(items []model.Item) []string {
	t := Current()
	var pend, done []string
	for i, it := range items {
		if it.Completed {
			done = append(done, ItemLine(i+1, it))
		} else {
			pend = append(pend, ItemLine(i+1, it))
		}
	}
	none := t.Muted.Render("(none)")
	var lines []string
	lines = append(lines, t.Accent.Render("Pending"))
	if len(pend) == 0 {
		lines = append(lines, none)
	}
	lines = append(lines, pend...)
	lines = append(lines, "")
	lines = append(lines, t.Accent.Render("Done"))
	if len(done) == 0 {
		lines = append(lines, none)
	}
	return append(lines, done...)
}
