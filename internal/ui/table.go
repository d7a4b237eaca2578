package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const pageRows = 10

type tableColumn struct {
	key    string
	label  string
	width  int
	hidden bool
}

// table holds the cursor, column, sort and filter state shared by the list
// screens. value extracts the sortable/filterable text of a cell.
type table[R any] struct {
	allRows []R
	rows    []R
	cursor  int
	offset  int

	columns      []tableColumn
	activeColumn int
	sortKey      string
	sortDesc     bool
	filterKey    string
	filterValue  string

	value func(row R, key string) string
}

func newTable[R any](columns []tableColumn, value func(R, string) string) table[R] {
	return table[R]{columns: columns, value: value}
}

// SetRows replaces the data, keeping sort, filter and cursor where possible.
func (t *table[R]) SetRows(rows []R) {
	t.allRows = append([]R(nil), rows...)
	t.rebuild()
}

func (t *table[R]) ApplyPrefs(prefs TablePrefs) {
	if prefs.SortKey != "" {
		t.sortKey = prefs.SortKey
		t.sortDesc = prefs.SortDesc
	}
	hidden := make(map[string]bool, len(prefs.HiddenColumns))
	for _, c := range prefs.HiddenColumns {
		hidden[c] = true
	}
	for i := range t.columns {
		t.columns[i].hidden = hidden[t.columns[i].key]
	}
	if prefs.ActiveColumn != "" {
		for i, c := range t.columns {
			if c.key == prefs.ActiveColumn {
				t.activeColumn = i
				break
			}
		}
	}
	t.ensureVisibleActiveColumn()
	t.rebuild()
}

func (t *table[R]) Prefs() TablePrefs {
	var hidden []string
	for _, c := range t.columns {
		if c.hidden {
			hidden = append(hidden, c.key)
		}
	}
	return TablePrefs{
		SortKey:       t.sortKey,
		SortDesc:      t.sortDesc,
		HiddenColumns: hidden,
		ActiveColumn:  t.columns[t.activeColumn].key,
	}
}

func (t *table[R]) rebuild() {
	rows := append([]R(nil), t.allRows...)

	if t.filterKey != "" && t.filterValue != "" {
		filtered := make([]R, 0, len(rows))
		target := strings.ToLower(strings.TrimSpace(t.filterValue))
		for _, r := range rows {
			if strings.EqualFold(strings.TrimSpace(t.value(r, t.filterKey)), target) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	if t.sortKey != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			left := strings.ToLower(t.value(rows[i], t.sortKey))
			right := strings.ToLower(t.value(rows[j], t.sortKey))
			if t.sortDesc {
				return left > right
			}
			return left < right
		})
	}

	t.rows = rows
	t.clampCursor()
}

func (t *table[R]) clampCursor() {
	if len(t.rows) == 0 {
		t.cursor = 0
		t.offset = 0
		return
	}
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	if t.offset > t.cursor {
		t.offset = t.cursor
	}
}

// Selected returns the row under the cursor.
func (t *table[R]) Selected() (R, bool) {
	var zero R
	if len(t.rows) == 0 || t.cursor >= len(t.rows) {
		return zero, false
	}
	return t.rows[t.cursor], true
}

func (t *table[R]) NextColumn() {
	start := t.activeColumn
	for {
		t.activeColumn = (t.activeColumn + 1) % len(t.columns)
		if !t.columns[t.activeColumn].hidden || t.activeColumn == start {
			return
		}
	}
}

func (t *table[R]) PrevColumn() {
	start := t.activeColumn
	for {
		t.activeColumn--
		if t.activeColumn < 0 {
			t.activeColumn = len(t.columns) - 1
		}
		if !t.columns[t.activeColumn].hidden || t.activeColumn == start {
			return
		}
	}
}

func (t *table[R]) JumpToColumn(number int) bool {
	if number < 1 || number > len(t.columns) {
		return false
	}
	idx := number - 1
	if t.columns[idx].hidden {
		return false
	}
	t.activeColumn = idx
	return true
}

func (t *table[R]) SortActiveColumn(desc bool) {
	t.sortKey = t.columns[t.activeColumn].key
	t.sortDesc = desc
	t.rebuild()
}

func (t *table[R]) HideActiveColumn() bool {
	if len(t.visibleColumnIndexes()) <= 1 {
		return false
	}
	t.columns[t.activeColumn].hidden = true
	t.ensureVisibleActiveColumn()
	return true
}

func (t *table[R]) ShowAllColumns() {
	for i := range t.columns {
		t.columns[i].hidden = false
	}
}

func (t *table[R]) FilterBySelectedValue() bool {
	row, ok := t.Selected()
	if !ok {
		return false
	}
	key := t.columns[t.activeColumn].key
	value := strings.TrimSpace(t.value(row, key))
	if value == "" {
		return false
	}
	t.filterKey = key
	t.filterValue = value
	t.rebuild()
	return true
}

func (t *table[R]) ClearFilter() bool {
	if t.filterKey == "" {
		return false
	}
	t.filterKey = ""
	t.filterValue = ""
	t.rebuild()
	return true
}

func (t *table[R]) TableMeta() string {
	col := strings.ToUpper(t.columns[t.activeColumn].label)
	parts := []string{fmt.Sprintf("col %s", col)}
	if t.sortKey != "" {
		order := "asc"
		if t.sortDesc {
			order = "desc"
		}
		parts = append(parts, fmt.Sprintf("sort %s %s", strings.ToUpper(t.sortKey), order))
	}
	if t.filterKey != "" {
		parts = append(parts, fmt.Sprintf("filter %s=%q", strings.ToUpper(t.filterKey), t.filterValue))
	}
	return strings.Join(parts, "  ·  ")
}

func (t *table[R]) visibleColumnIndexes() []int {
	var idxs []int
	for i, c := range t.columns {
		if !c.hidden {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

func (t *table[R]) ensureVisibleActiveColumn() {
	if !t.columns[t.activeColumn].hidden {
		return
	}
	for i := range t.columns {
		if !t.columns[i].hidden {
			t.activeColumn = i
			return
		}
	}
	t.columns[0].hidden = false
	t.activeColumn = 0
}

// layout computes the visible columns, their widths and header labels.
func (t *table[R]) layout(width int) (visible []int, widths []int, headers []string) {
	visible = t.visibleColumnIndexes()
	totalFixed := 0
	for _, idx := range visible {
		col := t.columns[idx]
		label := strings.ToUpper(col.label)
		if idx == t.activeColumn {
			label = "❋ " + label
		}
		if t.sortKey == col.key {
			if t.sortDesc {
				label += " ↓"
			} else {
				label += " ↑"
			}
		}
		cellWidth := max(col.width, lipgloss.Width(label)+2)
		totalFixed += cellWidth
		widths = append(widths, cellWidth)
		headers = append(headers, label)
	}
	if len(widths) > 0 {
		if extra := width - totalFixed - 4; extra > 0 {
			widths[len(widths)-1] += extra
		}
	}
	return visible, widths, headers
}

// status renders the "Total" line under a table.
func (t *table[R]) status(noun string) string {
	filterInfo := ""
	if t.filterKey != "" {
		filterInfo = fmt.Sprintf("  ·  filtered: %d/%d", len(t.rows), len(t.allRows))
	}
	meta := t.TableMeta()
	if meta != "" {
		meta = "  ·  " + meta
	}
	return StatusBarStyle.Render(fmt.Sprintf("Total %s: %d%s%s", noun, len(t.rows), filterInfo, meta))
}

// MoveDown moves the cursor down.
func (t *table[R]) MoveDown() {
	if t.cursor < len(t.rows)-1 {
		t.cursor++
		if t.cursor >= t.offset+pageRows {
			t.offset++
		}
	}
}

// MoveUp moves the cursor up.
func (t *table[R]) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		if t.cursor < t.offset {
			t.offset--
		}
	}
}

func (t *table[R]) JumpToTop() {
	t.cursor = 0
	t.offset = 0
}

func (t *table[R]) JumpToBottom() {
	if len(t.rows) > 0 {
		t.cursor = len(t.rows) - 1
		if t.cursor >= pageRows {
			t.offset = t.cursor - (pageRows - 1)
		}
	}
}

func (t *table[R]) HalfPageDown(pageSize int) {
	if len(t.rows) == 0 {
		return
	}
	t.cursor += pageSize / 2
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor >= t.offset+pageRows {
		t.offset = t.cursor - (pageRows - 1)
	}
}

func (t *table[R]) HalfPageUp(pageSize int) {
	t.cursor -= pageSize / 2
	if t.cursor < 0 {
		t.cursor = 0
	}
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
}

func renderTableRow(cells []string, widths []int, style lipgloss.Style) string {
	var parts []string
	for i, cell := range cells {
		if i >= len(widths) {
			continue
		}
		parts = append(parts, style.Width(widths[i]).Render(cell))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
