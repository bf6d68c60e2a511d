// Package tui is a read-only terminal dashboard over the analytics
// components. All writes go through the component APIs; the dashboard only
// renders their output.
package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sprintlens/internal/heatmap"
	"sprintlens/internal/models"
	"sprintlens/internal/velocity"
)

// Tabs
const (
	TabVelocity = 0
	TabHeatmap  = 1
	TabSheets   = 2
)

var tabTitles = []string{"Velocity", "Heatmap", "Timesheets"}

// TimesheetSource lists the approval queue.
type TimesheetSource interface {
	ListTimesheets(ctx context.Context, status models.TimesheetStatus) ([]models.Timesheet, error)
}

// DashboardModel is the top-level bubbletea model.
type DashboardModel struct {
	ctx       context.Context
	velocity  *velocity.Tracker
	heatmap   *heatmap.Builder
	sheets    TimesheetSource
	projectID int64
	from, to  string

	tab           int
	tables        [3]table.Model
	err           error
	width, height int
}

// NewDashboardModel builds the dashboard for one project over a date window.
func NewDashboardModel(ctx context.Context, tr *velocity.Tracker, hm *heatmap.Builder, sheets TimesheetSource, projectID int64, from, to string) DashboardModel {
	m := DashboardModel{
		ctx:       ctx,
		velocity:  tr,
		heatmap:   hm,
		sheets:    sheets,
		projectID: projectID,
		from:      from,
		to:        to,
	}
	m.tables[TabVelocity] = newTable([]table.Column{
		{Title: "Sprint", Width: 8},
		{Title: "Committed", Width: 10},
		{Title: "Completed", Width: 10},
		{Title: "Avg 3", Width: 8},
		{Title: "Avg 6", Width: 8},
		{Title: "Trend", Width: 12},
	})
	m.tables[TabHeatmap] = newTable([]table.Column{
		{Title: "User", Width: 8},
		{Title: "Date", Width: 12},
		{Title: "Utilization", Width: 12},
		{Title: "Status", Width: 8},
	})
	m.tables[TabSheets] = newTable([]table.Column{
		{Title: "ID", Width: 6},
		{Title: "User", Width: 8},
		{Title: "Period", Width: 24},
		{Title: "Hours", Width: 8},
		{Title: "Status", Width: 10},
	})
	m.refreshData()
	return m
}

func newTable(cols []table.Column) table.Model {
	t := table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(12))
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(CurrentTheme.Border).BorderBottom(true)
	s.Selected = CurrentTheme.Focused
	t.SetStyles(s)
	return t
}

func (m *DashboardModel) refreshData() {
	m.err = nil

	history, err := m.velocity.Chart(m.ctx, m.projectID)
	if err != nil {
		m.err = err
		return
	}
	velocityRows := make([]table.Row, 0, len(history))
	for _, v := range history {
		velocityRows = append(velocityRows, table.Row{
			strconv.FormatInt(v.SprintID, 10),
			fmt.Sprintf("%g", v.Committed),
			fmt.Sprintf("%g", v.Completed),
			fmt.Sprintf("%.1f", v.Avg3),
			fmt.Sprintf("%.1f", v.Avg6),
			string(v.Trend),
		})
	}
	m.tables[TabVelocity].SetRows(velocityRows)

	cells, err := m.heatmap.Grid(m.ctx, m.projectID, m.from, m.to)
	if err != nil {
		m.err = err
		return
	}
	cellRows := make([]table.Row, 0, len(cells))
	for _, c := range cells {
		cellRows = append(cellRows, table.Row{
			strconv.FormatInt(c.UserID, 10),
			c.Date,
			fmt.Sprintf("%.0f%%", c.Utilization*100),
			BucketStyle(c.Status).Render(string(c.Status)),
		})
	}
	m.tables[TabHeatmap].SetRows(cellRows)

	sheets, err := m.sheets.ListTimesheets(m.ctx, models.TimesheetSubmitted)
	if err != nil {
		m.err = err
		return
	}
	sheetRows := make([]table.Row, 0, len(sheets))
	for _, ts := range sheets {
		sheetRows = append(sheetRows, table.Row{
			strconv.FormatInt(ts.ID, 10),
			strconv.FormatInt(ts.UserID, 10),
			ts.PeriodStart + " .. " + ts.PeriodEnd,
			fmt.Sprintf("%g", ts.TotalHours),
			string(ts.Status),
		})
	}
	m.tables[TabSheets].SetRows(sheetRows)
}

func (m DashboardModel) Init() tea.Cmd { return nil }

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		height := m.height - 6
		if height < 3 {
			height = 3
		}
		for i := range m.tables {
			m.tables[i].SetHeight(height)
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.tab = (m.tab + 1) % len(tabTitles)
			return m, nil
		case "shift+tab", "left", "h":
			m.tab = (m.tab + len(tabTitles) - 1) % len(tabTitles)
			return m, nil
		case "r":
			m.refreshData()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.tables[m.tab], cmd = m.tables[m.tab].Update(msg)
	return m, cmd
}

func (m DashboardModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("\nError: %v\n\nPress 'r' to retry or 'q' to quit.", m.err)
	}

	var tabs string
	for i, title := range tabTitles {
		style := CurrentTheme.TabIdle
		if i == m.tab {
			style = CurrentTheme.TabActive
		}
		if i > 0 {
			tabs += CurrentTheme.Dim.Render("  |  ")
		}
		tabs += style.Render(title)
	}

	header := CurrentTheme.Header.Render(fmt.Sprintf("Project %d  %s .. %s", m.projectID, m.from, m.to))
	footer := CurrentTheme.Dim.Render("[tab] Switch | [up/down] Scroll | [r] Refresh | [q] Quit")

	return CurrentTheme.Base.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			tabs,
			"",
			m.tables[m.tab].View(),
			"",
			footer,
		))
}
