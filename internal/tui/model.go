// Package tui provides the Bubble Tea dashboard interface.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/open-wbr/wbrdash/internal/auth"
	"github.com/open-wbr/wbrdash/internal/chart"
	"github.com/open-wbr/wbrdash/internal/service"
	"github.com/open-wbr/wbrdash/internal/wbr"
)

const (
	tabWeekly = iota
	tabMonthly
	tabKPIs
)

const plotHeight = 12

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// AuthOptions configures the login gate. When Enabled is false the
// dashboard opens directly.
type AuthOptions struct {
	Enabled         bool
	CredentialsPath string
	SessionPath     string
	SessionTTL      time.Duration
}

// Model implements the Bubble Tea dashboard UI.
type Model struct {
	svc *service.Service
	req service.Request

	authOpts   AuthOptions
	loggedIn   bool
	username   string
	loginMode  bool
	loginForm  []textinput.Model
	loginIndex int
	loginError string

	report service.Report
	errMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	kpiTable  table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a dashboard model. An existing valid session skips
// the login form.
func NewModel(svc *service.Service, req service.Request, authOpts AuthOptions) *Model {
	m := &Model{
		svc:      svc,
		req:      req,
		authOpts: authOpts,
		tabs:     []string{"Weekly", "Monthly", "KPIs"},
	}
	m.initFilterInputs()
	m.initLoginForm()
	m.initViewports()
	m.initKPITable()

	if !authOpts.Enabled {
		m.loggedIn = true
	} else if sess, ok, _ := auth.LoadSession(authOpts.SessionPath); ok {
		m.loggedIn = true
		m.username = sess.Username
	} else {
		m.loginMode = true
	}
	if m.loggedIn {
		m.refreshReport()
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.loginMode {
		return m.setLoginIndex(0)
	}
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.loginMode {
			return m.updateLogin(msg)
		}
		if msg.String() == "q" {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "/":
			return m.startFilter()
		case "r":
			m.svc.Invalidate(m.req)
			m.refreshReport()
			return m, nil
		case "g", "home":
			m.currentViewport().GotoTop()
			return m, nil
		case "G", "end":
			m.currentViewport().GotoBottom()
			return m, nil
		default:
			if m.activeTab == tabKPIs {
				var cmd tea.Cmd
				m.kpiTable, cmd = m.kpiTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.loginMode {
		return fitLines(m.renderLoginModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) currentViewport() *viewport.Model {
	if m.activeTab >= 0 && m.activeTab < len(m.viewports) {
		return &m.viewports[m.activeTab]
	}
	return &m.viewports[0]
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initFilterInputs() {
	m.filterInputs = []textinput.Model{
		newInput("Metric: "),
		newInput("Group: "),
		newInput("As of (YYYY-MM-DD): "),
		newInput("Weeks: "),
		newInput("Months: "),
	}
	m.setInputsFromRequest()
}

func (m *Model) initLoginForm() {
	user := newInput("Username: ")
	pass := newInput("Password: ")
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '*'
	m.loginForm = []textinput.Model{user, pass}
}

func (m *Model) initKPITable() {
	m.kpiTable = table.New(
		table.WithColumns(kpiColumns()),
		table.WithHeight(7),
	)
	m.kpiTable.SetStyles(kpiTableStyles())
}

func newInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromRequest() {
	if len(m.filterInputs) < 5 {
		return
	}
	m.filterInputs[0].SetValue(m.req.Metric)
	m.filterInputs[1].SetValue(m.req.Group)
	if !m.req.ReferenceDate.IsZero() {
		m.filterInputs[2].SetValue(m.req.ReferenceDate.Format("2006-01-02"))
	} else {
		m.filterInputs[2].SetValue("")
	}
	if m.req.WeekWindow > 0 {
		m.filterInputs[3].SetValue(strconv.Itoa(m.req.WeekWindow))
	} else {
		m.filterInputs[3].SetValue("")
	}
	if m.req.MonthWindow > 0 {
		m.filterInputs[4].SetValue(strconv.Itoa(m.req.MonthWindow))
	} else {
		m.filterInputs[4].SetValue("")
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
	for i := range m.loginForm {
		promptWidth := lipgloss.Width(m.loginForm[i].Prompt)
		m.loginForm[i].Width = maxInt(10, modalInnerWidth(m.width)-promptWidth)
	}
	m.kpiTable.SetWidth(m.width)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabKPIs {
		m.kpiTable.Focus()
	} else {
		m.kpiTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	summary := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + summary
}

func (m *Model) renderFilterSummary() string {
	metric := m.report.Metric.Title
	if metric == "" {
		metric = m.req.Metric
	}
	if metric == "" {
		metric = "default"
	}
	group := m.req.Group
	if group == "" {
		group = "all"
	}
	asOf := "latest"
	if !m.report.Params.ReferenceDate.IsZero() {
		asOf = m.report.Params.ReferenceDate.Format("2006-01-02")
	} else if !m.req.ReferenceDate.IsZero() {
		asOf = m.req.ReferenceDate.Format("2006-01-02")
	}
	summary := fmt.Sprintf("Metric: %s  group=%s  as-of=%s", metric, group, asOf)
	if m.username != "" {
		summary += fmt.Sprintf("  user=%s", m.username)
	}
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Filters: /  Reload: r  Quit: q")
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Filters (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if names := m.svc.MetricNames(); len(names) > 0 {
		lines = append(lines, headerStyle.Render("Metrics: "+strings.Join(names, ", ")))
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabKPIs {
		if m.errMsg != "" {
			return fitLines("Failed to load the report.", m.width, height)
		}
		cards := m.renderKPICards()
		view := cards + "\n" + tableMutedStyle.Render(m.kpiTable.View())
		return fitLines(view, m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	rep, err := m.svc.Run(context.Background(), m.req)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load the report.")
		}
		return
	}
	m.errMsg = ""
	m.report = rep
	m.kpiTable.SetRows(kpiRows(rep.Result))
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load the report.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabWeekly].SetContent(m.renderWeekly(width))
	m.viewports[tabMonthly].SetContent(m.renderMonthly(width))
}

func (m *Model) renderWeekly(width int) string {
	res := m.report.Result
	if len(res.Weeks) == 0 {
		return "No data in the weekly window."
	}
	oldest := res.Weeks[len(res.Weeks)-1]
	newest := res.Weeks[0]
	left := oldest.CYStart.AddDate(0, 0, 6).Format("2006-01-02")
	right := newest.CYStart.AddDate(0, 0, 6).Format("2006-01-02")
	title := fmt.Sprintf("%s, weekly totals", m.report.Metric.Title)
	var buf bytes.Buffer
	if err := chart.Plot(&buf, title, chart.WeekSeries(res), left, right, chart.PlotWidthFor(width), plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render the weekly plot: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (m *Model) renderMonthly(width int) string {
	res := m.report.Result
	if len(res.Months) == 0 {
		return "No data in the monthly window."
	}
	oldest := res.Months[len(res.Months)-1]
	newest := res.Months[0]
	right := newest.CYMonth.Format("2006-01")
	if newest.Partial {
		right += " (partial)"
	}
	title := fmt.Sprintf("%s, monthly totals", m.report.Metric.Title)
	var buf bytes.Buffer
	if err := chart.Plot(&buf, title, chart.MonthSeries(res), oldest.CYMonth.Format("2006-01"), right, chart.PlotWidthFor(width), plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render the monthly plot: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (m *Model) renderKPICards() string {
	res := m.report.Result
	var thisWeek wbr.Value
	if len(res.Weeks) > 0 {
		thisWeek = res.Weeks[0].CY
	}
	cards := []string{
		metricCard("This week", chart.FormatValue(thisWeek)),
		metricCard("WoW", chart.FormatChange(res.KPIs.WoWPct)),
		metricCard("Week YoY", chart.FormatChange(res.KPIs.WeekYoYPct)),
		metricCard("MTD YoY", chart.FormatChange(res.KPIs.MTDYoYPct)),
		metricCard("YTD YoY", chart.FormatChange(res.KPIs.YTDYoYPct)),
	}
	if m.width < 80 {
		return strings.Join(cards[:3], "\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func kpiColumns() []table.Column {
	return []table.Column{
		{Title: "Measure", Width: 22},
		{Title: "Current", Width: 12},
		{Title: "Prior", Width: 12},
		{Title: "Change", Width: 10},
	}
}

func kpiRows(res wbr.Result) []table.Row {
	rows := chart.KPIRows(res)
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, table.Row(r))
	}
	return out
}

func kpiTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromRequest()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	metric := strings.TrimSpace(m.filterInputs[0].Value())
	group := strings.TrimSpace(m.filterInputs[1].Value())

	asOfInput := strings.TrimSpace(m.filterInputs[2].Value())
	var asOf time.Time
	if asOfInput != "" {
		parsed, err := wbr.ParseReferenceDate(asOfInput)
		if err != nil {
			return fmt.Errorf("invalid as-of date (expected YYYY-MM-DD)")
		}
		asOf = parsed
	}

	weeks, err := parseWindow(m.filterInputs[3].Value(), "weeks")
	if err != nil {
		return err
	}
	months, err := parseWindow(m.filterInputs[4].Value(), "months")
	if err != nil {
		return err
	}

	m.req = service.Request{
		Metric:        metric,
		Group:         group,
		ReferenceDate: asOf,
		WeekWindow:    weeks,
		MonthWindow:   months,
	}
	return nil
}

func parseWindow(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return 0, fmt.Errorf("invalid %s value (use a positive integer)", name)
	}
	return parsed, nil
}

func (m *Model) renderLoginModal() string {
	title := cardValueStyle.Render("Sign in")
	body := []string{title}
	for _, input := range m.loginForm {
		body = append(body, input.View())
	}
	body = append(body,
		headerStyle.Render("tab: next field  enter: sign in  ctrl+c: quit"))
	if m.loginError != "" {
		body = append(body, errorStyle.Render(m.loginError))
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyTab, tea.KeyShiftTab:
		delta := 1
		if msg.Type == tea.KeyShiftTab {
			delta = -1
		}
		return m, m.setLoginIndex(m.loginIndex + delta)
	case tea.KeyEnter:
		if m.loginIndex == 0 {
			return m, m.setLoginIndex(1)
		}
		username := strings.TrimSpace(m.loginForm[0].Value())
		password := m.loginForm[1].Value()
		sess, err := auth.Login(m.authOpts.CredentialsPath, m.authOpts.SessionPath, username, password, m.authOpts.SessionTTL)
		if err != nil {
			m.loginError = err.Error()
			m.loginForm[1].SetValue("")
			return m, nil
		}
		m.loginMode = false
		m.loggedIn = true
		m.username = sess.Username
		m.loginError = ""
		m.refreshReport()
		m.updateLayout()
		return m, tea.ClearScreen
	}
	var cmd tea.Cmd
	m.loginForm[m.loginIndex], cmd = m.loginForm[m.loginIndex].Update(msg)
	return m, cmd
}

func (m *Model) setLoginIndex(idx int) tea.Cmd {
	count := len(m.loginForm)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.loginIndex = idx
	var cmd tea.Cmd
	for i := range m.loginForm {
		if i == m.loginIndex {
			cmd = m.loginForm[i].Focus()
		} else {
			m.loginForm[i].Blur()
		}
	}
	return cmd
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func modalWidth(width int) int {
	return maxInt(40, minInt(width-4, 80))
}

func modalInnerWidth(width int) int {
	w := modalWidth(width)
	w -= 6 // 2 border + 4 padding
	if w < 10 {
		return 10
	}
	return w
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
