package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ghboard/internal/board"
	"ghboard/internal/errors"
	"ghboard/internal/kanban"
	"ghboard/internal/labels"
	"ghboard/internal/logger"
	"ghboard/internal/ratelimit"
	"ghboard/internal/remote"
	"ghboard/internal/usercfg"

	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"
)

// remoteTimeout bounds each command that talks to GitHub.
const remoteTimeout = 30 * time.Second

type columnView struct {
	cursor int
	offset int // top index of the visible window
}

type fetchedMsg struct{ res kanban.FetchResult }

type movedMsg struct {
	req kanban.MoveRequest
	res remote.MoveResult
	err error
}

type createdMsg struct {
	card *board.Card
	col  labels.Column
	repo board.RepoContext
	err  error
}

type archivedMsg struct {
	req kanban.ArchiveRequest
	err error
}

type alertMsg struct{ err error }

type rateLimitMsg struct {
	state     ratelimit.State
	remaining int
	limit     int
	resetAt   time.Time
}

// teaPresenter forwards limiter transitions into the program.
type teaPresenter struct{ send func(tea.Msg) }

func (p teaPresenter) ShowBlocked(resetAt time.Time) {
	p.send(rateLimitMsg{state: ratelimit.Blocked, resetAt: resetAt})
}

func (p teaPresenter) ShowWarning(remaining, limit int, resetAt time.Time) {
	p.send(rateLimitMsg{state: ratelimit.Warning, remaining: remaining, limit: limit, resetAt: resetAt})
}

func (p teaPresenter) ClearRateLimit() { p.send(rateLimitMsg{state: ratelimit.Normal}) }

// teaNotifier forwards remote failures into the program.
type teaNotifier struct{ send func(tea.Msg) }

func (n teaNotifier) Alert(err error) { n.send(alertMsg{err: err}) }

type boardModel struct {
	svc         *kanban.Service
	cfg         usercfg.Config
	views       []columnView
	selectedCol int
	loading     bool
	err         error
	notice      string
	rate        rateLimitMsg
	width       int
	height      int
	filtering   bool
	filterInput textinput.Model
	filter      string
	creating    bool
	titleInput  textinput.Model
	pickingRepo bool
	repoCursor  int
	showingHelp bool
	helpOffset  int
	styles      boardStyles
	launchSetup bool // request to launch setup wizard after TUI exits
	chosenRepo  board.RepoContext
}

type boardStyles struct {
	header      lipgloss.Style
	title       lipgloss.Style
	boxStyle    lipgloss.Style
	boxActive   lipgloss.Style
	selected    lipgloss.Style
	muted       lipgloss.Style
	help        lipgloss.Style
	helpOverlay lipgloss.Style
	helpTitle   lipgloss.Style
	helpKey     lipgloss.Style
	error       lipgloss.Style
	banner      lipgloss.Style
	warning     lipgloss.Style
	label       lipgloss.Style
}

// newBoardStyles returns hardcoded dark theme styles
func newBoardStyles() boardStyles {
	return boardStyles{
		header:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		boxStyle:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).BorderForeground(lipgloss.Color("240")),
		boxActive:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).BorderForeground(lipgloss.Color("10")),
		selected:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")),
		muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		help:        lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		helpOverlay: lipgloss.NewStyle().Background(lipgloss.Color("235")).Foreground(lipgloss.Color("255")).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("99")).Padding(1, 2),
		helpTitle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		helpKey:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		error:       lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		banner:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(lipgloss.Color("124")).Padding(0, 1),
		warning:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		label:       lipgloss.NewStyle().Foreground(lipgloss.Color("108")),
	}
}

func initialBoardModel(svc *kanban.Service, cfg usercfg.Config) boardModel {
	filter := textinput.New()
	filter.Placeholder = "filter..."
	filter.CharLimit = 256

	title := textinput.New()
	title.Placeholder = "card title"
	title.CharLimit = 256

	uiPrefs := cfg.UIPrefs
	cols := len(svc.Board.Columns)
	initialCol := 0
	if uiPrefs.LastSelectedCol >= 0 && uiPrefs.LastSelectedCol < cols {
		initialCol = uiPrefs.LastSelectedCol
	}

	return boardModel{
		svc:         svc,
		cfg:         cfg,
		views:       make([]columnView, cols),
		selectedCol: initialCol,
		loading:     true,
		filterInput: filter,
		filter:      uiPrefs.LastFilter,
		titleInput:  title,
		styles:      newBoardStyles(),
	}
}

func (m boardModel) Init() tea.Cmd { return m.fetchCmd() }

func (m boardModel) fetchCmd() tea.Cmd {
	svc := m.svc
	repo := svc.Repo()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		return fetchedMsg{res: svc.Fetch(ctx, repo)}
	}
}

func (m boardModel) pushMoveCmd(req kanban.MoveRequest) tea.Cmd {
	if !m.svc.NeedsPush(req) {
		return nil
	}
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		res, err := svc.PushMove(ctx, req)
		return movedMsg{req: req, res: res, err: err}
	}
}

func (m boardModel) createCmd(title string, col labels.Column) tea.Cmd {
	svc := m.svc
	repo := svc.Repo()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		card, err := svc.NewCard(ctx, repo, title, "", col)
		return createdMsg{card: card, col: col, repo: repo, err: err}
	}
}

func (m boardModel) archiveCmd(req kanban.ArchiveRequest) tea.Cmd {
	if !req.Remote {
		return nil
	}
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		return archivedMsg{req: req, err: svc.PushArchive(ctx, req)}
	}
}

// visibleCards is what a column shows after the filter.
func (m boardModel) visibleCards(i int) []*board.Card {
	col := m.svc.Board.Columns[i]
	if col.Collapsed {
		return nil
	}
	return board.FilterCards(col.Visible(), m.filter)
}

func (m boardModel) currentCard() (*board.Card, bool) {
	if len(m.svc.Board.Columns) == 0 {
		return nil, false
	}
	cards := m.visibleCards(m.selectedCol)
	if len(cards) == 0 {
		return nil, false
	}
	c := m.views[m.selectedCol].cursor
	if c < 0 || c >= len(cards) {
		return nil, false
	}
	return cards[c], true
}

func (m boardModel) columnName(i int) labels.Column { return m.svc.Board.Columns[i].Name }

// selectKey moves the selection to the card with key, wherever it is.
func (m *boardModel) selectKey(key string) {
	for i := range m.svc.Board.Columns {
		for j, c := range m.visibleCards(i) {
			if c.Key() == key {
				m.selectedCol = i
				m.views[i].cursor = j
				m.ensureCursorVisible(i)
				return
			}
		}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	ctx := context.Background()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for i := range m.views {
			m.ensureCursorVisible(i)
		}
		return m, nil

	case fetchedMsg:
		m.loading = false
		if err := m.svc.Rebuild(ctx, msg.res); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		for i := range m.views {
			m.ensureCursorVisible(i)
		}
		return m, nil

	case movedMsg:
		m.svc.ApplyMove(msg.req, msg.res, msg.err)
		if msg.err != nil && !errors.IsRateLimited(msg.err) {
			m.err = msg.err
		}
		return m, nil

	case createdMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if msg.repo != m.svc.Repo() {
			return m, nil
		}
		if err := m.svc.InsertCard(ctx, msg.card, msg.col); err != nil {
			m.err = err
			return m, nil
		}
		m.selectKey(msg.card.Key())
		m.notice = "Created " + cardLabel(msg.card)
		return m, nil

	case archivedMsg:
		if msg.err != nil && !errors.IsRateLimited(msg.err) {
			m.err = msg.err
		}
		return m, nil

	case alertMsg:
		m.err = msg.err
		return m, nil

	case rateLimitMsg:
		m.rate = msg
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(ctx, msg)
	}
	return m, nil
}

func (m boardModel) handleKey(ctx context.Context, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showingHelp {
		return m.handleHelpKey(msg.String())
	}
	if m.creating {
		return m.handleCreateKey(msg)
	}
	if m.pickingRepo {
		return m.handleRepoKey(msg.String())
	}
	if m.filtering {
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			m.filtering = false
			m.filter = ""
			m.filterInput.SetValue("")
			for i := range m.views {
				m.ensureCursorVisible(i)
			}
			return m, nil
		case tea.KeyEnter:
			m.filtering = false
			return m, nil
		default:
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			m.filter = m.filterInput.Value()
			for i := range m.views {
				m.ensureCursorVisible(i)
			}
			return m, cmd
		}
	}

	m.notice = ""
	key := msg.String()
	switch {
	// Critical actions first to avoid conflicts with navigation keys
	case key == "q" || key == "ctrl+c":
		m.saveUIPreferences()
		return m, tea.Quit
	case key == "?":
		m.showingHelp = !m.showingHelp
		return m, nil
	case key == "esc":
		m.err = nil
		if m.rate.state == ratelimit.Warning {
			m.rate = rateLimitMsg{}
		}
		return m, nil
	case key == "w":
		m.launchSetup = true
		m.saveUIPreferences()
		return m, tea.Quit
	case key == "/":
		m.filtering = true
		m.filterInput.SetValue(m.filter)
		m.filterInput.Focus()
		return m, nil
	case key == "r":
		m.loading = true
		return m, m.fetchCmd()
	case key == "n":
		m.creating = true
		m.titleInput.SetValue("")
		m.titleInput.Focus()
		return m, nil
	case key == "c":
		name := m.columnName(m.selectedCol)
		m.svc.ToggleCollapse(ctx, name)
		m.ensureCursorVisible(m.selectedCol)
		return m, nil
	case key == "p":
		if len(m.cfg.RecentRepos) == 0 {
			m.notice = "No recent repositories yet; run ghboard setup to pick one"
			return m, nil
		}
		m.pickingRepo = true
		m.repoCursor = 0
		return m, nil
	case key == "o":
		if card, ok := m.currentCard(); ok {
			m.openCard(card)
		}
		return m, nil
	case key == "a":
		return m.archiveSelected(ctx)
	case key == "H" || key == "<":
		return m.moveSelected(ctx, -1)
	case key == "L" || key == ">":
		return m.moveSelected(ctx, 1)
	case key == "K":
		return m.reorderSelected(ctx, -1)
	case key == "J":
		return m.reorderSelected(ctx, 1)

	// Navigation last so action keys don't get shadowed
	case key == "l" || key == "right" || key == "tab":
		m.selectedCol = (m.selectedCol + 1) % len(m.views)
		m.ensureCursorVisible(m.selectedCol)
	case key == "h" || key == "left" || key == "shift+tab":
		m.selectedCol = (m.selectedCol - 1 + len(m.views)) % len(m.views)
		m.ensureCursorVisible(m.selectedCol)
	case key == "j" || key == "down":
		v := &m.views[m.selectedCol]
		if v.cursor < len(m.visibleCards(m.selectedCol))-1 {
			v.cursor++
			m.ensureCursorVisible(m.selectedCol)
		}
	case key == "k" || key == "up":
		v := &m.views[m.selectedCol]
		if v.cursor > 0 {
			v.cursor--
			m.ensureCursorVisible(m.selectedCol)
		}
	}
	return m, nil
}

func (m boardModel) handleHelpKey(key string) (tea.Model, tea.Cmd) {
	lines, _, viewport := m.helpLayout()
	maxOffset := 0
	if viewport < len(lines) {
		maxOffset = len(lines) - viewport
	}
	switch key {
	case "q", "?", "esc":
		m.showingHelp = false
	case "up", "k":
		if m.helpOffset > 0 {
			m.helpOffset--
		}
	case "down", "j":
		if m.helpOffset < maxOffset {
			m.helpOffset++
		}
	case "home":
		m.helpOffset = 0
	case "end":
		m.helpOffset = maxOffset
	}
	return m, nil
}

func (m boardModel) handleCreateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.creating = false
		return m, nil
	case tea.KeyEnter:
		m.creating = false
		title := strings.TrimSpace(m.titleInput.Value())
		if title == "" {
			return m, nil
		}
		m.notice = "Creating..."
		return m, m.createCmd(title, m.columnName(m.selectedCol))
	}
	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

func (m boardModel) handleRepoKey(key string) (tea.Model, tea.Cmd) {
	repos := m.cfg.RecentRepos
	switch key {
	case "esc", "q", "p":
		m.pickingRepo = false
	case "up", "k":
		if m.repoCursor > 0 {
			m.repoCursor--
		}
	case "down", "j":
		if m.repoCursor < len(repos)-1 {
			m.repoCursor++
		}
	case "enter":
		m.pickingRepo = false
		repo, err := board.ParseRepo(repos[m.repoCursor])
		if err != nil {
			m.err = errors.NewInvalidRepoError(repos[m.repoCursor])
			return m, nil
		}
		if repo == m.svc.Repo() {
			return m, nil
		}
		m.svc.SetRepo(repo)
		m.chosenRepo = repo
		m.cfg = m.cfg.WithRecentRepo(repo)
		m.views = make([]columnView, len(m.svc.Board.Columns))
		m.loading = true
		m.err = nil
		logger.TUI("switched board to %s", repo)
		return m, m.fetchCmd()
	}
	return m, nil
}

// moveSelected moves the selected card dir columns over, to the top.
func (m boardModel) moveSelected(ctx context.Context, dir int) (tea.Model, tea.Cmd) {
	card, ok := m.currentCard()
	if !ok {
		return m, nil
	}
	target := m.selectedCol + dir
	if target < 0 || target >= len(m.views) {
		return m, nil
	}
	req, err := m.svc.MoveLocal(ctx, card.Key(), m.columnName(target), 0)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.ensureCursorVisible(m.selectedCol)
	m.selectKey(req.Key)
	return m, m.pushMoveCmd(req)
}

// reorderSelected swaps the selected card with its neighbour.
func (m boardModel) reorderSelected(ctx context.Context, dir int) (tea.Model, tea.Cmd) {
	if m.filter != "" {
		m.notice = "Clear the filter to reorder cards"
		return m, nil
	}
	card, ok := m.currentCard()
	if !ok {
		return m, nil
	}
	cur := m.views[m.selectedCol].cursor
	next := cur + dir
	if next < 0 || next >= len(m.visibleCards(m.selectedCol)) {
		return m, nil
	}
	if _, err := m.svc.MoveLocal(ctx, card.Key(), m.columnName(m.selectedCol), next); err != nil {
		m.err = err
		return m, nil
	}
	m.views[m.selectedCol].cursor = next
	m.ensureCursorVisible(m.selectedCol)
	return m, nil
}

func (m boardModel) archiveSelected(ctx context.Context) (tea.Model, tea.Cmd) {
	card, ok := m.currentCard()
	if !ok {
		return m, nil
	}
	if card.Special != "" {
		m.notice = "Built-in cards cannot be archived"
		return m, nil
	}
	req, _, err := m.svc.RemoveCard(ctx, card.Key())
	if err != nil {
		m.err = err
		return m, nil
	}
	m.ensureCursorVisible(m.selectedCol)
	m.notice = "Archived " + cardLabel(card)
	return m, m.archiveCmd(req)
}

func (m *boardModel) openCard(card *board.Card) {
	url := card.URL
	if url == "" && card.IssueNumber > 0 {
		repo := m.svc.Repo()
		url = fmt.Sprintf("https://github.com/%s/%s/issues/%d", repo.Owner, repo.Repo, card.IssueNumber)
	}
	if url == "" {
		m.notice = "Local cards have no page to open"
		return
	}
	if err := browser.OpenURL(url); err != nil {
		m.err = err
	}
}

func cardLabel(c *board.Card) string {
	if c.IssueNumber > 0 {
		return fmt.Sprintf("#%d %s", c.IssueNumber, c.Title)
	}
	return c.Title
}

func (m boardModel) View() string {
	repo := m.svc.Repo()
	mode := "local only"
	if m.svc.Authenticated() {
		mode = "synced"
	}
	header := m.styles.header.Render(clip(fmt.Sprintf("ghboard: %s (%s)", repo, mode), m.width))
	help := m.styles.help.Render(clip("(? help • q quit • hjkl move • H/L move card • n new • a archive • / filter)", m.width))

	banner := ""
	switch m.rate.state {
	case ratelimit.Blocked:
		banner = "\n" + m.styles.banner.Render(clip(fmt.Sprintf(
			"GitHub rate limit reached. Changes are local until %s.", m.rate.resetAt.Format("15:04:05")), m.width))
	case ratelimit.Warning:
		banner = "\n" + m.styles.warning.Render(clip(fmt.Sprintf(
			"%d of %d GitHub requests left until %s (esc to dismiss)",
			m.rate.remaining, m.rate.limit, m.rate.resetAt.Format("15:04")), m.width))
	}

	cols := len(m.svc.Board.Columns)
	if cols == 0 {
		return header + "\n" + "No columns configured" + "\n"
	}

	usableWidth := m.width - 2*cols
	colWidth := max(18, usableWidth/cols)
	if w := m.cfg.UIPrefs.ColumnWidth; w > 0 {
		colWidth = w
	}

	itemsWindow := m.itemsWindowCount()
	rendered := make([]string, cols)
	for i, col := range m.svc.Board.Columns {
		cards := m.visibleCards(i)
		title := m.styles.title.Render(fmt.Sprintf("%s (%d)", col.Name.Title(), col.Count()))

		var items []string
		switch {
		case col.Collapsed:
			items = []string{m.styles.muted.Render("(collapsed, c to expand)")}
		case m.loading && col.Count() == 0:
			items = []string{m.styles.muted.Render("(loading…)")}
		case len(cards) == 0:
			items = []string{m.styles.muted.Render("(empty)")}
		default:
			start := m.views[i].offset
			end := min(len(cards), start+itemsWindow)
			if start > 0 {
				items = append(items, m.styles.muted.Render(fmt.Sprintf("… %d above", start)))
			} else {
				items = append(items, "")
			}
			for idx := start; idx < end; idx++ {
				line := m.cardLine(cards[idx], colWidth-4)
				if i == m.selectedCol && idx == m.views[i].cursor {
					line = m.styles.selected.Render(clip(m.cardText(cards[idx]), colWidth-4))
				}
				items = append(items, line)
			}
			if end < len(cards) {
				items = append(items, m.styles.muted.Render(fmt.Sprintf("… %d below", len(cards)-end)))
			} else {
				items = append(items, "")
			}
		}

		box := m.styles.boxStyle
		if i == m.selectedCol {
			box = m.styles.boxActive
		}
		rendered[i] = box.Width(colWidth).Render(title + "\n" + strings.Join(items, "\n"))
	}
	boardView := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)

	switch {
	case m.filtering:
		return header + "\n" + help + banner + "\n\n" + boardView + "\n\nFilter: " + m.filterInput.View()
	case m.creating:
		return header + "\n" + help + banner + "\n\n" + boardView + "\n\nNew card in " +
			m.columnName(m.selectedCol).Title() + ": " + m.titleInput.View()
	case m.pickingRepo:
		return header + "\n" + help + banner + "\n\n" + m.renderRepoPicker()
	}

	footer := ""
	if m.err != nil {
		footer = "\n" + m.styles.error.Render("Error: "+m.err.Error())
	} else if m.loading {
		footer = "\n" + m.styles.muted.Render("Loading...")
	} else if m.notice != "" {
		footer = "\n" + m.styles.muted.Render(m.notice)
	}
	if m.filter != "" {
		footer += "\n" + m.styles.muted.Render("Filter: "+m.filter)
	}

	baseView := header + "\n" + help + banner + "\n\n" + boardView + footer + "\n"
	if m.showingHelp {
		return m.renderWithHelpOverlay(baseView)
	}
	return baseView
}

func (m boardModel) cardText(c *board.Card) string {
	switch {
	case c.IssueNumber > 0:
		return fmt.Sprintf("#%d %s", c.IssueNumber, c.Title)
	case c.Special != "":
		return "★ " + c.Title
	}
	return "• " + c.Title
}

func (m boardModel) cardLine(c *board.Card, width int) string {
	text := m.cardText(c)
	if !m.cfg.UIPrefs.ShowLabels {
		return clip(text, width)
	}
	extra := labels.StripStatus(c.Labels)
	if len(extra) == 0 {
		return clip(text, width)
	}
	tags := "[" + strings.Join(extra, " ") + "]"
	if len(text)+1+len(tags) > width {
		return clip(text, width)
	}
	return text + " " + m.styles.label.Render(tags)
}

func (m boardModel) renderRepoPicker() string {
	lines := []string{m.styles.helpTitle.Render("Recent repositories"), ""}
	for i, r := range m.cfg.RecentRepos {
		line := "  " + r
		if r == m.svc.Repo().String() {
			line += m.styles.muted.Render(" (current)")
		}
		if i == m.repoCursor {
			line = m.styles.selected.Render("> " + r)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", m.styles.muted.Render("enter switch • esc cancel"))
	return m.styles.helpOverlay.Render(strings.Join(lines, "\n"))
}

func (m boardModel) renderWithHelpOverlay(baseView string) string {
	lines, overlayWidth, viewport := m.helpLayout()
	maxOffset := 0
	if viewport < len(lines) {
		maxOffset = len(lines) - viewport
	}
	offset := min(max(0, m.helpOffset), maxOffset)

	end := min(len(lines), offset+viewport)
	visible := lines[offset:end]
	overlayHeight := viewport + 3
	y := max(0, (m.height-overlayHeight)/2)

	pos := fmt.Sprintf("%d/%d lines • ↑/↓ Home/End • q/? close", end, len(lines))
	overlay := m.styles.helpOverlay.Width(overlayWidth).Render(strings.Join(visible, "\n") + "\n" + m.styles.muted.Render(pos))

	baseLines := strings.Split(baseView, "\n")
	overlayLines := strings.Split(overlay, "\n")
	for len(baseLines) < y+len(overlayLines) {
		baseLines = append(baseLines, "")
	}
	for i, overlayLine := range overlayLines {
		baseLines[y+i] = overlayLine
	}
	return strings.Join(baseLines, "\n")
}

// helpLayout computes wrapped help lines, target overlay width, and viewport height (content rows)
func (m boardModel) helpLayout() ([]string, int, int) {
	overlayWidth := min(80, max(40, m.width-8))
	contentLines := strings.Split(m.buildHelpContent(), "\n")
	wrapped := make([]string, 0, len(contentLines))
	wrapWidth := max(10, overlayWidth-4)
	for _, line := range contentLines {
		for len(line) > wrapWidth {
			wrapped = append(wrapped, line[:wrapWidth])
			line = line[wrapWidth:]
		}
		wrapped = append(wrapped, line)
	}
	viewport := max(3, min(m.height-4, len(wrapped)+3)-3)
	return wrapped, overlayWidth, viewport
}

func (m boardModel) buildHelpContent() string {
	k := m.styles.helpKey.Render
	helpLines := []string{
		k("q/ctrl+c") + "    Quit application",
		k("?") + "           Toggle this help overlay",
		"",
		m.styles.helpTitle.Render("Navigation:"),
		k("hjkl/arrows") + " Navigate",
		k("tab/shift+tab") + " Switch column",
		"",
		m.styles.helpTitle.Render("Cards:"),
		k("H/L or </>") + "  Move card to the previous/next column",
		k("K/J") + "         Move card up/down within its column",
		k("n") + "           New card in the current column",
		k("a") + "           Archive the selected card",
		k("o") + "           Open the issue in your browser",
		"",
		m.styles.helpTitle.Render("Board:"),
		k("r") + "           Reload from GitHub",
		k("/") + "           Filter by title, #number or label",
		k("c") + "           Collapse/expand the current column",
		k("p") + "           Switch to a recent repository",
		k("w") + "           Open setup wizard",
		k("esc") + "         Dismiss errors and warnings",
		"",
		m.styles.helpTitle.Render("Tips:"),
		"  • Moving a card to Done closes the issue; moving it out reopens it",
		"  • Card order is remembered per repository",
		"  • Without a GitHub credential new cards stay local",
	}
	title := m.styles.helpTitle.Render("ghboard - Keyboard Shortcuts")
	return title + "\n\n" + strings.Join(helpLines, "\n") + "\n\n" + m.styles.muted.Render("Press ? again to close")
}

// viewportItemsHeight calculates how many rows of items can be displayed per column
// given the current terminal height and rough space usage of headers/footers.
func (m boardModel) viewportItemsHeight() int {
	reserved := 5
	if m.filtering || m.creating {
		reserved += 2
	}
	if m.rate.state != ratelimit.Normal {
		reserved++
	}
	avail := max(5, m.height-reserved)
	return max(1, avail-3)
}

// itemsWindowCount returns the number of item rows we draw, excluding the two
// indicator lines (top and bottom).
func (m boardModel) itemsWindowCount() int {
	base := m.viewportItemsHeight()
	if base <= 2 {
		return 1
	}
	return base - 2
}

// ensureCursorVisible clamps column i's cursor and scrolls it into view.
func (m boardModel) ensureCursorVisible(i int) {
	if i < 0 || i >= len(m.views) {
		return
	}
	v := &m.views[i]
	n := len(m.visibleCards(i))
	if n == 0 {
		v.offset = 0
		v.cursor = 0
		return
	}
	v.cursor = min(max(0, v.cursor), n-1)
	vh := m.itemsWindowCount()
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+vh {
		v.offset = v.cursor - vh + 1
	}
	maxOffset := 0
	if n > vh {
		maxOffset = n - vh
	}
	v.offset = min(max(0, v.offset), maxOffset)
}

func (m boardModel) saveUIPreferences() {
	prefs := m.cfg.UIPrefs
	prefs.LastSelectedCol = m.selectedCol
	prefs.LastFilter = m.filter
	// Best-effort
	_ = usercfg.SaveUIPrefs(prefs)
}

// StartBoard runs the TUI until the user quits.
func StartBoard(app *App) error {
	model := initialBoardModel(app.Service, app.Config)
	p := tea.NewProgram(model, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.SetOutput(tuiLogOutput())
	defer logger.SetVerbose(verbose)

	// Send blocks until the program loop runs, so wiring happens off this goroutine.
	go func() {
		app.Limiter.SetPresenter(teaPresenter{send: p.Send})
		app.Sync.SetNotifier(teaNotifier{send: p.Send})
		if app.Sync.Authenticated() {
			app.Limiter.RunProbe(ctx, app.probeInterval(), app.Sync.ProbeRateLimit)
		}
	}()

	finalModel, err := p.Run()
	app.Limiter.SetPresenter(nil)
	app.Sync.SetNotifier(cliNotifier)

	if bm, ok := finalModel.(boardModel); ok {
		bm.saveUIPreferences()
		if !bm.chosenRepo.IsZero() {
			app.rememberRepo(bm.chosenRepo)
		}
		if bm.launchSetup {
			runSetup(nil, nil)
		}
	}
	return err
}

func clip(s string, w int) string {
	r := []rune(s)
	if w <= 0 || len(r) <= w {
		return s
	}
	if w <= 3 {
		return string(r[:w])
	}
	return string(r[:w-3]) + "..."
}
