package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/world-engine/pkg/spatial"
	"github.com/jwebster45206/world-engine/pkg/world"
)

const PlaceHolderText = "Type a command (/help)..."

// ConsoleUI is the BubbleTea model that runs the map editor.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	api          *APIClient
	mapViewport  viewport.Model
	infoViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool
	status       string

	locations []*world.Location
	selected  world.LocationID
	area      string

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type worldLoadedMsg struct {
	locations []*world.Location
	err       error
}

// editDoneMsg reports a finished create, update or delete.
type editDoneMsg struct {
	status string
	change *LocationChange
	err    error
}

type diagnosticsMsg struct {
	report *spatial.DiagnosticReport
	err    error
}

type progressTickMsg struct{}

var (
	mapPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2).
			PaddingRight(1)

	infoPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")) // purple

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

var titleCaser = cases.Title(language.English)

const helpText = `Commands:
• /new <name>               create a location
• /new <dir> <name>         create a location <dir> of the selection
• /go <dir>                 follow an exit
• /select <name|id>         select a location
• /link <dir> <name|id>     add an exit from the selection
• /unlink <dir>             remove an exit
• /rename <name>            rename the selection
• /describe <text>          set the description
• /delete                   delete the selection
• /area <name>              show another area
• /check                    run world diagnostics
• /copy                     copy the selected ID
• /refresh                  reload the world
• Ctrl+C                    quit`

func NewConsoleUI(cfg *ConsoleConfig, api *APIClient) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	return ConsoleUI{
		config:       cfg,
		api:          api,
		textarea:     ta,
		mapViewport:  viewport.New(50, 20),
		infoViewport: viewport.New(30, 20),
		area:         cfg.Area,
		loading:      true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.loadWorld(), progressTick())
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		ivCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		mapWidth := int(float64(m.width)*0.65) - 4
		infoWidth := m.width - mapWidth - 4

		m.mapViewport.Width = mapWidth - 3
		m.mapViewport.Height = m.height - 5
		m.infoViewport.Width = infoWidth - 2
		m.infoViewport.Height = m.height - 2
		m.textarea.SetWidth(mapWidth - 4)
		m.ready = true
		m.refreshPanels()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			return m.handleCommand(input)
		}

	case worldLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.locations = msg.locations
			m.keepSelection()
		}
		m.refreshPanels()
		return m, nil

	case editDoneMsg:
		if msg.err != nil {
			m.loading = false
			m.err = msg.err
			m.refreshPanels()
			return m, nil
		}
		m.err = nil
		m.status = msg.status
		if msg.change != nil && msg.change.Location != nil {
			m.selected = msg.change.Location.ID
			if msg.change.Location.HasCoordinates() {
				m.area = msg.change.Location.Coordinates.Area
			}
			if n := len(msg.change.Wilderness); n > 0 {
				m.status += fmt.Sprintf(", %d wilderness generated", n)
			}
		}
		return m, m.loadWorld()

	case diagnosticsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = formatDiagnostics(msg.report)
		}
		m.refreshPanels()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.refreshPanels()
			return m, progressTick()
		}
		return m, nil
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.infoViewport, ivCmd = m.infoViewport.Update(msg)

	return m, tea.Batch(tiCmd, ivCmd)
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)
	sel := m.find(m.selected)

	switch strings.ToLower(cmd) {
	case "/help":
		m.status = helpText

	case "/refresh":
		return m.busy(m.loadWorld())

	case "/area":
		if args == "" {
			return m.fail("usage: /area <name>")
		}
		m.area = args
		m.selected = world.LocationID{}
		m.keepSelection()

	case "/go":
		if sel == nil {
			return m.fail("nothing selected")
		}
		d, ok := world.ParseDirection(args)
		if !ok {
			return m.fail(fmt.Sprintf("unknown direction %q", args))
		}
		exit, ok := sel.ExitIn(d)
		if !ok {
			return m.fail(fmt.Sprintf("%s has no %s exit", sel.Name, d))
		}
		m.selected = exit.TargetID
		if target := m.find(exit.TargetID); target != nil && target.HasCoordinates() {
			m.area = target.Coordinates.Area
		}
		m.status = ""

	case "/select":
		target := m.lookup(args)
		if target == nil {
			return m.fail(fmt.Sprintf("no location matches %q", args))
		}
		m.selected = target.ID
		if target.HasCoordinates() {
			m.area = target.Coordinates.Area
		}
		m.status = ""

	case "/new":
		if args == "" {
			return m.fail("usage: /new [dir] <name>")
		}
		in := LocationInput{Name: args}
		if first, rest, ok := strings.Cut(args, " "); ok && sel != nil {
			if d, isDir := world.ParseDirection(first); isDir && d.IsCompass() {
				in.Name = strings.TrimSpace(rest)
				in.Exits = []ExitInput{{Direction: d.Opposite().String(), TargetID: sel.ID}}
			}
		}
		return m.busy(m.create(in))

	case "/link":
		if sel == nil {
			return m.fail("nothing selected")
		}
		dir, name, _ := strings.Cut(args, " ")
		d, ok := world.ParseDirection(dir)
		if !ok {
			return m.fail(fmt.Sprintf("unknown direction %q", dir))
		}
		target := m.lookup(strings.TrimSpace(name))
		if target == nil {
			return m.fail(fmt.Sprintf("no location matches %q", name))
		}
		in := inputFrom(sel)
		in.Exits = slices.DeleteFunc(in.Exits, func(e ExitInput) bool { return e.Direction == d.String() })
		in.Exits = append(in.Exits, ExitInput{Direction: d.String(), TargetID: target.ID})
		return m.busy(m.update(sel.ID, in, "Linked "+d.Label()+" to "+target.Name))

	case "/unlink":
		if sel == nil {
			return m.fail("nothing selected")
		}
		d, ok := world.ParseDirection(args)
		if !ok {
			return m.fail(fmt.Sprintf("unknown direction %q", args))
		}
		in := inputFrom(sel)
		in.Exits = slices.DeleteFunc(in.Exits, func(e ExitInput) bool { return e.Direction == d.String() })
		return m.busy(m.update(sel.ID, in, "Removed "+d.Label()+" exit"))

	case "/rename":
		if sel == nil || args == "" {
			return m.fail("usage: /rename <name> with a location selected")
		}
		in := inputFrom(sel)
		in.Name = args
		return m.busy(m.update(sel.ID, in, "Renamed to "+args))

	case "/describe":
		if sel == nil {
			return m.fail("nothing selected")
		}
		in := inputFrom(sel)
		in.Description = args
		return m.busy(m.update(sel.ID, in, "Description updated"))

	case "/delete":
		if sel == nil {
			return m.fail("nothing selected")
		}
		return m.busy(m.remove(sel))

	case "/check":
		return m.busy(m.runDiagnostics())

	case "/copy":
		if sel == nil {
			return m.fail("nothing selected")
		}
		if err := clipboard.WriteAll(sel.ID.String()); err != nil {
			return m.fail(fmt.Sprintf("clipboard unavailable: %v", err))
		}
		m.status = "Copied " + sel.ID.String()

	case "/quit":
		m.showQuitModal = true
		return m, nil

	default:
		return m.fail(fmt.Sprintf("unknown command %q, try /help", cmd))
	}

	m.err = nil
	m.refreshPanels()
	return m, nil
}

func (m ConsoleUI) fail(msg string) (tea.Model, tea.Cmd) {
	m.err = fmt.Errorf("%s", msg)
	m.refreshPanels()
	return m, nil
}

func (m ConsoleUI) busy(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.loading = true
	m.progressTick = 0
	m.refreshPanels()
	return m, tea.Batch(cmd, progressTick())
}

func (m *ConsoleUI) find(id world.LocationID) *world.Location {
	for _, loc := range m.locations {
		if loc.ID == id {
			return loc
		}
	}
	return nil
}

// lookup matches an exact name (case-insensitive) or an ID prefix.
func (m *ConsoleUI) lookup(s string) *world.Location {
	if s == "" {
		return nil
	}
	for _, loc := range m.locations {
		if strings.EqualFold(loc.Name, s) {
			return loc
		}
	}
	for _, loc := range m.locations {
		if strings.HasPrefix(loc.ID.String(), strings.ToLower(s)) {
			return loc
		}
	}
	return nil
}

// keepSelection falls back to the first location in the current area when
// the selection is gone.
func (m *ConsoleUI) keepSelection() {
	if m.find(m.selected) != nil {
		return
	}
	for _, loc := range m.locations {
		if loc.HasCoordinates() && loc.Coordinates.Area == m.area && !loc.IsWilderness {
			m.selected = loc.ID
			return
		}
	}
	if len(m.locations) > 0 {
		m.selected = m.locations[0].ID
	}
}

func inputFrom(loc *world.Location) LocationInput {
	in := LocationInput{
		Name:        loc.Name,
		Description: loc.Description,
		Version:     loc.Version,
	}
	for _, e := range loc.Exits {
		in.Exits = append(in.Exits, ExitInput{Direction: e.Direction.String(), TargetID: e.TargetID})
	}
	return in
}

func (m *ConsoleUI) refreshPanels() {
	if !m.ready {
		return
	}
	center := world.Coordinates{Area: m.area}
	if sel := m.find(m.selected); sel.HasCoordinates() && sel.Coordinates.Area == m.area {
		center = *sel.Coordinates
	}
	cols := max(1, (m.mapViewport.Width+1)/2)
	rows := max(1, m.mapViewport.Height)
	m.mapViewport.SetContent(renderMap(mapGrid(m.locations, m.area, center, m.selected, cols, rows)))
	m.infoViewport.SetContent(m.writeDetails())
}

func (m *ConsoleUI) writeDetails() string {
	width := max(10, m.infoViewport.Width)
	var content strings.Builder
	content.WriteString(titleStyle.Render(strings.ToUpper(titleCaser.String(m.area))) + "\n\n")

	sel := m.find(m.selected)
	if sel == nil {
		content.WriteString("No location selected.\nUse /new <name> to create one.\n")
	} else {
		content.WriteString(labelStyle.Render(sel.Name) + "\n")
		if sel.HasCoordinates() {
			content.WriteString(fmt.Sprintf("(%d, %d)\n", sel.Coordinates.X, sel.Coordinates.Y))
		} else {
			content.WriteString("not placed\n")
		}
		content.WriteString(sel.ID.String()[:8] + "...\n\n")
		if sel.Description != "" {
			content.WriteString(wordwrap.String(sel.Description, width) + "\n\n")
		}

		content.WriteString("Exits:\n")
		if len(sel.Exits) == 0 {
			content.WriteString("None\n")
		}
		for _, e := range sel.Exits {
			name := "(missing)"
			if target := m.find(e.TargetID); target != nil {
				name = target.Name
			}
			content.WriteString(fmt.Sprintf("• %s: %s\n", e.Direction.Label(), name))
		}
		if sel.LockedBy != "" {
			content.WriteString("\nLocked by " + sel.LockedBy + "\n")
		}
	}

	content.WriteString("\n" + separatorStyle.Render(strings.Repeat("─", width)) + "\n")
	switch {
	case m.loading:
		content.WriteString(m.renderProgressBar(width) + "\n")
	case m.err != nil:
		content.WriteString(errorStyle.Render(wordwrap.String("Error: "+m.err.Error(), width)) + "\n")
	case m.status != "":
		content.WriteString(statusStyle.Render(m.status) + "\n")
	}
	return content.String()
}

func formatDiagnostics(report *spatial.DiagnosticReport) string {
	if !report.HasWarnings() {
		return fmt.Sprintf("World OK: %d locations, %d placed", report.LocationCount, report.CoordinatedCount)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d problems found:", len(report.Warnings)))
	for _, w := range report.Warnings {
		b.WriteString("\n• " + w.Message)
	}
	return b.String()
}

func (m ConsoleUI) loadWorld() tea.Cmd {
	return func() tea.Msg {
		locs, err := m.api.listLocations()
		return worldLoadedMsg{locations: locs, err: err}
	}
}

func (m ConsoleUI) create(in LocationInput) tea.Cmd {
	return func() tea.Msg {
		change, err := m.api.createLocation(in)
		return editDoneMsg{status: "Created " + in.Name, change: change, err: err}
	}
}

func (m ConsoleUI) update(id world.LocationID, in LocationInput, status string) tea.Cmd {
	return func() tea.Msg {
		change, err := m.api.updateLocation(id, in)
		return editDoneMsg{status: status, change: change, err: err}
	}
}

func (m ConsoleUI) remove(loc *world.Location) tea.Cmd {
	id, name := loc.ID, loc.Name
	return func() tea.Msg {
		err := m.api.deleteLocation(id)
		return editDoneMsg{status: "Deleted " + name, err: err}
	}
}

func (m ConsoleUI) runDiagnostics() tea.Cmd {
	return func() tea.Msg {
		report, err := m.api.diagnostics()
		return diagnosticsMsg{report: report, err: err}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Every change is already saved on the server.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	mapWidth := int(float64(m.width)*0.65) - 4
	infoWidth := m.width - mapWidth - 4

	mapPanel := mapPanelStyle.Width(mapWidth).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.mapViewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(1, mapWidth-4))),
			m.textarea.View(),
		),
	)

	infoPanel := infoPanelStyle.Width(infoWidth).Height(m.height - 2).Render(
		m.infoViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, mapPanel, infoPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar(width int) string {
	usable := min(max(width, 10), 40)

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
