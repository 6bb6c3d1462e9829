// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] type renders a status bar, the prayer being spoken with its
// highlighted word, and an input prompt at the bottom of the terminal.
// All other output is printed above the rendered area via
// Program.Println / Printf, so concurrent writes never garble it.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	mysteryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c4b5fd"))

	playingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	filledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	// BannerStyle is the muted slate of the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	// Step titles.
	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	// Prayer text.
	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	// Hints, references, metadata.
	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))

	wordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a")).
			Bold(true)
)

// Status is what the bar and the prayer panel show.
type Status struct {
	Mystery    string
	Title      string
	Step       int // 1-based
	Total      int
	Progress   float64 // 0..100
	Playing    bool
	Continuous bool
	Language   string

	// Words of the segment being spoken and the one to highlight; Word
	// is -1 when nothing is highlighted.
	Words []string
	Word  int
}

// StatusFunc reports the current status. It is called from the UI loop
// and must be safe for concurrent use.
type StatusFunc func() Status

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may safely
// call [UI.Println], [UI.Printf], [UI.Refresh], and read from
// [UI.InputChan] at any time after [UI.WaitReady] returns.
type UI struct {
	program *tea.Program
	inputCh chan string
	readyCh chan struct{}
	quitCh  chan struct{}
	status  StatusFunc
	done    atomic.Bool
}

// NewUI creates the display. Call Run() to start.
func NewUI(status StatusFunc) *UI {
	return &UI{
		status:  status,
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// Println prints a line above the prompt. Thread-safe. If the program
// hasn't started yet, falls back to fmt.Println.
func (u *UI) Println(a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Printf prints formatted text above the prompt on its own line.
// Thread-safe.
func (u *UI) Printf(format string, a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Printf(format, a...)
	} else {
		fmt.Printf(format+"\n", a...)
	}
}

// Refresh redraws the status bar and the prayer panel now instead of at
// the next tick.
func (u *UI) Refresh() {
	if u.program != nil && !u.done.Load() {
		go u.program.Send(refreshMsg{})
	}
}

// InputChan returns completed user-input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// ── Styled print helpers ─────────────────────────────────────────

// PrintChat prints an assistant line.
func (u *UI) PrintChat(text string) {
	u.Println(chatStyle.Render("  " + text))
}

// PrintStep prints a step header like "Hail Mary 3/10".
func (u *UI) PrintStep(text string) {
	u.Println(stepStyle.Render("  " + text))
}

// PrintPrayer prints a step's text.
func (u *UI) PrintPrayer(text string) {
	for _, para := range strings.Split(text, "\n\n") {
		u.Println(primaryStyle.Render("  " + strings.TrimSpace(para)))
	}
}

// PrintHint prints a secondary/dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUrgent prints an urgent/error line.
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// PrintVoice prints a voice-recognised input line.
func (u *UI) PrintVoice(text string) {
	u.Println(secondaryStyle.Render("[voice] ") + primaryStyle.Render(text))
}

// PrintUserInput echoes the user's typed command into the scrollback.
func (u *UI) PrintUserInput(text string) {
	u.Println(promptStyle.Render("rosario") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(text))
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

const prompt = "rosario> "

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	ti := textinput.New()
	// Plain-text prompt: styled prompts add ANSI bytes that break the
	// textinput width math.
	ti.Prompt = prompt
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 60

	m := newModel(ti, u.status, u.inputCh, u.readyCh, u.PrintUserInput)

	u.program = tea.NewProgram(m)
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	input   textinput.Model
	status  StatusFunc
	inputCh chan<- string
	readyCh chan struct{}
	echoFn  func(string)
	current Status
	width   int
}

type tickMsg time.Time

type refreshMsg struct{}

func newModel(ti textinput.Model, status StatusFunc, inputCh chan<- string, readyCh chan struct{}, echo func(string)) model {
	m := model{
		input:   ti,
		status:  status,
		inputCh: inputCh,
		readyCh: readyCh,
		echoFn:  echo,
		width:   80,
	}
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

// The highlight moves about three times a second.
func tickCmd() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *model) refresh() {
	if m.status != nil {
		m.current = m.status()
	}
}

// send hands a line to the input channel and echoes it from outside
// Update so it won't deadlock on msgs.
func (m model) send(v string) tea.Cmd {
	m.inputCh <- v
	echoFn := m.echoFn
	return func() tea.Msg {
		if echoFn != nil {
			echoFn(v)
		}
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		empty := m.input.Value() == ""
		switch {
		case msg.Type == tea.KeyCtrlC:
			return m, tea.Quit
		case msg.Type == tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) != "" {
				return m, m.send(v)
			}
			return m, nil
		// Shortcuts apply only while nothing is typed.
		case empty && msg.Type == tea.KeySpace:
			if m.current.Playing {
				return m, m.send("stop")
			}
			return m, m.send("play")
		case empty && msg.Type == tea.KeyRight:
			return m, m.send("next")
		case empty && msg.Type == tea.KeyLeft:
			return m, m.send("back")
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(prompt) {
			m.input.Width = msg.Width - len(prompt)
		}
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tea.Batch(tickCmd(), tea.SetWindowTitle(m.titleStr()))

	case refreshMsg:
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) titleStr() string {
	s := m.current
	if s.Total == 0 {
		return "Rosario"
	}
	return fmt.Sprintf("Rosario · %s %d/%d", s.Mystery, s.Step, s.Total)
}

func (m model) View() string {
	var b strings.Builder

	if m.current.Total > 0 {
		b.WriteString(renderBar(m.current, m.width))
		b.WriteByte('\n')
		if now := renderNow(m.current, m.width); now != "" {
			b.WriteString(now)
			b.WriteByte('\n')
		}
	}

	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

// renderBar draws "Mystery │ step n/N [████░░] 42% │ ▶ │ auto │ ES".
func renderBar(s Status, width int) string {
	state := idleStyle.Render("■ stopped")
	if s.Playing {
		state = playingStyle.Render("▶ praying")
	}
	parts := []string{
		mysteryStyle.Render(s.Mystery),
		labelStyle.Render(fmt.Sprintf("%d/%d ", s.Step, s.Total)) + progressBar(s.Progress, 20),
		state,
	}
	if s.Continuous {
		parts = append(parts, labelStyle.Render("auto"))
	}
	if s.Language != "" {
		parts = append(parts, labelStyle.Render(strings.ToUpper(s.Language)))
	}

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "
	if width <= 0 {
		width = 80
	}
	return barBg.Width(width).Render(content)
}

// progressBar renders pct (0..100) in cells characters plus a label.
func progressBar(pct float64, cells int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(cells))
	return filledStyle.Render(strings.Repeat("█", filled)) +
		sepStyle.Render(strings.Repeat("░", cells-filled)) +
		labelStyle.Render(fmt.Sprintf(" %3.0f%%", pct))
}

// renderNow shows the step title and, while a segment is being spoken,
// its words with the current one highlighted, wrapped to width.
func renderNow(s Status, width int) string {
	if s.Title == "" && len(s.Words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(stepStyle.Render("  " + s.Title))
	if len(s.Words) == 0 {
		return b.String()
	}

	if width <= 4 {
		width = 80
	}
	b.WriteString("\n  ")
	col := 2
	for i, w := range s.Words {
		n := len([]rune(w))
		if col > 2 && col+1+n > width-2 {
			b.WriteString("\n  ")
			col = 2
		} else if i > 0 {
			b.WriteByte(' ')
			col++
		}
		if i == s.Word {
			b.WriteString(wordStyle.Render(w))
		} else {
			b.WriteString(primaryStyle.Render(w))
		}
		col += n
	}
	return b.String()
}
