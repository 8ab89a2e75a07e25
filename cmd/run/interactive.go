package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-sandbox/resource"
	"github.com/wippyai/wasm-sandbox/sandbox"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	metricStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	sb       *sandbox.Sandbox
	id       string
	filename string
	cfg      runConfig
	logger   *zap.Logger
	exports  []string
	input    textinput.Model
	result   sandbox.Result
	selected int
	state    modelState
}

func newInteractiveModel(filename string, cfg runConfig, logger *zap.Logger) *interactiveModel {
	return &interactiveModel{
		filename: filename,
		cfg:      cfg,
		logger:   logger,
		state:    stateSelectFunc,
	}
}

type loadedMsg struct {
	err     error
	sb      *sandbox.Sandbox
	id      string
	exports []string
}

type callResultMsg struct {
	result sandbox.Result
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *interactiveModel) loadModule() tea.Msg {
	ctx := context.Background()

	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	sb := sandbox.New(sandbox.WithLogger(m.logger))

	inst, err := sb.Create(ctx, m.cfg.sandboxConfig())
	if err != nil {
		return loadedMsg{err: err}
	}

	if _, err := sb.Load(ctx, inst.ID, data); err != nil {
		sb.Close(ctx)
		return loadedMsg{err: err}
	}

	exports, err := sb.Exports(inst.ID)
	if err != nil {
		sb.Close(ctx)
		return loadedMsg{err: err}
	}

	return loadedMsg{sb: sb, id: inst.ID, exports: exports}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateInputArgs && msg.String() == "q" {
				break // let the input receive the character
			}
			if m.sb != nil {
				m.sb.Close(context.Background())
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.exports)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.exports) == 0 {
					break
				}
				m.prepareInput()
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
			}

		case "esc":
			if m.state == stateInputArgs || m.state == stateShowResult {
				m.state = stateSelectFunc
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.sb = msg.sb
		m.id = msg.id
		m.exports = msg.exports

	case callResultMsg:
		m.result = msg.result
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) prepareInput() {
	ti := textinput.New()
	ti.Placeholder = "numbers: 1,2,3  or JSON: {\"key\": \"value\"}"
	ti.Prompt = "args: "
	ti.Width = 48
	ti.Focus()
	m.input = ti
}

func (m *interactiveModel) callFunction() tea.Msg {
	raw := strings.TrimSpace(m.input.Value())

	var payload any
	var err error
	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") || strings.HasPrefix(raw, `"`) {
		payload, err = buildPayload("", raw)
	} else {
		payload, err = buildPayload(raw, "")
	}
	if err != nil {
		return callResultMsg{result: errorResult(err)}
	}

	name := m.exports[m.selected]
	return callResultMsg{result: m.sb.Execute(context.Background(), m.id, name, payload)}
}

// errorResult shapes a CLI-side parse failure like an execution result
// so the result view can render it.
func errorResult(err error) sandbox.Result {
	return sandbox.Result{Value: fmt.Sprintf("input error: %v", err)}
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.sb == nil {
		return "Loading module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Sandbox"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, name := range m.exports {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + name))
			} else {
				b.WriteString("  " + funcStyle.Render(name))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(m.exports[m.selected])))
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter call • esc back"))

	case stateShowResult:
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(m.exports[m.selected])))
		if m.result.OK() {
			b.WriteString(resultStyle.Render(fmt.Sprintf("%v", m.result.Value)))
		} else {
			b.WriteString(errorStyle.Render(m.result.Err.Error()))
		}
		b.WriteString("\n\n")
		b.WriteString(m.renderMetrics())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) renderMetrics() string {
	mt := m.result.Metrics
	pressure := resource.Pressure(mt.MemoryUsedBytes, mt.MemoryLimitBytes)
	return metricStyle.Render(fmt.Sprintf(
		"gas %d/%d • memory %d/%d (%s) • %d/%d ms",
		mt.GasUsed, mt.GasLimit,
		mt.MemoryUsedBytes, mt.MemoryLimitBytes, pressure,
		mt.ExecutionMS, mt.ExecutionLimitMS))
}

func runInteractive(filename string, cfg runConfig, logger *zap.Logger) error {
	p := tea.NewProgram(newInteractiveModel(filename, cfg, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
