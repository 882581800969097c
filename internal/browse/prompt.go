package browse

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/agentic-research/classnav/internal/host"
)

// Prompter asks questions with a short-lived bubbletea program.
type Prompter struct {
	In  io.Reader
	Out io.Writer
}

var _ host.Prompter = (*Prompter)(nil)

func (p *Prompter) run(ctx context.Context, m tea.Model) (tea.Model, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.In != nil {
		opts = append(opts, tea.WithInput(p.In))
	}
	if p.Out != nil {
		opts = append(opts, tea.WithOutput(p.Out))
	}
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil, host.ErrCancelled
		}
		return nil, err
	}
	return final, nil
}

// PromptText shows label and reads one line. validate returns the message
// to display while the input is unacceptable, or "".
func (p *Prompter) PromptText(ctx context.Context, label, initial string, validate func(string) string) (string, error) {
	final, err := p.run(ctx, newTextPrompt(label, initial, validate))
	if err != nil {
		return "", err
	}
	m := final.(textPrompt)
	if m.cancelled {
		return "", host.ErrCancelled
	}
	return m.input.Value(), nil
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(ctx context.Context, label string) (bool, error) {
	final, err := p.run(ctx, confirmPrompt{label: label})
	if err != nil {
		return false, err
	}
	m := final.(confirmPrompt)
	if m.cancelled {
		return false, host.ErrCancelled
	}
	return m.yes, nil
}

type textPrompt struct {
	label     string
	input     textinput.Model
	validate  func(string) string
	hint      string
	cancelled bool
}

func newTextPrompt(label, initial string, validate func(string) string) textPrompt {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.SetValue(initial)
	ti.CursorEnd()
	ti.Focus()
	return textPrompt{label: label, input: ti, validate: validate}
}

func (m textPrompt) Init() tea.Cmd { return textinput.Blink }

func (m textPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.validate != nil {
				if m.hint = m.validate(m.input.Value()); m.hint != "" {
					return m, nil
				}
			}
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m textPrompt) View() string {
	s := titleStyle.Render(m.label) + "\n" + m.input.View() + "\n"
	if m.hint != "" {
		s += errorStyle.Render(m.hint) + "\n"
	}
	return s
}

type confirmPrompt struct {
	label     string
	yes       bool
	done      bool
	cancelled bool
}

func (m confirmPrompt) Init() tea.Cmd { return nil }

func (m confirmPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.yes, m.done = true, true
		return m, tea.Quit
	case "n", "N", "enter":
		m.done = true
		return m, tea.Quit
	case "esc", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmPrompt) View() string {
	if m.done {
		return ""
	}
	return titleStyle.Render(m.label) + " " + hintStyle.Render("(y/N)") + "\n"
}
