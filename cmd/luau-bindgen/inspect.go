package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/roblox-rs/bindgen/analyze"
	"github.com/roblox-rs/bindgen/describe"
	"github.com/roblox-rs/bindgen/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <wasm_path>",
		Short: "List the bindings a module declares without building it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			module, err := wasm.ParseModule(data)
			if err != nil {
				return err
			}
			analysis, err := analyze.Analyze(module)
			if err != nil {
				return err
			}

			p := tea.NewProgram(newInspectModel(args[0], analysis), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}

type inspectModel struct {
	analysis *analyze.Analysis
	filename string
	view     viewport.Model
	ready    bool
}

func newInspectModel(filename string, analysis *analyze.Analysis) *inspectModel {
	return &inspectModel{filename: filename, analysis: analysis}
}

func (m *inspectModel) Init() tea.Cmd {
	return nil
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		headerHeight := 2
		if !m.ready {
			m.view = viewport.New(msg.Width, msg.Height-headerHeight)
			m.view.SetContent(m.renderBindings())
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = msg.Height - headerHeight
		}
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m *inspectModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("luau-bindgen"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")
	b.WriteString(m.view.View())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ scroll • q quit"))
	return b.String()
}

func (m *inspectModel) renderBindings() string {
	var b strings.Builder

	writeSection := func(title string, bindings []analyze.Binding) {
		b.WriteString(sectionStyle.Render(title))
		b.WriteString("\n")
		if len(bindings) == 0 {
			b.WriteString(dimStyle.Render("  (none)"))
			b.WriteString("\n")
		}
		for _, binding := range bindings {
			b.WriteString("  ")
			b.WriteString(formatBinding(binding))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	writeSection("Imports (script code the guest calls)", m.analysis.Imports)
	writeSection("Exports (guest code the script calls)", m.analysis.Exports)

	b.WriteString(sectionStyle.Render("Main functions"))
	b.WriteString("\n")
	if len(m.analysis.Mains) == 0 {
		b.WriteString(dimStyle.Render("  (none)"))
		b.WriteString("\n")
	}
	for _, name := range m.analysis.Mains {
		b.WriteString("  ")
		b.WriteString(funcStyle.Render(name))
		b.WriteString("()\n")
	}

	return b.String()
}

func formatBinding(binding analyze.Binding) string {
	params := make([]string, len(binding.Params))
	for i := range binding.Params {
		params[i] = typeStyle.Render(binding.Params[i].String())
	}
	result := ""
	if binding.Result.Kind != describe.KindVoid {
		result = " -> " + typeStyle.Render(binding.Result.String())
	}
	name := funcStyle.Render(binding.LuauName)
	detail := dimStyle.Render(fmt.Sprintf("  [%s]", binding.ExportName))
	return name + "(" + strings.Join(params, ", ") + ")" + result + detail
}
