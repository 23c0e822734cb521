package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

// Custom help styles
var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accentColor).
				MarginTop(1)

	helpCommandStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#00AAAA")).
				Bold(true)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AA00")).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true)
)

// StyledHelpPrinter creates a help printer with Lipgloss styling.
// It prints the selected command's arguments and flags, or the command list at the top level.
func StyledHelpPrinter(options kong.HelpOptions) kong.HelpPrinter {
	return func(options kong.HelpOptions, ctx *kong.Context) error {
		var sb strings.Builder

		sb.WriteString(helpTitleStyle.Render("micwatch 🎙"))
		sb.WriteString("\n")
		sb.WriteString(helpDescStyle.Render("Microphone trigger detection and gain control"))
		sb.WriteString("\n")

		node := ctx.Selected()
		if node == nil {
			node = ctx.Model.Node
		}

		sb.WriteString(helpSectionStyle.Render("Usage:"))
		sb.WriteString("\n  ")
		sb.WriteString(usageLine(ctx, node))
		sb.WriteString("\n")

		if node.Help != "" && node != ctx.Model.Node {
			sb.WriteString("\n  ")
			sb.WriteString(node.Help)
			sb.WriteString("\n")
		}

		commands := getCommands(node)
		if len(commands) > 0 {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render("Commands:"))
			sb.WriteString("\n")
			writeRows(&sb, commands, helpCommandStyle)
		}

		args := getArguments(node)
		if len(args) > 0 {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render("Arguments:"))
			sb.WriteString("\n")
			writeRows(&sb, args, helpCommandStyle)
		}

		flags := getFlags(ctx, node)
		if len(flags) > 0 {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render("Flags:"))
			sb.WriteString("\n")
			writeRows(&sb, flags, helpFlagStyle)
		}

		sb.WriteString("\n")
		fmt.Fprint(ctx.Stdout, sb.String())
		return nil
	}
}

type row struct {
	name       string
	help       string
	defaultVal string
}

func writeRows(sb *strings.Builder, rows []row, style lipgloss.Style) {
	for _, r := range rows {
		sb.WriteString("  ")
		sb.WriteString(style.Render(r.name))
		if r.help != "" {
			sb.WriteString("  ")
			sb.WriteString(r.help)
		}
		if r.defaultVal != "" {
			sb.WriteString(" ")
			sb.WriteString(helpDefaultStyle.Render("(default: " + r.defaultVal + ")"))
		}
		sb.WriteString("\n")
	}
}

func usageLine(ctx *kong.Context, node *kong.Node) string {
	if node == ctx.Model.Node {
		return fmt.Sprintf("%s [flags] <command>", ctx.Model.Name)
	}
	parts := []string{ctx.Model.Name, node.Path(), "[flags]"}
	for _, arg := range node.Positional {
		parts = append(parts, arg.Summary())
	}
	return strings.Join(parts, " ")
}

func getCommands(node *kong.Node) []row {
	var rows []row
	for _, child := range node.Children {
		if child.Hidden {
			continue
		}
		rows = append(rows, row{name: child.Name, help: child.Help})
	}
	return rows
}

func getArguments(node *kong.Node) []row {
	var rows []row
	for _, arg := range node.Positional {
		rows = append(rows, row{name: arg.Summary(), help: arg.Help})
	}
	return rows
}

func getFlags(ctx *kong.Context, node *kong.Node) []row {
	rows := []row{{name: "-h, --help", help: "Show context-sensitive help."}}

	// Global flags live on the root node
	seen := map[string]bool{"help": true}
	nodes := []*kong.Node{node}
	if node != ctx.Model.Node {
		nodes = append(nodes, ctx.Model.Node)
	}

	for _, n := range nodes {
		for _, f := range n.Flags {
			if f.Hidden || seen[f.Name] {
				continue
			}
			seen[f.Name] = true

			name := fmt.Sprintf("--%s", f.Name)
			if f.Short != 0 {
				name = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
			}
			if !f.IsBool() && f.PlaceHolder != "" {
				name += "=" + strings.ToUpper(f.PlaceHolder)
			}

			defaultVal := ""
			if !f.IsBool() {
				defaultVal = f.Default
			}
			rows = append(rows, row{name: name, help: f.Help, defaultVal: defaultVal})
		}
	}
	return rows
}
