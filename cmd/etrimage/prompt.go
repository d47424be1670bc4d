package main

import (
	"fmt"
	"os"

	"github.com/abdulachik/etrimage/internal/config"
	"github.com/abdulachik/etrimage/internal/prompt"
	"github.com/spf13/cobra"
)

var (
	promptStyle string
	promptFile  string
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the system instruction",
	Long: `Render the system instruction for a style and print it. Redirect the
output to a file and point SYSTEM_PROMPT_FILE at it to customize it.

Example:
  etrimage prompt --style line_art > system.txt`,
	RunE: runPrompt,
}

func init() {
	promptCmd.Flags().StringVar(&promptStyle, "style", "photographic", "Image style: photographic, line_art or comic")
	promptCmd.Flags().StringVar(&promptFile, "file", "", "Template to render (default: SYSTEM_PROMPT_FILE or the built-in one)")
	rootCmd.AddCommand(promptCmd)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	style, err := prompt.ParseStyle(promptStyle)
	if err != nil {
		return err
	}

	tmpl := prompt.DefaultSystemPrompt
	switch {
	case promptFile != "":
		data, err := os.ReadFile(promptFile)
		if err != nil {
			return fmt.Errorf("read template: %w", err)
		}
		tmpl = string(data)
	default:
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		custom, err := cfg.LoadSystemPrompt()
		if err != nil {
			return err
		}
		if custom != "" {
			tmpl = custom
		}
	}

	rendered, err := prompt.RenderSystemPrompt(tmpl, style)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return nil
}
