package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdulachik/etrimage/internal/app"
	"github.com/abdulachik/etrimage/internal/config"
	"github.com/abdulachik/etrimage/internal/feedback"
	"github.com/abdulachik/etrimage/internal/pipeline"
	"github.com/abdulachik/etrimage/internal/prompt"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	generateFile         string
	generateStyle        string
	generateTextTemp     float64
	generateImageTemp    float64
	generateSystemPrompt string
	generateRating       string
	generateComments     string
	generateOutput       string
)

var generateCmd = &cobra.Command{
	Use:   "generate [text]",
	Short: "Generate one illustration from the command line",
	Long: `Analyze an ETR paragraph, print the model's reasoning and final prompt,
render the image and optionally record a rating.

The text is taken from the arguments, --file, or standard input. Without
--rating the command asks for one when standard input is a terminal.

Example:
  etrimage generate "Mężczyzna wchodzi do autobusu." --style comic --output bus.png`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateFile, "file", "f", "", "Read the text from a file")
	generateCmd.Flags().StringVar(&generateStyle, "style", "photographic", "Image style: photographic, line_art or comic")
	generateCmd.Flags().Float64Var(&generateTextTemp, "text-temp", 0, "Text model temperature (default TEXT_TEMPERATURE)")
	generateCmd.Flags().Float64Var(&generateImageTemp, "image-temp", 0, "Image model temperature (default IMAGE_TEMPERATURE)")
	generateCmd.Flags().StringVar(&generateSystemPrompt, "system-prompt-file", "", "System instruction template (default SYSTEM_PROMPT_FILE)")
	generateCmd.Flags().StringVar(&generateRating, "rating", "", "Record a rating: good or bad")
	generateCmd.Flags().StringVar(&generateComments, "comments", "", "Comment stored with the rating")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Also write the image to this path")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if generateSystemPrompt != "" {
		cfg.SystemPromptFile = generateSystemPrompt
	}
	if err := cfg.ValidateForGeneration(); err != nil {
		return withHint(fmt.Errorf("validate config: %w", err), "set the key in .env (see .env.example)")
	}

	style, err := prompt.ParseStyle(generateStyle)
	if err != nil {
		return err
	}

	var rating feedback.Rating
	if generateRating != "" {
		if rating, err = feedback.ParseRating(generateRating); err != nil {
			return err
		}
	}

	text, fromStdin, err := readSourceText(args)
	if err != nil {
		return err
	}

	req := pipeline.GenerationRequest{
		SourceText:       text,
		Style:            style,
		TextTemperature:  cfg.TextTemperature,
		ImageTemperature: cfg.ImageTemperature,
	}
	if cmd.Flags().Changed("text-temp") {
		req.TextTemperature = generateTextTemp
	}
	if cmd.Flags().Changed("image-temp") {
		req.ImageTemperature = generateImageTemp
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer a.Close()
	req.SystemPrompt = a.SystemPrompt

	session := a.Pipeline.NewSession()
	slog.Info("generating", "style", string(style), "strategies", a.Pipeline.Strategies())

	artifacts, err := session.Submit(ctx, req)
	if artifacts.FinalPrompt != "" {
		printArtifacts(cmd.OutOrStdout(), artifacts)
	}
	if err != nil {
		return withHint(err, pipeline.HintOf(err))
	}

	if generateOutput != "" {
		if err := os.WriteFile(generateOutput, artifacts.Image.Data, 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Image: %s\n", generateOutput)
	}

	comments := generateComments
	if rating == "" && !fromStdin && isatty.IsTerminal(os.Stdin.Fd()) {
		rating, comments, err = askRating(os.Stdin, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}
	if rating == "" {
		return nil
	}

	rec, err := session.Commit(ctx, rating, comments)
	if err != nil {
		return withHint(err, pipeline.HintOf(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s (%s)\n", filepath.Join(a.Recorder.ImageDir(), rec.ImageFilename), rec.Rating)
	return nil
}

// readSourceText returns the paragraph and whether it came from stdin.
func readSourceText(args []string) (string, bool, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), false, nil
	case generateFile != "":
		data, err := os.ReadFile(generateFile)
		if err != nil {
			return "", false, fmt.Errorf("read text file: %w", err)
		}
		return string(data), false, nil
	case !isatty.IsTerminal(os.Stdin.Fd()):
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", true, fmt.Errorf("read stdin: %w", err)
		}
		return string(data), true, nil
	}
	return "", false, errors.New("no text given: pass it as an argument, with --file, or on stdin")
}

func printArtifacts(w io.Writer, a pipeline.Artifacts) {
	fmt.Fprintln(w, "=== Reasoning ===")
	fmt.Fprintln(w, a.Reasoning)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Prompt ===")
	fmt.Fprintln(w, a.FinalPrompt)
	fmt.Fprintln(w)
	if a.Image != nil {
		fmt.Fprintf(w, "Style: %s  Text temperature: %.2f  Image temperature: %.2f  Renderer: %s\n",
			a.Request.Style.Label(), a.Request.TextTemperature, a.Request.ImageTemperature, a.Image.Strategy)
	}
}

// askRating prompts for a rating and comment. An empty answer skips rating.
func askRating(in io.Reader, out io.Writer) (feedback.Rating, string, error) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "Ocena [d]obrze / [z]le / Enter = pomiń: ")
		if !scanner.Scan() {
			return "", "", scanner.Err()
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		var rating feedback.Rating
		switch answer {
		case "":
			return "", "", nil
		case "d":
			rating = feedback.Positive
		case "z":
			rating = feedback.Negative
		default:
			r, err := feedback.ParseRating(answer)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			rating = r
		}

		fmt.Fprint(out, "Komentarz (opcjonalnie): ")
		if !scanner.Scan() {
			return rating, "", scanner.Err()
		}
		return rating, scanner.Text(), nil
	}
}

func withHint(err error, hint string) error {
	if hint == "" {
		return err
	}
	return fmt.Errorf("%w\nhint: %s", err, hint)
}
