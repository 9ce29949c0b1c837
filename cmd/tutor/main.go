// Command tutor is a terminal client for the tutor service. It drives the
// two interactive modes: a turn-based voice exam and a free-form study chat.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/prepod-ai/tutor/pkg/core/audio"
	"github.com/prepod-ai/tutor/pkg/core/types"
	tutor "github.com/prepod-ai/tutor/sdk"
)

const (
	defaultBaseURL = "http://127.0.0.1:8000"
	defaultTimeout = 30 * time.Second
)

type appConfig struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
	EnvFile  string
	Debug    bool
}

func parseConfig(args []string, getenv func(string) string) (appConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := appConfig{}
	fs := flag.NewFlagSet("tutor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.BaseURL, "base-url", "", "tutor service base URL (or TUTOR_BASE_URL)")
	fs.StringVar(&cfg.Email, "email", "", "account email (or TUTOR_EMAIL)")
	fs.StringVar(&cfg.Password, "password", "", "account password (or TUTOR_PASSWORD)")
	fs.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "per-request timeout")
	fs.StringVar(&cfg.EnvFile, "env-file", ".env", "dotenv file to load")
	fs.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return appConfig{}, err
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = strings.TrimSpace(getenv("TUTOR_BASE_URL"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Email == "" {
		cfg.Email = strings.TrimSpace(getenv("TUTOR_EMAIL"))
	}
	if cfg.Password == "" {
		cfg.Password = getenv("TUTOR_PASSWORD")
	}
	return cfg, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	// Flags may point at a custom env file, so parse twice around the load.
	pre, err := parseConfig(args, os.Getenv)
	if err != nil {
		return err
	}
	if pre.EnvFile != "" {
		if err := godotenv.Load(pre.EnvFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", pre.EnvFile, err)
		}
	}
	cfg, err := parseConfig(args, os.Getenv)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client := tutor.NewClient(cfg.BaseURL,
		tutor.WithTimeout(cfg.Timeout),
		tutor.WithLogger(logger),
	)

	ctx := context.Background()
	if cfg.Email != "" {
		if _, err := client.Login(ctx, &types.LoginRequest{Email: cfg.Email, Password: cfg.Password}); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		fmt.Fprintln(out, "logged in as", cfg.Email)
	}

	scanner := bufio.NewScanner(in)
	ui := &console{out: out}

	for {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Choose a mode: [1] voice exam  [2] study chat  [q] quit")
		line, ok := prompt(scanner, out, "> ")
		if !ok {
			return nil
		}
		switch strings.TrimSpace(line) {
		case "1":
			form, ok := readSessionForm(scanner, out)
			if !ok {
				return nil
			}
			// One orchestrator at a time; runExam closes it before returning.
			if err := runExam(ctx, client, logger, ui, scanner, form); err != nil {
				fmt.Fprintln(out, "exam error:", err)
			}
		case "2":
			form, ok := readSessionForm(scanner, out)
			if !ok {
				return nil
			}
			if err := runStudy(ctx, client, logger, ui, scanner, form); err != nil {
				fmt.Fprintln(out, "study error:", err)
			}
		case "q", "quit", "exit":
			return nil
		default:
			fmt.Fprintln(out, "unknown choice")
		}
	}
}

type sessionForm struct {
	TeacherName        string
	Subject            string
	TeacherDescription string
	Materials          []string
}

func readSessionForm(scanner *bufio.Scanner, out io.Writer) (sessionForm, bool) {
	form := sessionForm{}
	var ok bool
	if form.TeacherName, ok = prompt(scanner, out, "Teacher name: "); !ok {
		return form, false
	}
	if form.Subject, ok = prompt(scanner, out, "Subject: "); !ok {
		return form, false
	}
	if form.TeacherDescription, ok = prompt(scanner, out, "Teacher description: "); !ok {
		return form, false
	}
	fmt.Fprintln(out, "Materials, one per line; empty line to finish:")
	for {
		line, ok := prompt(scanner, out, "  material> ")
		if !ok {
			return form, false
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		form.Materials = append(form.Materials, line)
	}
	return form, true
}

func prompt(scanner *bufio.Scanner, out io.Writer, label string) (string, bool) {
	fmt.Fprint(out, label)
	if !scanner.Scan() {
		return "", false
	}
	return scanner.Text(), true
}

func newMicAndPlayer(client *tutor.Client, logger *slog.Logger) (*audio.Mic, *audio.Player) {
	return audio.NewMic(), audio.NewPlayer(client.HTTPClient(), logger)
}
