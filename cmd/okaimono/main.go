// Package main provides the okaimono command: it signs into the storefront,
// asks a language model what to buy, and walks to each item's category page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/entrhq/okaimono/pkg/auth"
	"github.com/entrhq/okaimono/pkg/browser"
	appconfig "github.com/entrhq/okaimono/pkg/config"
	"github.com/entrhq/okaimono/pkg/logging"
	"github.com/entrhq/okaimono/pkg/prompt"
	"github.com/entrhq/okaimono/pkg/resolve"
	"github.com/entrhq/okaimono/pkg/shop"
)

const version = "0.1.0"

// Flags holds the command-line values.
type Flags struct {
	Query       string
	BaseURL     string
	Email       string
	Model       string
	ConfigPath  string
	ShowVersion bool
	SaveConfig  bool
	Debug       bool
}

func main() {
	flags := parseFlags(flag.CommandLine, os.Args[1:])

	if flags.ShowVersion {
		fmt.Printf("okaimono v%s\n", version)
		return
	}

	if flags.SaveConfig {
		path, err := saveConfig(flags, os.Getenv)
		if err != nil {
			fmt.Fprintf(os.Stderr, "okaimono: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", path)
		return
	}

	if err := flags.validate(); err != nil {
		flag.Usage()
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	if err := run(ctx, flags); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "okaimono: %v\n", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses args into Flags. A query may also be given as the first
// positional argument.
func parseFlags(fs *flag.FlagSet, args []string) *Flags {
	f := &Flags{}

	fs.StringVar(&f.Query, "query", "", "What you want to shop for (required)")
	fs.StringVar(&f.BaseURL, "base-url", "", fmt.Sprintf("Language model endpoint (default %s, or set %s)", appconfig.DefaultLLMBaseURL, appconfig.EnvBaseURL))
	fs.StringVar(&f.Email, "email", "", fmt.Sprintf("Email used to sign in (default %s, or set %s)", appconfig.DefaultEmail, appconfig.EnvEmail))
	fs.StringVar(&f.Model, "model", "", fmt.Sprintf("Model name (default %s, or set %s)", appconfig.DefaultModel, appconfig.EnvModel))
	fs.StringVar(&f.ConfigPath, "config", "", fmt.Sprintf("Config file (default ~/.okaimono/config.yaml, or set %s)", appconfig.EnvConfigPath))
	fs.BoolVar(&f.ShowVersion, "version", false, "Show version and exit")
	fs.BoolVar(&f.SaveConfig, "save-config", false, "Write the effective configuration to the config file and exit")
	fs.BoolVar(&f.Debug, "debug", false, "Print the session ID and log file path on startup")

	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "okaimono - walk the storefront for a shopping request\n\n")
		fmt.Fprintf(out, "Usage: okaimono [options] [query]\n\n")
		fmt.Fprintf(out, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nExamples:\n")
		fmt.Fprintf(out, "  okaimono -query 牛乳と卵を買いたい\n")
		fmt.Fprintf(out, "  okaimono -base-url http://gpu-box:11434 カレーの材料\n")
	}

	// ExitOnError handles parse failures for the command line.
	_ = fs.Parse(args)

	if f.Query == "" && fs.NArg() > 0 {
		f.Query = strings.Join(fs.Args(), " ")
	}
	return f
}

func (f *Flags) validate() error {
	if strings.TrimSpace(f.Query) == "" {
		return errors.New("a query is required (use -query or pass it as an argument)")
	}
	return nil
}

// loadConfig resolves settings: flags over environment over file over defaults.
func loadConfig(f *Flags, getenv func(string) string) (*appconfig.Config, error) {
	cfg, err := appconfig.Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(getenv)
	cfg.Apply(appconfig.Overrides{
		BaseURL: f.BaseURL,
		Model:   f.Model,
		Email:   f.Email,
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// saveConfig writes the resolved configuration to the -config path (or the
// default location) so later runs pick it up. The API key is left out; it
// belongs in the environment.
func saveConfig(f *Flags, getenv func(string) string) (string, error) {
	cfg, err := loadConfig(f, getenv)
	if err != nil {
		return "", err
	}
	cfg.LLM.APIKey = ""

	path := f.ConfigPath
	if path == "" {
		if path, err = appconfig.DefaultPath(); err != nil {
			return "", err
		}
	}
	if err := appconfig.Save(path, cfg); err != nil {
		return "", err
	}
	return path, nil
}

// debugBanner describes where this run's log lines go.
func debugBanner(logger *logging.Logger) string {
	dest := logger.LogPath()
	if dest == "" {
		dest = "stderr"
	}
	return fmt.Sprintf("session %s, logging to %s", logging.GetSessionID(), dest)
}

// newPrompter uses the interactive prompt when stdin is a terminal.
func newPrompter(in *os.File, out io.Writer) prompt.CodePrompter {
	if term.IsTerminal(int(in.Fd())) {
		return prompt.NewTerminalPrompter(in, out)
	}
	return prompt.NewLinePrompter(in, out)
}

func newDetector(cfg *appconfig.Config, home string) (auth.Detector, error) {
	if cfg.Storefront.AuthPattern == "" {
		return auth.PrefixDetector{Prefix: home}, nil
	}
	return auth.NewGlobDetector(cfg.Storefront.AuthPattern)
}

// run executes one shopping walk.
func run(ctx context.Context, f *Flags) error {
	cfg, err := loadConfig(f, os.Getenv)
	if err != nil {
		return err
	}

	if cfg.Logging.Dir != "" {
		logging.SetLogDirectory(cfg.Logging.Dir)
	}
	logger, err := logging.NewLogger("okaimono")
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	defer logger.Close()
	if f.Debug {
		fmt.Fprintln(os.Stderr, debugBanner(logger))
	}

	provider, err := appconfig.BuildProvider(cfg)
	if err != nil {
		return err
	}
	logger.Infof("okaimono v%s, model %s at %s, api key set: %t",
		version, provider.GetModel(), provider.GetBaseURL(), provider.GetAPIKey() != "")

	storefront, err := shop.NewStorefront(cfg.Storefront.BaseURL)
	if err != nil {
		return err
	}

	detector, err := newDetector(cfg, storefront.HomeURL())
	if err != nil {
		return err
	}

	launcher := browser.NewLauncher()
	defer func() {
		if err := launcher.Shutdown(); err != nil {
			logger.Warnf("browser shutdown: %v", err)
		}
	}()
	if err := launcher.Initialize(); err != nil {
		return err
	}
	session, err := launcher.Start(browser.SessionOptions{Headless: cfg.Storefront.Headless})
	if err != nil {
		return err
	}

	sequencer := auth.NewSequencer(session, newPrompter(os.Stdin, os.Stdout), storefront.HomeURL(),
		auth.WithDetector(detector),
		auth.WithRetryPolicy(auth.RetryPolicy{MaxAttempts: cfg.Auth.MaxAttempts, Timeout: cfg.Auth.Timeout}),
		auth.WithLabels(auth.Labels{
			Login:    cfg.Auth.Labels.Login,
			Submit:   cfg.Auth.Labels.Submit,
			Complete: cfg.Auth.Labels.Complete,
		}),
		auth.WithSettleDelay(cfg.Storefront.SettleDelay),
		auth.WithLogger(logger.Component("auth")),
	)

	resolver := resolve.New(provider, resolve.WithLogger(logger.Component("resolve")))

	orchestrator, err := shop.NewOrchestrator(session, sequencer, resolver,
		shop.WithStorefront(storefront),
		shop.WithSession(shop.Session{Email: cfg.Storefront.Email}),
		shop.WithTaxonomy(resolver.Taxonomy()),
		shop.WithReporter(shop.NewConsoleReporter(os.Stdout)),
		shop.WithSettleDelay(cfg.Storefront.SettleDelay),
		shop.WithLogger(logger.Component("shop")),
	)
	if err != nil {
		return err
	}

	_, err = orchestrator.Run(ctx, f.Query)
	return err
}
