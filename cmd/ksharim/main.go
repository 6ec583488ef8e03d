package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Omribarzi/lead-generation-agent/internal/agent"
	"github.com/Omribarzi/lead-generation-agent/internal/config"
	"github.com/Omribarzi/lead-generation-agent/internal/crm"
	"github.com/Omribarzi/lead-generation-agent/internal/gate"
	"github.com/Omribarzi/lead-generation-agent/internal/logging"
	"github.com/Omribarzi/lead-generation-agent/internal/models"
	"github.com/Omribarzi/lead-generation-agent/internal/orchestrator"
	"github.com/Omribarzi/lead-generation-agent/internal/phantom"
	"github.com/Omribarzi/lead-generation-agent/internal/screenshot"
	"github.com/Omribarzi/lead-generation-agent/internal/store"
)

func main() {
	ctx := context.Background()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to config file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `ksharim - LinkedIn outreach pipeline for the Ksharim mentorship program

Usage:
  ksharim [--config config.yaml] <command> [options]

Commands:
  outreach [--url U] [--file leads.txt] [--concurrency N]
                         Run the scrape, compose, send, record pipeline
  scrape --url U         Scrape one profile and print it
  leads [--status S]     List leads from the CRM board
  setup-board [--name N] Create the CRM board with all pipeline columns
  screenshot <url> <out> Capture a full-page screenshot

Examples:
  ksharim outreach --url https://www.linkedin.com/in/someone
  ksharim leads --status "In Conversation"
`)
	}

	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Logging.Level)
	log.Info("ksharim starting", "version", "0.1.0")

	cmd := flag.Arg(0)
	args := flag.Args()[1:]
	switch cmd {
	case "outreach":
		err = runOutreach(ctx, cfg, args)
	case "scrape":
		err = runScrape(ctx, cfg, args)
	case "leads":
		err = runLeads(ctx, cfg, args)
	case "setup-board":
		err = runSetupBoard(ctx, cfg, args)
	case "screenshot":
		err = runScreenshot(ctx, args)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", "command", cmd, "err", err)
		os.Exit(1)
	}
}

// phantomJobs binds the configured agent ids and budgets to the narrow
// interface the orchestrator wants.
type phantomJobs struct {
	client       *phantom.Client
	scraperAgent string
	senderAgent  string
	timeout      time.Duration
	pollInterval time.Duration
}

func (p phantomJobs) ScrapeProfile(ctx context.Context, url string) (models.Profile, error) {
	return p.client.ScrapeProfile(ctx, p.scraperAgent, url, p.timeout, p.pollInterval)
}

func (p phantomJobs) SendMessage(ctx context.Context, url, message string) error {
	return p.client.SendMessage(ctx, p.senderAgent, url, message, p.timeout, p.pollInterval)
}

func newJobs(cfg *config.Config, log *logging.Logger) phantomJobs {
	return phantomJobs{
		client: phantom.New(cfg.Phantombuster.APIKey,
			phantom.WithRateLimit(cfg.Phantombuster.RequestPerSec, 2),
			phantom.WithLogger(log.With("module", "phantom"))),
		scraperAgent: cfg.Phantombuster.ScraperAgent,
		senderAgent:  cfg.Phantombuster.SenderAgent,
		timeout:      time.Duration(cfg.Phantombuster.TimeoutSec) * time.Second,
		pollInterval: time.Duration(cfg.Phantombuster.PollAfterSec) * time.Second,
	}
}

func runOutreach(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("outreach", flag.ExitOnError)
	url := fs.String("url", "", "Profile URL to process")
	file := fs.String("file", "", "File with one profile URL per line")
	concurrency := fs.Int("concurrency", 1, "Concurrent lead pipelines")
	_ = fs.Parse(args)

	var urls []string
	if *url != "" {
		urls = append(urls, *url)
	}
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if line := sc.Text(); line != "" {
				urls = append(urls, line)
			}
		}
		if err := sc.Err(); err != nil {
			return err
		}
	}
	if len(urls) == 0 {
		return fmt.Errorf("outreach needs --url or --file")
	}

	log := logging.New(cfg.Logging.Level)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	g, err := gate.New(st, cfg)
	if err != nil {
		return err
	}

	gen := agent.New(
		agent.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
		agent.WithCalendarLink(cfg.Workflow.CalendarBookingLink),
		agent.WithLogger(log.With("module", "agent")),
	)
	leads := crm.New(cfg.Monday.APIKey, cfg.Monday.BoardID, crm.WithLogger(log.With("module", "crm")))

	engine := orchestrator.New(newJobs(cfg, log), gen, leads, g, st, log)
	results, err := engine.ProcessLeads(ctx, urls, *concurrency)
	if err != nil {
		return err
	}
	for _, r := range results {
		switch {
		case r.Sent:
			fmt.Printf("sent      %s (%d words)\n", r.Profile.LinkedInURL, r.Draft.WordCount)
		case r.PendingApproval:
			fmt.Printf("pending   %s (awaiting approval)\n", r.Profile.LinkedInURL)
		default:
			fmt.Printf("skipped   %s\n", r.Profile.LinkedInURL)
		}
	}
	return nil
}

func runScrape(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	url := fs.String("url", "", "Profile URL to scrape")
	_ = fs.Parse(args)
	if *url == "" {
		return fmt.Errorf("scrape needs --url")
	}

	log := logging.New(cfg.Logging.Level)
	jobs := newJobs(cfg, log)
	profile, err := jobs.ScrapeProfile(ctx, *url)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n  %s at %s\n  %s\n", profile.FullName(), profile.Position, profile.Company, profile.Headline)
	return nil
}

func runLeads(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("leads", flag.ExitOnError)
	status := fs.String("status", "", "Filter by status label")
	_ = fs.Parse(args)

	log := logging.New(cfg.Logging.Level)
	client := crm.New(cfg.Monday.APIKey, cfg.Monday.BoardID, crm.WithLogger(log.With("module", "crm")))

	var leads []models.Lead
	var err error
	if *status != "" {
		leads, err = client.GetLeadsByStatus(ctx, *status)
	} else {
		leads, err = client.GetAll(ctx)
	}
	if err != nil {
		return err
	}
	for _, l := range leads {
		fmt.Printf("%-12s %-25s %-20s %s\n", l.Status, l.FullName(), l.Company, l.LinkedInURL)
	}
	fmt.Printf("%d leads\n", len(leads))
	return nil
}

func runSetupBoard(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("setup-board", flag.ExitOnError)
	name := fs.String("name", "Ksharim Lead Pipeline", "Board name")
	_ = fs.Parse(args)

	log := logging.New(cfg.Logging.Level)
	client := crm.New(cfg.Monday.APIKey, cfg.Monday.BoardID, crm.WithLogger(log.With("module", "crm")))
	boardID, columns, err := client.SetupBoard(ctx, *name)
	if err != nil {
		return err
	}
	fmt.Printf("Board ID: %s\n\nUpdate your .env with:\nMONDAY_BOARD_ID=%s\n\nColumn IDs:\n", boardID, boardID)
	for title, id := range columns {
		fmt.Printf("  %s: %s\n", title, id)
	}
	return nil
}

func runScreenshot(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: ksharim screenshot <url> <output.png>")
	}
	return screenshot.Capture(ctx, args[0], args[1], 2*time.Second)
}
