// Command analyze runs one listing analysis from local input files and
// prints the strategy report, optionally saving it to the insight hub.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/agents"
	"github.com/meridianlab/listingintel/internal/circuitbreaker"
	"github.com/meridianlab/listingintel/internal/config"
	"github.com/meridianlab/listingintel/internal/insights"
	"github.com/meridianlab/listingintel/internal/llm"
	"github.com/meridianlab/listingintel/internal/pipeline"
	"github.com/meridianlab/listingintel/internal/prompts"
	"github.com/meridianlab/listingintel/internal/ratecontrol"
	"github.com/meridianlab/listingintel/internal/synthesis"
	"github.com/meridianlab/listingintel/internal/teams"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to config YAML")
		chatFile    = flag.String("chat", "", "file with the shopping-assistant conversation")
		listingFile = flag.String("listing", "", "file with the official listing info text")
		reviewsFile = flag.String("reviews", "", "file with the raw reviews dump")
		titleFile   = flag.String("title", "", "file with the listing title")
		bulletsFile = flag.String("bullets", "", "file with the listing bullets")
		saveTitle   = flag.String("save", "", "save the report to the insight hub under this title")
		category    = flag.String("category", "", "insight hub category for -save")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	input := teams.Input{
		Part1Context:   readOptional(*chatFile),
		Part2Text:      readOptional(*listingFile),
		RawReviews:     readOptional(*reviewsFile),
		ListingTitle:   readOptional(*titleFile),
		ListingBullets: readOptional(*bulletsFile),
	}
	if input == (teams.Input{}) {
		fmt.Fprintln(os.Stderr, "no input provided; pass at least one of -chat, -listing, -reviews, -title, -bullets")
		os.Exit(2)
	}

	store := prompts.NewStore(logger)
	if cfg.Pipeline.TemplateDir != "" {
		if err := store.LoadDirectory(cfg.Pipeline.TemplateDir); err != nil && !prompts.IsLoadError(err) {
			log.Fatalf("load templates: %v", err)
		}
	}

	client := circuitbreaker.WrapClient(llm.NewHTTPClient(logger), "completion",
		circuitbreaker.DefaultConfig(), logger)
	invoker := agents.NewInvoker(client, store, logger)
	pacer := ratecontrol.NewIntervalPacer(cfg.Pipeline.RequestsPerMinute, cfg.Pipeline.CourtesyDelay)
	resolver := llm.NewEnvResolver(map[string]llm.Profile{
		"default": {
			Provider:  cfg.Provider.Provider,
			Model:     cfg.Provider.Model,
			APIKeyEnv: cfg.Provider.APIKeyEnv,
		},
	})
	runner := pipeline.NewRunner(invoker, pacer, synthesis.NewSynthesizer(invoker, logger),
		resolver, "default", cfg.Provider.Temperature, cfg.Pipeline.MinAgents, logger)

	run, err := runner.Execute(context.Background(), input)
	if err != nil {
		log.Fatalf("run analysis: %v", err)
	}

	fmt.Println(run.Report)
	fmt.Fprintf(os.Stderr, "\nstate=%s agents: %d run, %d ok, %d failed\n",
		run.State, run.Stats.AgentsRun, run.Stats.AgentsOk, run.Stats.AgentsError)

	if *saveTitle != "" && run.State == pipeline.StateCompleted {
		hub, err := insights.NewStore(cfg.Storage.InsightsDir, logger)
		if err != nil {
			log.Fatalf("open insight hub: %v", err)
		}
		filename := insights.Filename(*saveTitle, time.Now())
		if err := hub.Save(*category, filename, run.Report, evidenceRows(run)); err != nil {
			log.Fatalf("save insight: %v", err)
		}
		fmt.Fprintf(os.Stderr, "saved as %s\n", filename)
	}
	if run.State != pipeline.StateCompleted {
		os.Exit(1)
	}
}

func readOptional(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// evidenceRows flattens per-agent outcomes into the paired CSV.
func evidenceRows(run *pipeline.Run) [][]string {
	rows := [][]string{{"team", "agent", "status", "elapsed_ms", "error"}}
	for _, res := range run.TeamResults {
		for _, out := range res.Outcomes {
			rows = append(rows, []string{
				res.TeamName,
				out.AgentName,
				string(out.Status),
				fmt.Sprintf("%d", out.Elapsed.Milliseconds()),
				out.Error,
			})
		}
	}
	return rows
}
