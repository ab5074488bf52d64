// Command researchd wires the whole engine together from a config file and
// runs one research query end to end: tracker, engine adapters, strategies,
// orchestrator, progress stream. It is the library's smoke harness, not a
// server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"deepresearch/internal/config"
	"deepresearch/internal/embedclient"
	"deepresearch/internal/engines"
	"deepresearch/internal/engines/local"
	"deepresearch/internal/localindex"
	"deepresearch/internal/llmprovider"
	"deepresearch/internal/llmprovider/anthropic"
	"deepresearch/internal/llmprovider/gemini"
	"deepresearch/internal/llmprovider/openai"
	"deepresearch/internal/metricssink"
	"deepresearch/internal/observability"
	"deepresearch/internal/orchestrator"
	"deepresearch/internal/orchestrator/eventbus"
	"deepresearch/internal/persistence/databases"
	"deepresearch/internal/ratelimit"
	"deepresearch/internal/searchengine"
	"deepresearch/internal/settings"
	"deepresearch/internal/strategy"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("researchd", flag.ContinueOnError)
	cfgPath := fs.String("config", "config.yaml", "path to the YAML config file")
	query := fs.String("query", "", "research query to run")
	strat := fs.String("strategy", "", "strategy name (empty = config default)")
	selector := fs.String("engines", "", "comma-separated engine names (empty = all)")
	iterations := fs.Int("iterations", 0, "iteration cap (0 = strategy default)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *query == "" {
		fmt.Fprintln(os.Stderr, "Error: --query is required")
		return 1
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		return 1
	}
	observability.Configure(cfg.LogPath, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTel.OTLP != "" {
		shutdown, err := observability.InitOTel(ctx, cfg.OTel)
		if err != nil {
			log.Warn().Err(err).Msg("otel init failed, continuing without export")
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	llm, err := buildLLM(ctx, cfg.LLM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: llm provider: %v\n", err)
		return 1
	}

	store, closeStore := ratelimit.OpenStore(ctx, cfg.RateLimit.Store.Backend, cfg.RateLimit.Store.DSN)
	defer closeStore()
	tracker, err := ratelimit.NewTracker(ctx, store, ratelimit.Config{
		Enabled:      cfg.RateLimit.Enabled,
		Profile:      ratelimit.Profile(cfg.RateLimit.Profile),
		MemoryWindow: cfg.RateLimit.MemoryWindow,
		Exploration:  cfg.RateLimit.ExplorationP,
		Learning:     cfg.RateLimit.LearningRate,
		DecayPerDay:  cfg.RateLimit.DecayPerDay,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: init rate limit tracker: %v\n", err)
		return 1
	}

	sink := metricssink.NewMemorySink()
	runners, buildErrs := engines.Build(cfg.Engines, tracker, llm, sink, observability.Traced(nil))
	for _, e := range buildErrs {
		log.Warn().Err(e).Msg("engine skipped")
	}
	if len(runners) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no usable engines configured")
		return 1
	}

	if local := buildLocalRunner(ctx, cfg, tracker, sink); local != nil {
		runners["local"] = local
	}
	engines.ApplySettings(runners, buildSettings(ctx, cfg.Settings))

	engineRunners := make(map[string]strategy.EngineRunner, len(runners))
	for name, r := range runners {
		engineRunners[name] = r
	}

	var publisher orchestrator.ProgressPublisher
	channel := orchestrator.NewChannelPublisher(64)
	publisher = channel
	if cfg.EventBus.Enabled && len(cfg.EventBus.Brokers) > 0 {
		kafka := eventbus.NewKafkaPublisher(cfg.EventBus.Brokers, cfg.EventBus.ProgressTopic)
		defer kafka.Close()
		publisher = fanout{channel, kafka}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range channel.Events {
			log.Info().
				Str("research_id", ev.ResearchID).
				Float64("percent", ev.Percent).
				Msg(ev.Message)
		}
	}()

	o := orchestrator.New(strategy.Deps{
		LLM:            llm,
		Engines:        engineRunners,
		WorkerPoolSize: cfg.Orchestrator.MaxConcurrentEngines,
	}, publisher, sink)

	name := *strat
	if name == "" {
		name = cfg.Orchestrator.DefaultStrategy
	}
	iterCap := *iterations
	if iterCap <= 0 {
		iterCap = cfg.Orchestrator.MaxIterations
	}
	res := o.Research(ctx, *query, searchengine.ResearchContext{
		Strategy:       name,
		EngineSelector: *selector,
		IterationCap:   iterCap,
	})
	close(channel.Events)
	<-done

	fmt.Println(res.FormattedFindings)
	log.Info().
		Str("research_id", res.ResearchID).
		Str("strategy", res.Strategy).
		Int("iterations", res.Iterations).
		Int("searches", len(sink.Snapshot())).
		Bool("cancelled", res.Cancelled).
		Msg("research run finished")
	if res.Cancelled {
		return 130
	}
	return 0
}

// fanout publishes each event to every wrapped publisher in order.
type fanout []orchestrator.ProgressPublisher

func (f fanout) Publish(ev orchestrator.ProgressEvent) {
	for _, p := range f {
		p.Publish(ev)
	}
}

func buildLLM(ctx context.Context, cfg config.LLMProviderConfig) (llmprovider.Invoker, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.New(anthropic.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model}, nil), nil
	case "openai":
		return openai.New(openai.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model}), nil
	case "google":
		return gemini.New(ctx, gemini.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model}, nil)
	case "":
		return nil, fmt.Errorf("llm.provider is not set")
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// buildLocalRunner wires the embedding-backed local index engine when an
// enabled engine entry of kind "local" is configured. The factory leaves
// local out because it needs collaborators (an indexer, an embedder) a
// config document alone can't supply. Folders are indexed at startup;
// previews already carry a similarity rank, so the runner skips the LLM
// relevance filter.
func buildLocalRunner(ctx context.Context, cfg *config.Config, tracker *ratelimit.Tracker, sink searchengine.MetricsSink) *searchengine.Runner {
	var ec *config.EngineConfig
	for i := range cfg.Engines {
		if cfg.Engines[i].Kind == "local" && cfg.Engines[i].Enabled {
			ec = &cfg.Engines[i]
			break
		}
	}
	if ec == nil {
		return nil
	}

	folders := splitNonEmpty(ec.Options["folders"])
	if len(folders) == 0 {
		log.Warn().Str("engine", ec.Name).Msg("local engine enabled with no folders, skipping")
		return nil
	}
	cacheDir := ec.Options["cache_dir"]
	if cacheDir == "" {
		cacheDir = ".research-index"
	}

	meta, err := localindex.NewFileMetadataStore(cacheDir)
	if err != nil {
		log.Warn().Err(err).Msg("local index metadata store failed, skipping local engine")
		return nil
	}
	embedder := localindex.EmbedderFromClient(embedclient.New(embedclient.Config{
		BaseURL: cfg.Embedding.Host,
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
	}, nil))
	stores := localindex.NewVectorStoreFactory(databases.VectorBackendConfig{
		Backend:    cfg.VectorStore.Backend,
		DSN:        cfg.VectorStore.DSN,
		Dimensions: cfg.Embedding.Dimensions,
		Metric:     cfg.VectorStore.Metric,
	})
	indexer := localindex.NewIndexer(meta, embedder, stores)

	col := localindex.Collection{
		Name:    ec.Options["collection"],
		Folders: folders,
		Embedding: localindex.EmbeddingConfig{
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		},
	}
	for _, folder := range folders {
		if err := indexer.IndexFolder(ctx, col, folder, false); err != nil {
			log.Warn().Err(err).Str("folder", folder).Msg("index pass failed, folder skipped for this run")
		}
	}

	engine := local.New(indexer, local.Config{
		Folders:    folders,
		Collection: col.Name,
		Threshold:  floatOption(ec.Options, "threshold"),
	})
	runner := searchengine.NewRunner(engine, tracker, nil)
	if sink != nil {
		runner.Sink = sink
	}
	return runner
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func floatOption(opts map[string]string, key string) float64 {
	f, err := strconv.ParseFloat(opts[key], 64)
	if err != nil {
		return 0
	}
	return f
}

// buildSettings resolves the runtime settings backend, falling back to an
// in-memory provider when Postgres is unconfigured or unreachable.
func buildSettings(ctx context.Context, cfg config.StoreConfig) settings.Provider {
	if cfg.Backend != "postgres" || cfg.DSN == "" {
		return settings.NewMemoryProvider(nil)
	}
	pool, err := databases.OpenPool(ctx, cfg.DSN)
	if err != nil {
		log.Warn().Err(err).Msg("settings store unreachable, using in-memory provider")
		return settings.NewMemoryProvider(nil)
	}
	p, err := settings.NewPostgresProvider(ctx, pool)
	if err != nil {
		log.Warn().Err(err).Msg("settings store init failed, using in-memory provider")
		return settings.NewMemoryProvider(nil)
	}
	return p
}
