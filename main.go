package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pterm/pterm"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/application"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/applog"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/config"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/decision"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/engine"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/persistence"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/showdown"
)

var (
	version   = "dev"
	commit    = "local"
	buildDate = "unknown"
)

const usage = `usage: holdem <command> [flags]

commands:
  simulate   play seeded hands with automated players and write their histories
  replay     verify hand-history files by replaying them through the engine
  import     validate, verify and store hand-history files or directories
  watch      import hand files as they appear in a directory
  play       play hands at the terminal against automated players
  hands      list stored hands and per-player results
  stats      per-player statistics over stored hands
  version    print build information
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "simulate":
		err = runSimulate(ctx, args)
	case "replay":
		err = runReplay(ctx, args)
	case "import":
		err = runImport(ctx, args)
	case "watch":
		err = runWatch(ctx, args)
	case "play":
		err = runPlay(ctx, args)
	case "hands":
		err = runHands(ctx, args)
	case "stats":
		err = runStats(ctx, args)
	case "version":
		fmt.Printf("holdem %s (%s, built %s)\n", version, commit, buildDate)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// commonFlags are shared by every subcommand that touches config or storage.
type commonFlags struct {
	configPath string
	dbPath     string
	debug      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "TOML config file")
	fs.StringVar(&c.dbPath, "db", "", "sqlite database path (overrides config)")
	fs.BoolVar(&c.debug, "debug", false, "debug logging")
}

// load reads the config, applies flag overrides and initialises logging.
func (c *commonFlags) load() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if c.dbPath != "" {
		cfg.Storage.DBPath = c.dbPath
	}
	if c.debug {
		cfg.Log.Debug = true
	}
	applog.Init(cfg.Log.Debug)
	return cfg, nil
}

func openRepo(cfg config.Config) (*persistence.SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return persistence.NewSQLiteRepository(cfg.Storage.DBPath)
}

func runSimulate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	hands := fs.Int("hands", 0, "number of hands (overrides config)")
	seed := fs.Int64("seed", 0, "random seed (overrides config)")
	out := fs.String("out", "", "directory for hand files (overrides config)")
	store := fs.Bool("store", false, "also store the hands in the database")
	_ = fs.Parse(args)

	cfg, err := common.load()
	if err != nil {
		return err
	}
	if *hands > 0 {
		cfg.Simulation.Hands = *hands
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}
	if *out != "" {
		cfg.Simulation.Out = *out
	}

	var repo persistence.ImportBatchRepository = persistence.NewMemoryRepository()
	if *store {
		sqliteRepo, err := openRepo(cfg)
		if err != nil {
			return err
		}
		defer sqliteRepo.Close()
		repo = sqliteRepo
	}
	svc := application.NewService(repo, application.Options{Logger: applog.Discard()})

	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("playing %d hands", cfg.Simulation.Hands))
	played, err := svc.Simulate(ctx, application.SimulateOptions{
		Config: cfg,
		Out:    cfg.Simulation.Out,
		Store:  *store,
	})
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	spinner.Success(fmt.Sprintf("played %d hands, histories in %s", len(played), cfg.Simulation.Out))
	return renderSimulation(cfg, played)
}

func runReplay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	verbose := fs.Bool("v", false, "print every replayed hand")
	debug := fs.Bool("debug", false, "debug logging")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("replay: no files given")
	}
	applog.Init(*debug)

	svc := application.NewService(persistence.NewMemoryRepository(), application.Options{})
	var rows []replayRow
	for _, path := range fs.Args() {
		hands, err := handhistory.ReadFile(path)
		if err != nil {
			rows = append(rows, replayRow{path: path, err: err})
			continue
		}
		for i, h := range hands {
			got, err := svc.Verify(ctx, h)
			if errors.Is(err, context.Canceled) {
				return err
			}
			rows = append(rows, replayRow{path: path, index: i, hand: h, err: err})
			if *verbose && got != nil {
				renderHand(got)
			}
		}
	}
	return renderReplay(rows)
}

func runImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	workers := fs.Int("workers", 0, "parallel verification workers")
	noVerify := fs.Bool("no-verify", false, "store after validation without replaying")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("import: no files or directories given")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	svc := application.NewService(repo, application.Options{Workers: *workers, SkipVerify: *noVerify})

	var reports []application.ImportReport
	for _, path := range fs.Args() {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			r, err := svc.ImportFile(ctx, path)
			if err != nil {
				return err
			}
			reports = append(reports, r)
			continue
		}
		bar, _ := pterm.DefaultProgressbar.WithTitle("importing " + path).WithTotal(1).Start()
		rs, err := svc.ImportDir(ctx, path, func(p application.ImportProgress) {
			bar.Total = p.Total
			bar.Increment()
		})
		_, _ = bar.Stop()
		reports = append(reports, rs...)
		if err != nil {
			renderImport(reports)
			return err
		}
	}
	renderImport(reports)
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("watch: exactly one directory expected")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	svc := application.NewService(repo, application.Options{})

	pterm.Info.Printfln("watching %s (ctrl-c to stop)", fs.Arg(0))
	return svc.Watch(ctx, fs.Arg(0), func(r application.ImportReport) {
		switch {
		case r.Err != nil && r.Inserted+r.Updated == 0:
			pterm.Error.Printfln("%s: %v", r.Path, r.Err)
		case r.Unchanged:
			pterm.Debug.Printfln("%s unchanged", r.Path)
		default:
			pterm.Success.Printfln("%s: %d new, %d updated, %d rejected", r.Path, r.Inserted, r.Updated, r.Rejected)
		}
	})
}

func runPlay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	seat := fs.String("seat", "", "uid you play (default: first seat)")
	hands := fs.Int("hands", 10, "hands to play")
	seed := fs.Int64("seed", 0, "random seed (default: time based)")
	out := fs.String("out", "", "directory for hand files")
	_ = fs.Parse(args)

	cfg, err := common.load()
	if err != nil {
		return err
	}
	me := *seat
	if me == "" {
		me = cfg.Seats[0].UID
	}
	actualSeed := *seed
	if actualSeed == 0 {
		actualSeed = time.Now().UnixNano()
	}
	table, err := engine.NewTable(engine.TableOptions{
		ID:                 cfg.Table.ID,
		SmallBlind:         cfg.Table.SmallBlind,
		BigBlind:           cfg.Table.BigBlind,
		Ante:               cfg.Table.Ante,
		Seats:              cfg.HandSeats(),
		Evaluator:          showdown.Evaluator{},
		DealOutUncontested: cfg.Table.DealOutUncontested,
		Logger:             applog.Discard(),
	})
	if err != nil {
		return err
	}
	src := decision.Mux{
		Seats:   map[string]engine.DecisionSource{me: decision.NewPrompt(os.Stdin, os.Stdout, me)},
		Default: decision.NewRandom(actualSeed),
	}
	if *out != "" {
		if err := os.MkdirAll(*out, 0o755); err != nil {
			return err
		}
	}

	for i := 0; i < *hands; i++ {
		m, err := table.NextHand(cards.NewShuffledDeck(actualSeed + int64(i)))
		if errors.Is(err, engine.ErrTableFinished) {
			pterm.Info.Println("only one player has chips left")
			return nil
		}
		if err != nil {
			return err
		}
		h, err := playHand(ctx, m, src)
		if err != nil {
			return err
		}
		table.Settle(h)
		renderHand(h)
		if *out != "" {
			path := filepath.Join(*out, h.Metadata.HandID+".json")
			if err := handhistory.WriteFile(path, h); err != nil {
				return err
			}
		}
	}
	return nil
}

// playHand steps m until the hand ends. Rejected human input is reported and
// asked again instead of aborting the hand.
func playHand(ctx context.Context, m *engine.Machine, src engine.DecisionSource) (*handhistory.Hand, error) {
	if err := m.Start(); err != nil {
		return nil, err
	}
	for !m.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := m.Step(src)
		if err != nil && !errors.Is(err, engine.ErrRuleViolation) {
			return nil, err
		}
		if !res.Accepted {
			pterm.Warning.Printfln("%s: %s", res.Rule, res.Reason)
		}
	}
	if err := m.Err(); err != nil {
		return nil, err
	}
	return m.History(), nil
}

func runHands(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("hands", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	player := fs.String("player", "", "only hands this player sat in")
	table := fs.String("table", "", "only hands from this table")
	limit := fs.Int("limit", 20, "hands per page")
	offset := fs.Int("offset", 0, "hands to skip")
	_ = fs.Parse(args)

	cfg, err := common.load()
	if err != nil {
		return err
	}
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	svc := application.NewService(repo, application.Options{})

	f := persistence.HandFilter{PlayerUID: *player, TableID: *table, Limit: *limit, Offset: *offset}
	sums, total, err := svc.ListHandSummaries(ctx, f)
	if err != nil {
		return err
	}
	f.Limit, f.Offset = 0, 0
	totals, err := svc.PlayerTotals(ctx, f)
	if err != nil {
		return err
	}
	return renderHands(sums, total, totals, *player)
}

func runStats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	player := fs.String("player", "", "only hands this player sat in")
	table := fs.String("table", "", "only hands from this table")
	_ = fs.Parse(args)

	cfg, err := common.load()
	if err != nil {
		return err
	}
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	svc := application.NewService(repo, application.Options{})

	all, err := svc.PlayerStats(ctx, persistence.HandFilter{PlayerUID: *player, TableID: *table})
	if err != nil {
		return err
	}
	if len(all) == 0 {
		pterm.Info.Println("no complete hands stored")
		return nil
	}
	return renderStats(all)
}
