package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/config"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/decision"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/engine"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/persistence"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/replay"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/showdown"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/stats"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/watcher"
)

// AppService is the interface the command line depends on.
// application.Service satisfies this interface.
type AppService interface {
	ImportFile(ctx context.Context, path string) (ImportReport, error)
	ImportDir(ctx context.Context, dir string, onProgress func(ImportProgress)) ([]ImportReport, error)
	Watch(ctx context.Context, dir string, onReport func(ImportReport)) error
	Verify(ctx context.Context, h *handhistory.Hand) (*handhistory.Hand, error)
	Simulate(ctx context.Context, opts SimulateOptions) ([]*handhistory.Hand, error)
	ListHandSummaries(ctx context.Context, f persistence.HandFilter) ([]persistence.HandSummary, int, error)
	// GetHandByUID returns nil, nil if not found.
	GetHandByUID(ctx context.Context, uid string) (*handhistory.Hand, error)
	PlayerTotals(ctx context.Context, f persistence.HandFilter) ([]persistence.PlayerTotal, error)
	PlayerStats(ctx context.Context, f persistence.HandFilter) ([]*stats.Stats, error)
}

type Options struct {
	Evaluator engine.HandEvaluator
	// Workers bounds parallel hand verification. Zero picks a default.
	Workers int
	// SkipVerify stores hands after validation without replaying them.
	SkipVerify bool
	Logger     *slog.Logger
}

type Service struct {
	// importMu serializes writes; watch callbacks and explicit imports may race.
	importMu sync.Mutex
	repo     persistence.ImportBatchRepository
	opts     Options
}

var _ AppService = (*Service)(nil)

func NewService(repo persistence.ImportBatchRepository, opts Options) *Service {
	if opts.Evaluator == nil {
		opts.Evaluator = showdown.Evaluator{}
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
		if opts.Workers > 4 {
			opts.Workers = 4
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{repo: repo, opts: opts}
}

// ImportReport describes the outcome for one source file.
type ImportReport struct {
	Path     string
	Hands    int
	Inserted int
	Updated  int
	// Rejected counts hands that failed validation or replay verification.
	Rejected int
	// Unchanged is set when the file content was already imported.
	Unchanged bool
	Err       error
}

// ImportProgress carries per-file progress information during a directory import.
type ImportProgress struct {
	// Current is the 1-based index of the file just imported.
	Current int
	Total   int
	Path    string
	Report  ImportReport
}

// ImportFile decodes path, checks every hand and stores the good ones.
// A file whose content hash matches a completed import is skipped.
// Per-hand problems are reported in ImportReport.Err; the returned error is
// reserved for failures that stop the import.
func (s *Service) ImportFile(ctx context.Context, path string) (ImportReport, error) {
	report := ImportReport{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	s.importMu.Lock()
	defer s.importMu.Unlock()

	cursor, err := s.repo.GetCursor(ctx, path)
	if err != nil {
		return report, fmt.Errorf("load cursor %s: %w", path, err)
	}
	if cursor != nil && cursor.IsFullyImported && cursor.ContentHash == hash {
		s.opts.Logger.Debug("skipping unchanged file", "path", path)
		report.Unchanged = true
		report.Hands = cursor.HandCount
		return report, nil
	}

	hands, err := handhistory.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return report, fmt.Errorf("decode %s: %w", path, err)
	}
	report.Hands = len(hands)

	checkErrs, err := s.checkHands(ctx, hands)
	if err != nil {
		return report, err
	}

	batch := make([]persistence.PersistedHand, 0, len(hands))
	lastUID := ""
	for i, h := range hands {
		if checkErrs[i] != nil {
			report.Rejected++
			report.Err = multierr.Append(report.Err, fmt.Errorf("hand %d: %w", i, checkErrs[i]))
			continue
		}
		src := persistence.HandSourceRef{SourcePath: path, Position: i}
		src.HandUID = persistence.GenerateHandUID(h, src)
		lastUID = src.HandUID
		batch = append(batch, persistence.PersistedHand{Hand: h, Source: src})
	}

	res, err := s.repo.SaveImportBatch(ctx, batch, persistence.ImportCursor{
		SourcePath:      path,
		ContentHash:     hash,
		HandCount:       len(hands),
		LastHandUID:     lastUID,
		IsFullyImported: true,
	})
	if err != nil {
		return report, fmt.Errorf("save %s: %w", path, err)
	}
	report.Inserted = res.Inserted
	report.Updated = res.Updated

	s.opts.Logger.Info("file imported",
		"path", path, "hands", report.Hands, "inserted", res.Inserted,
		"updated", res.Updated, "rejected", report.Rejected)
	return report, nil
}

// checkHands validates and, unless disabled, replays every hand using a
// bounded worker pool. The result holds one entry per hand.
func (s *Service) checkHands(ctx context.Context, hands []*handhistory.Hand) ([]error, error) {
	out := make([]error, len(hands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, h := range hands {
		i, h := i, h
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if s.opts.SkipVerify {
				out[i] = handhistory.Validate(h)
				return nil
			}
			_, err := replay.Verify(gctx, h, replay.Options{Evaluator: s.opts.Evaluator, Logger: s.opts.Logger})
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			out[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ImportDir imports every hand file in dir, oldest first. onProgress may be nil.
func (s *Service) ImportDir(ctx context.Context, dir string, onProgress func(ImportProgress)) ([]ImportReport, error) {
	files, err := watcher.ListHandFiles(dir)
	if err != nil {
		return nil, err
	}
	s.opts.Logger.Info("importing directory", "dir", dir, "files", len(files))

	reports := make([]ImportReport, 0, len(files))
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := s.ImportFile(ctx, path)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
		if onProgress != nil {
			onProgress(ImportProgress{Current: i + 1, Total: len(files), Path: path, Report: report})
		}
	}
	return reports, nil
}

// Watch imports files in dir as they appear until ctx is cancelled.
// Files already in dir are imported first. onReport may be nil.
func (s *Service) Watch(ctx context.Context, dir string, onReport func(ImportReport)) error {
	dw, err := watcher.NewDirWatcher(dir, watcher.WatcherConfig{
		OnFile: func(path string) {
			report, err := s.ImportFile(ctx, path)
			if err != nil {
				if ctx.Err() == nil {
					s.opts.Logger.Warn("watch import failed", "path", path, "error", err)
				}
				report.Err = multierr.Append(report.Err, err)
			}
			if onReport != nil {
				onReport(report)
			}
		},
		OnError: func(err error) {
			s.opts.Logger.Warn("watcher error", "dir", dir, "error", err)
		},
	})
	if err != nil {
		return err
	}
	if err := dw.Start(); err != nil {
		dw.Stop()
		return err
	}
	<-ctx.Done()
	dw.Stop()
	return nil
}

// Verify replays h and compares its outcome with the record.
func (s *Service) Verify(ctx context.Context, h *handhistory.Hand) (*handhistory.Hand, error) {
	return replay.Verify(ctx, h, replay.Options{Evaluator: s.opts.Evaluator, Logger: s.opts.Logger})
}

// simulationEpoch anchors simulated clocks so output does not depend on the
// wall clock.
var simulationEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type SimulateOptions struct {
	Config config.Config
	// Source decides for every seat; nil uses a seeded random player.
	Source engine.DecisionSource
	// Out, when set, receives one JSON file per hand.
	Out string
	// Store saves the hands to the repository.
	Store bool
}

// Simulate plays Config.Simulation.Hands hands. The same config and source
// produce byte-identical hands.
func (s *Service) Simulate(ctx context.Context, opts SimulateOptions) ([]*handhistory.Hand, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Simulation.Seed
	now := simulationEpoch.Add(time.Duration(seed) * time.Hour)
	table, err := engine.NewTable(engine.TableOptions{
		ID:                 cfg.Table.ID,
		SmallBlind:         cfg.Table.SmallBlind,
		BigBlind:           cfg.Table.BigBlind,
		Ante:               cfg.Table.Ante,
		Seats:              cfg.HandSeats(),
		Evaluator:          s.opts.Evaluator,
		DealOutUncontested: cfg.Table.DealOutUncontested,
		Clock: func() time.Time {
			now = now.Add(time.Second)
			return now
		},
		Logger: s.opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("new table: %w", err)
	}
	src := opts.Source
	if src == nil {
		src = decision.NewRandom(seed)
	}
	if opts.Out != "" {
		if err := os.MkdirAll(opts.Out, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	var hands []*handhistory.Hand
	for i := 0; i < cfg.Simulation.Hands; i++ {
		if err := ctx.Err(); err != nil {
			return hands, err
		}
		h, err := table.PlayHand(ctx, src, cards.NewShuffledDeck(seed*1_000_003+int64(i)))
		if errors.Is(err, engine.ErrTableFinished) {
			s.opts.Logger.Info("simulation stopped early", "hands", i, "reason", err)
			break
		}
		if err != nil {
			return hands, err
		}
		hands = append(hands, h)
		if opts.Out != "" {
			path := filepath.Join(opts.Out, fmt.Sprintf("hand-%05d.json", i+1))
			if err := handhistory.WriteFile(path, h); err != nil {
				return hands, fmt.Errorf("write %s: %w", path, err)
			}
		}
	}

	if opts.Store && len(hands) > 0 {
		batch := make([]persistence.PersistedHand, 0, len(hands))
		for _, h := range hands {
			src := persistence.HandSourceRef{}
			src.HandUID = persistence.GenerateHandUID(h, src)
			batch = append(batch, persistence.PersistedHand{Hand: h, Source: src})
		}
		s.importMu.Lock()
		_, err := s.repo.UpsertHands(ctx, batch)
		s.importMu.Unlock()
		if err != nil {
			return hands, fmt.Errorf("store simulated hands: %w", err)
		}
	}
	return hands, nil
}

func (s *Service) ListHandSummaries(ctx context.Context, f persistence.HandFilter) ([]persistence.HandSummary, int, error) {
	return s.repo.ListHandSummaries(ctx, f)
}

func (s *Service) GetHandByUID(ctx context.Context, uid string) (*handhistory.Hand, error) {
	return s.repo.GetHandByUID(ctx, uid)
}

func (s *Service) PlayerTotals(ctx context.Context, f persistence.HandFilter) ([]persistence.PlayerTotal, error) {
	return s.repo.PlayerTotals(ctx, f)
}

// PlayerStats computes per-player statistics over the complete hands that
// match f, busiest players first.
func (s *Service) PlayerStats(ctx context.Context, f persistence.HandFilter) ([]*stats.Stats, error) {
	f.OnlyComplete = true
	hands, err := s.repo.ListHands(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list hands: %w", err)
	}
	return stats.Sorted(stats.NewCalculator().Calculate(hands)), nil
}
