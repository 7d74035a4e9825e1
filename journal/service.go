package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kasuganosora/rpg2kbattle/game/session"
	"github.com/kasuganosora/rpg2kbattle/model"
	"github.com/kasuganosora/rpg2kbattle/plugin/hook"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no battle with the given ID was journaled.
var ErrNotFound = errors.New("journal: battle not found")

// hookName is the name the journal registers its handlers under.
const hookName = "journal"

// Config holds journal settings. Zero values use the defaults.
type Config struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	Logger        *zap.Logger
}

// Service writes finished battles to the database asynchronously in batches.
type Service struct {
	db        *gorm.DB
	ch        chan *model.BattleRecord
	stopCh    chan struct{}
	wg        sync.WaitGroup
	batchSize int
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a journal Service and starts its background worker.
func New(db *gorm.DB, cfg Config) *Service {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	svc := &Service{
		db:        db,
		ch:        make(chan *model.BattleRecord, cfg.QueueSize),
		stopCh:    make(chan struct{}),
		batchSize: cfg.BatchSize,
		interval:  cfg.FlushInterval,
		logger:    cfg.Logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Register journals every battle reported on the battle end hook.
func (svc *Service) Register(hc *hook.HookCenter) {
	hc.Register(hook.OnBattleEnd, 100, hookName, func(_ context.Context, _ string, data interface{}) (interface{}, error) {
		r, ok := data.(*session.Report)
		if !ok {
			return data, fmt.Errorf("journal: unexpected payload %T", data)
		}
		svc.Record(r)
		return data, nil
	})
}

// NewRecord converts a battle report into its stored form.
func NewRecord(r *session.Report) *model.BattleRecord {
	actors, _ := json.Marshal(r.ActorIDs)
	drops, _ := json.Marshal(r.Rewards.Items)
	transcript, _ := json.Marshal(r.Transcript)
	return &model.BattleRecord{
		BattleID:    r.BattleID,
		TraceID:     r.TraceID,
		Source:      r.Source,
		TroopID:     r.TroopID,
		ActorIDs:    datatypes.JSON(actors),
		Seed:        r.Seed,
		Engine:      r.Engine,
		Outcome:     r.Outcome,
		Turns:       r.Turns,
		Ticks:       r.Ticks,
		EscapeFails: r.EscapeFails,
		Exp:         r.Rewards.Exp,
		Gold:        r.Rewards.Gold,
		Drops:       datatypes.JSON(drops),
		Transcript:  datatypes.JSON(transcript),
	}
}

// Record enqueues a report for async DB write.
func (svc *Service) Record(r *session.Report) {
	select {
	case svc.ch <- NewRecord(r):
	default:
		svc.logger.Warn("journal queue full, dropping battle",
			zap.String("battle_id", r.BattleID))
	}
}

// Find loads a journaled battle.
func (svc *Service) Find(ctx context.Context, battleID string) (*model.BattleRecord, error) {
	var rec model.BattleRecord
	err := svc.db.WithContext(ctx).Where("battle_id = ?", battleID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, battleID)
	}
	if err != nil {
		return nil, fmt.Errorf("journal: find %s: %w", battleID, err)
	}
	return &rec, nil
}

// Recent returns the latest battles, newest first.
func (svc *Service) Recent(ctx context.Context, limit int) ([]model.BattleRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var recs []model.BattleRecord
	if err := svc.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	return recs, nil
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	select {
	case <-svc.stopCh:
	default:
		close(svc.stopCh)
	}
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.interval)
	defer ticker.Stop()

	batch := make([]*model.BattleRecord, 0, svc.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("journal batch write failed", zap.Int("battles", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec := <-svc.ch:
			batch = append(batch, rec)
			if len(batch) >= svc.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case rec := <-svc.ch:
					batch = append(batch, rec)
				default:
					flush()
					return
				}
			}
		}
	}
}
