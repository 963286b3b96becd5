// sweeper.go — очистка осиротевших файлов во внешнем хранилище.
//
// Ссылки записей на файлы слабые: удаление записи или неудачное сохранение
// после загрузки оставляет объект без ссылок. Sweeper сравнивает объекты
// в папках хранилища с идентификаторами из всех таблиц и удаляет объекты
// без ссылок, которые старше grace period.
//
// Запускается по расписанию robfig/cron (SB_ORPHAN_SWEEP_SCHEDULE)
// с пропуском запуска, если предыдущий ещё выполняется.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"

	"github.com/bigkaa/society-backend/internal/repository"
)

// Prometheus метрики sweeper
var (
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sb_orphan_sweep_runs_total",
		Help: "Общее количество запусков очистки осиротевших файлов",
	})

	sweepDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sb_orphan_files_deleted_total",
		Help: "Общее количество удалённых осиротевших файлов",
	})

	sweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sb_orphan_sweep_errors_total",
		Help: "Общее количество ошибок очистки осиротевших файлов",
	})

	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sb_orphan_sweep_duration_seconds",
		Help:    "Длительность очистки осиротевших файлов в секундах",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
)

// sweepTimeout — предел длительности одного запуска по расписанию.
const sweepTimeout = 10 * time.Minute

// SweepResult — результат одного запуска очистки.
type SweepResult struct {
	// Scanned — количество просмотренных объектов
	Scanned int `json:"scanned"`
	// Referenced — количество объектов, на которые есть ссылки
	Referenced int `json:"referenced"`
	// Orphans — объекты без ссылок старше grace period
	Orphans []string `json:"orphans"`
	// Deleted — количество удалённых объектов (0 в режиме dry-run)
	Deleted int `json:"deleted"`
	// Errors — количество ошибок удаления
	Errors int  `json:"errors"`
	DryRun bool `json:"dryRun"`
	// Duration — длительность выполнения
	Duration time.Duration `json:"duration"`
}

// OrphanSweeper — очистка осиротевших файлов.
type OrphanSweeper struct {
	refs   repository.FileReferenceRepository
	files  *FileService
	grace  time.Duration
	dryRun bool
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex // защита от параллельного запуска RunOnce
	cron *cron.Cron
}

// NewOrphanSweeper создаёт sweeper.
func NewOrphanSweeper(
	refs repository.FileReferenceRepository,
	files *FileService,
	grace time.Duration,
	dryRun bool,
	logger *slog.Logger,
) *OrphanSweeper {
	return &OrphanSweeper{
		refs:   refs,
		files:  files,
		grace:  grace,
		dryRun: dryRun,
		logger: logger.With(slog.String("component", "orphan_sweeper")),
		now:    time.Now,
	}
}

// Start регистрирует запуск по расписанию и запускает планировщик.
func (s *OrphanSweeper) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, s.runScheduled); err != nil {
		return fmt.Errorf("расписание очистки %q: %w", schedule, err)
	}
	s.cron = c
	c.Start()

	s.logger.Info("Очистка осиротевших файлов запущена",
		slog.String("schedule", schedule),
		slog.Duration("grace_period", s.grace),
		slog.Bool("dry_run", s.dryRun),
	)
	return nil
}

// Stop останавливает планировщик и ждёт завершения текущего запуска.
func (s *OrphanSweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("Очистка осиротевших файлов остановлена")
}

func (s *OrphanSweeper) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.RunOnce(ctx, s.dryRun); err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			s.logger.Warn("Очистка пропущена: хранилище недоступно", slog.String("error", err.Error()))
			return
		}
		s.logger.Error("Ошибка очистки осиротевших файлов", slog.String("error", err.Error()))
	}
}

// RunOnce выполняет один проход очистки.
// Параллельные вызовы выполняются последовательно.
func (s *OrphanSweeper) RunOnce(ctx context.Context, dryRun bool) (*SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &SweepResult{DryRun: dryRun, Orphans: []string{}}

	if err := s.files.Initialize(ctx); err != nil {
		return nil, err
	}

	referenced, err := s.refs.ListReferencedFileIDs(ctx)
	if err != nil {
		sweepErrorsTotal.Inc()
		return nil, fmt.Errorf("получение ссылок на файлы: %w", err)
	}

	cutoff := s.now().Add(-s.grace)
	seen := make(map[string]struct{})
	for _, folder := range s.files.Folders() {
		objs, err := s.files.ListObjects(ctx, strings.TrimSuffix(folder, "/")+"/")
		if err != nil {
			sweepErrorsTotal.Inc()
			return nil, fmt.Errorf("перечисление папки %s: %w", folder, err)
		}
		for _, obj := range objs {
			if _, dup := seen[obj.Key]; dup {
				continue
			}
			seen[obj.Key] = struct{}{}
			result.Scanned++

			if _, ok := referenced[obj.Key]; ok {
				result.Referenced++
				continue
			}
			if obj.LastModified.After(cutoff) {
				continue
			}
			result.Orphans = append(result.Orphans, obj.Key)
		}
	}

	if !dryRun {
		for _, key := range result.Orphans {
			if err := s.files.Delete(ctx, key); err != nil {
				s.logger.Error("Ошибка удаления осиротевшего файла",
					slog.String("file_id", key),
					slog.String("error", err.Error()),
				)
				result.Errors++
				continue
			}
			s.logger.Debug("Осиротевший файл удалён", slog.String("file_id", key))
			result.Deleted++
		}
	}

	result.Duration = time.Since(start)

	sweepRunsTotal.Inc()
	sweepDeletedTotal.Add(float64(result.Deleted))
	sweepErrorsTotal.Add(float64(result.Errors))
	sweepDurationSeconds.Observe(result.Duration.Seconds())

	s.logger.Info("Очистка осиротевших файлов завершена",
		slog.Int("scanned", result.Scanned),
		slog.Int("orphans", len(result.Orphans)),
		slog.Int("deleted", result.Deleted),
		slog.Int("errors", result.Errors),
		slog.Bool("dry_run", dryRun),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// DryRun сообщает режим по умолчанию для запусков по расписанию.
func (s *OrphanSweeper) DryRun() bool {
	return s.dryRun
}
