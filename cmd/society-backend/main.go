// Точка входа Society Backend — сервис записей общества, файлов и заявок.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт провайдер хранилища, сервисный слой и API handlers,
// запускает фоновые задачи (очистка осиротевших файлов, topologymetrics)
// и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/society-backend/internal/api/handlers"
	"github.com/bigkaa/society-backend/internal/config"
	"github.com/bigkaa/society-backend/internal/database"
	"github.com/bigkaa/society-backend/internal/repository"
	"github.com/bigkaa/society-backend/internal/server"
	"github.com/bigkaa/society-backend/internal/service"
	"github.com/bigkaa/society-backend/internal/storage"
	"github.com/bigkaa/society-backend/internal/storage/localprovider"
	"github.com/bigkaa/society-backend/internal/storage/ossprovider"
)

// ossClientTimeout — таймаут соединения и чтения/записи клиента OSS.
const ossClientTimeout = 30 * time.Second

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Society Backend запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage_provider", cfg.StorageProvider),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repositories
	memberRepo := repository.NewMemberRepository(pool)
	committeeRepo := repository.NewCommitteeRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	galleryRepo := repository.NewGalleryRepository(pool)
	newsletterRepo := repository.NewNewsletterRepository(pool)
	noticeRepo := repository.NewNoticeRepository(pool)
	officeBearerRepo := repository.NewOfficeBearerRepository(pool)
	offlineFormRepo := repository.NewOfflineFormRepository(pool)
	applicationRepo := repository.NewApplicationRepository(pool)
	inquiryRepo := repository.NewInquiryRepository(pool)
	refsRepo := repository.NewFileReferenceRepository(pool)

	// 6. Хранилище файлов. Провайдер создаётся лениво: недоступное хранилище
	// не мешает запуску, операции с файлами вернут 503.
	var localProvider *localprovider.Provider
	var factory service.ProviderFactory
	switch cfg.StorageProvider {
	case config.ProviderLocal:
		localProvider, err = localprovider.New(cfg.LocalDataDir)
		if err != nil {
			logger.Error("Ошибка инициализации локального хранилища", slog.String("error", err.Error()))
			os.Exit(1)
		}
		factory = func() (storage.Provider, error) { return localProvider, nil }
	default:
		factory = func() (storage.Provider, error) {
			p, err := ossprovider.New(ossprovider.Config{
				Endpoint:        cfg.OSSEndpoint,
				AccessKeyID:     cfg.OSSAccessKeyID,
				AccessKeySecret: cfg.OSSAccessKeySecret,
				Bucket:          cfg.OSSBucket,
				Timeout:         ossClientTimeout,
			})
			if err != nil {
				return nil, err
			}
			return p, nil
		}
	}

	urls := storage.NewURLBuilder(cfg.StoragePublicBaseURL, cfg.StorageProvider)
	fileCache := service.NewFileInfoCache(cfg.FileCacheSize, cfg.FileCacheTTL)
	filesSvc := service.NewFileService(factory, urls, cfg.Folders, fileCache, logger)

	initCtx, cancelInit := context.WithTimeout(ctx, 10*time.Second)
	if err := filesSvc.Initialize(initCtx); err != nil {
		logger.Warn("Хранилище файлов недоступно, повторная попытка при первом обращении",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("Хранилище файлов инициализировано",
			slog.String("public_base_url", urls.Base()),
		)
	}
	cancelInit()

	// 7. Services
	svc := handlers.Services{
		Members:       service.NewMemberService(memberRepo, logger),
		Committees:    service.NewCommitteeService(committeeRepo, logger),
		Events:        service.NewEventService(eventRepo, logger),
		Gallery:       service.NewGalleryService(galleryRepo, filesSvc, logger),
		Newsletters:   service.NewNewsletterService(newsletterRepo, filesSvc, logger),
		Notices:       service.NewNoticeService(noticeRepo, filesSvc, logger),
		OfficeBearers: service.NewOfficeBearerService(officeBearerRepo, filesSvc, logger),
		OfflineForms:  service.NewOfflineFormService(offlineFormRepo, filesSvc, logger),
		Applications:  service.NewApplicationService(applicationRepo, filesSvc, logger),
		Inquiries:     service.NewInquiryService(inquiryRepo, logger),
		Files:         filesSvc,
		ImageProxy: service.NewImageProxyService(urls, cfg.StorageProvider,
			cfg.ProxyTimeout, cfg.ProxyCacheMaxAge, logger),
		Sweeper: service.NewOrphanSweeper(refsRepo, filesSvc,
			cfg.OrphanGracePeriod, cfg.OrphanDryRun, logger),
	}

	// 8. Очистка осиротевших файлов по расписанию
	if cfg.OrphanSweepEnabled {
		if err := svc.Sweeper.Start(cfg.OrphanSweepSchedule); err != nil {
			logger.Error("Ошибка запуска очистки осиротевших файлов", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		logger.Info("Очистка осиротевших файлов отключена (SB_ORPHAN_SWEEP_ENABLED=false)")
	}

	// 9. topologymetrics — мониторинг зависимостей
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "society-backend",
		Group:         cfg.DephealthGroup,
		PgConnURL:     cfg.DatabaseURL(),
		StorageURL:    cfg.DephealthStorageURL,
		CheckInterval: cfg.DephealthCheckInterval,
		IsEntry:       cfg.DephealthIsEntry,
	}, pgDB, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 10. Handlers
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), filesSvc)

	var localStorage http.Handler
	if localProvider != nil {
		localStorage = handlers.NewLocalStorageHandler(localProvider, logger)
	}
	apiHandler := handlers.NewAPIHandler(healthHandler, svc, cfg.MaxUploadSize, localStorage, logger)

	// 11. HTTP-сервер
	srv := server.New(cfg, logger, apiHandler)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. Остановка фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	svc.Sweeper.Stop()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Society Backend остановлен")
}
