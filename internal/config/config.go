// Пакет config — загрузка и валидация конфигурации Society Backend
// из переменных окружения (с опциональным .env файлом).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Провайдеры объектного хранилища.
const (
	ProviderOSS   = "oss"
	ProviderLocal = "local"
)

// Config содержит все параметры конфигурации Society Backend.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Размер пула pgxpool
	DBMaxConns        int
	DBMinConns        int
	DBMaxConnLifetime time.Duration

	// --- Объектное хранилище ---

	// Провайдер: oss или local
	StorageProvider string
	// Публичный базовый URL объектов (для OSS по умолчанию https://{bucket}.{endpoint})
	StoragePublicBaseURL string

	// Aliyun OSS. Пустые credentials не ошибка конфигурации:
	// файловый сервис сообщит о недоступности при инициализации.
	OSSEndpoint        string
	OSSAccessKeyID     string
	OSSAccessKeySecret string
	OSSBucket          string

	// Директория данных локального провайдера
	LocalDataDir string

	// Максимальный размер загружаемого файла в байтах
	MaxUploadSize int64

	// --- Папки по категориям ---

	Folders FolderConfig

	// --- Кэш метаданных файлов ---

	FileCacheSize int
	FileCacheTTL  time.Duration

	// --- Image proxy ---

	ProxyTimeout     time.Duration
	ProxyCacheMaxAge time.Duration

	// --- Очистка осиротевших файлов ---

	OrphanSweepEnabled  bool
	OrphanSweepSchedule string
	OrphanGracePeriod   time.Duration
	OrphanDryRun        bool

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration
	DephealthIsEntry       bool
	// URL health endpoint хранилища (HTTP-проверка); пусто — хранилище не мониторится
	DephealthStorageURL string

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// FolderConfig — идентификаторы папок (префиксы ключей) для категорий загрузки.
// Пустое значение категории означает загрузку в Root.
type FolderConfig struct {
	Root              string
	OfficeBearer      string
	Newsletter        string
	Application       string
	PaymentScreenshot string
	Gallery           string
}

// Load загружает конфигурацию из переменных окружения.
// Перед чтением переменных подгружает .env (SB_ENV_FILE), если файл существует;
// уже заданные переменные окружения не перезаписываются.
func Load() (*Config, error) {
	if err := loadEnvFile(getEnvDefault("SB_ENV_FILE", ".env")); err != nil {
		return nil, fmt.Errorf("SB_ENV_FILE: %w", err)
	}

	cfg := &Config{}
	var err error

	// --- Сервер ---

	// SB_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("SB_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("SB_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SB_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SB_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SB_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("SB_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SB_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("SB_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SB_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("SB_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SB_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("SB_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SB_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("SB_DB_HOST")
	if err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("SB_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("SB_DB_PORT: %w", err)
	}
	cfg.DBName, err = getEnvRequired("SB_DB_NAME")
	if err != nil {
		return nil, err
	}
	cfg.DBUser, err = getEnvRequired("SB_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("SB_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("SB_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("SB_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}
	cfg.DBMaxConns, err = getEnvInt("SB_DB_MAX_CONNS", 10)
	if err != nil || cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("SB_DB_MAX_CONNS: ожидается целое число >= 1")
	}
	cfg.DBMinConns, err = getEnvInt("SB_DB_MIN_CONNS", 0)
	if err != nil || cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("SB_DB_MIN_CONNS: ожидается целое число от 0 до SB_DB_MAX_CONNS (%d)", cfg.DBMaxConns)
	}
	cfg.DBMaxConnLifetime, err = getEnvDuration("SB_DB_MAX_CONN_LIFETIME", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SB_DB_MAX_CONN_LIFETIME: %w", err)
	}

	// --- Объектное хранилище ---

	cfg.StorageProvider = getEnvDefault("SB_STORAGE_PROVIDER", ProviderOSS)
	cfg.OSSEndpoint = strings.TrimRight(getEnvDefault("SB_OSS_ENDPOINT", ""), "/")
	cfg.OSSAccessKeyID = getEnvDefault("SB_OSS_ACCESS_KEY_ID", "")
	cfg.OSSAccessKeySecret = getEnvDefault("SB_OSS_ACCESS_KEY_SECRET", "")
	cfg.OSSBucket = getEnvDefault("SB_OSS_BUCKET", "")
	cfg.LocalDataDir = getEnvDefault("SB_LOCAL_DATA_DIR", "./data")

	switch cfg.StorageProvider {
	case ProviderOSS:
		cfg.StoragePublicBaseURL = getEnvDefault("SB_STORAGE_PUBLIC_BASE_URL", ossPublicBase(cfg.OSSBucket, cfg.OSSEndpoint))
	case ProviderLocal:
		cfg.StoragePublicBaseURL = getEnvDefault("SB_STORAGE_PUBLIC_BASE_URL",
			fmt.Sprintf("http://localhost:%d/storage", cfg.Port))
	default:
		return nil, fmt.Errorf("SB_STORAGE_PROVIDER: недопустимое значение %q, допустимые: oss, local", cfg.StorageProvider)
	}
	cfg.StoragePublicBaseURL = strings.TrimRight(cfg.StoragePublicBaseURL, "/")
	if cfg.StoragePublicBaseURL != "" {
		if _, err := url.ParseRequestURI(cfg.StoragePublicBaseURL); err != nil {
			return nil, fmt.Errorf("SB_STORAGE_PUBLIC_BASE_URL: некорректный URL %q", cfg.StoragePublicBaseURL)
		}
	}

	maxUpload, err := getEnvInt("SB_MAX_UPLOAD_SIZE", 20<<20)
	if err != nil {
		return nil, fmt.Errorf("SB_MAX_UPLOAD_SIZE: %w", err)
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("SB_MAX_UPLOAD_SIZE: значение должно быть > 0")
	}
	cfg.MaxUploadSize = int64(maxUpload)

	// --- Папки по категориям ---

	cfg.Folders = FolderConfig{
		Root:              cleanFolder(getEnvDefault("SB_FOLDER_ROOT", "society")),
		OfficeBearer:      cleanFolder(getEnvDefault("SB_FOLDER_OFFICE_BEARER", "")),
		Newsletter:        cleanFolder(getEnvDefault("SB_FOLDER_NEWSLETTER", "")),
		Application:       cleanFolder(getEnvDefault("SB_FOLDER_APPLICATION", "")),
		PaymentScreenshot: cleanFolder(getEnvDefault("SB_FOLDER_PAYMENT_SCREENSHOT", "")),
		Gallery:           cleanFolder(getEnvDefault("SB_FOLDER_GALLERY", "")),
	}
	if cfg.Folders.Root == "" {
		return nil, fmt.Errorf("SB_FOLDER_ROOT: значение не может быть пустым")
	}

	// --- Кэш метаданных файлов ---

	cfg.FileCacheSize, err = getEnvInt("SB_FILE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("SB_FILE_CACHE_SIZE: %w", err)
	}
	if cfg.FileCacheSize < 1 {
		return nil, fmt.Errorf("SB_FILE_CACHE_SIZE: значение должно быть > 0")
	}
	cfg.FileCacheTTL, err = getEnvDuration("SB_FILE_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SB_FILE_CACHE_TTL: %w", err)
	}

	// --- Image proxy ---

	cfg.ProxyTimeout, err = getEnvDuration("SB_PROXY_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SB_PROXY_TIMEOUT: %w", err)
	}
	cfg.ProxyCacheMaxAge, err = getEnvDuration("SB_PROXY_CACHE_MAX_AGE", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SB_PROXY_CACHE_MAX_AGE: %w", err)
	}

	// --- Очистка осиротевших файлов ---

	cfg.OrphanSweepEnabled, err = getEnvBool("SB_ORPHAN_SWEEP_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("SB_ORPHAN_SWEEP_ENABLED: %w", err)
	}
	cfg.OrphanSweepSchedule = getEnvDefault("SB_ORPHAN_SWEEP_SCHEDULE", "@every 6h")
	cfg.OrphanGracePeriod, err = getEnvDuration("SB_ORPHAN_GRACE_PERIOD", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SB_ORPHAN_GRACE_PERIOD: %w", err)
	}
	cfg.OrphanDryRun, err = getEnvBool("SB_ORPHAN_DRY_RUN", false)
	if err != nil {
		return nil, fmt.Errorf("SB_ORPHAN_DRY_RUN: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("SB_DEPHEALTH_GROUP", "society")
	cfg.DephealthCheckInterval, err = getEnvDuration("SB_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SB_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthIsEntry, err = getEnvBool("SB_DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("SB_DEPHEALTH_ISENTRY: %w", err)
	}
	cfg.DephealthStorageURL = getEnvDefault("SB_DEPHEALTH_STORAGE_URL", "")
	if cfg.DephealthStorageURL != "" {
		if _, err := url.ParseRequestURI(cfg.DephealthStorageURL); err != nil {
			return nil, fmt.Errorf("SB_DEPHEALTH_STORAGE_URL: некорректный URL %q", cfg.DephealthStorageURL)
		}
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("SB_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SB_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения (для лейблов topologymetrics, без пароля).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// loadEnvFile подгружает переменные из .env файла. Отсутствие файла не ошибка.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("ошибка чтения %s: %w", path, err)
}

// ossPublicBase формирует публичный URL бакета: https://{bucket}.{endpoint}.
func ossPublicBase(bucket, endpoint string) string {
	if bucket == "" || endpoint == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s", bucket, host)
}

// cleanFolder убирает пробелы и крайние слэши из префикса папки.
func cleanFolder(s string) string {
	return strings.Trim(strings.TrimSpace(s), "/")
}

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
