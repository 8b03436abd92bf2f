package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/rlqty/internal/domain"
)

// ReferenceDateLayout is the accepted format for reference dates.
const ReferenceDateLayout = "2006-01-02"

type Config struct {
	Server   ServerConfig
	Planner  PlannerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Drive    DriveConfig
	App      AppConfig
	Cache    CacheConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	AllowedOrigins []string
	RateLimit      string
	MaxUploadMB    int64
}

type PlannerConfig struct {
	Cycles        int
	ReferenceDate string
	ElapsedMode   string
	ClampNegative bool
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	Driver         string
	MaxConcurrency int64
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Region    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsJSON string
	CredentialsFile string
	FolderID        string
	FolderPath      string
}

type AppConfig struct {
	DataDir     string
	DownloadDir string
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	ReportTTL     int
}

type LogConfig struct {
	Level  string
	Format string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults(viper.GetViper())

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = fromViper(viper.GetViper())
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_REQUEST_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER_RATE_LIMIT", "20-M")
	v.SetDefault("SERVER_MAX_UPLOAD_MB", 32)
	v.SetDefault("PLANNER_CYCLES", 4)
	v.SetDefault("PLANNER_REFERENCE_DATE", "")
	v.SetDefault("PLANNER_ELAPSED_MODE", string(domain.ElapsedCoverage))
	v.SetDefault("PLANNER_CLAMP_NEGATIVE", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "rlqty")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_MAX_CONCURRENCY", 4)
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_PREFIX", "replenishment/")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("DRIVE_CREDENTIALS_JSON", "")
	v.SetDefault("DRIVE_CREDENTIALS_FILE", "")
	v.SetDefault("APP_DATA_DIR", "./data/output")
	v.SetDefault("APP_DOWNLOAD_DIR", "./data/downloads")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_REPORT_TTL_SECONDS", 300)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			RequestTimeout: v.GetInt("SERVER_REQUEST_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			RateLimit:      v.GetString("SERVER_RATE_LIMIT"),
			MaxUploadMB:    v.GetInt64("SERVER_MAX_UPLOAD_MB"),
		},
		Planner: PlannerConfig{
			Cycles:        v.GetInt("PLANNER_CYCLES"),
			ReferenceDate: v.GetString("PLANNER_REFERENCE_DATE"),
			ElapsedMode:   v.GetString("PLANNER_ELAPSED_MODE"),
			ClampNegative: v.GetBool("PLANNER_CLAMP_NEGATIVE"),
		},
		Database: DatabaseConfig{
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			DBName:         v.GetString("DB_NAME"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			Driver:         v.GetString("DB_DRIVER"),
			MaxConcurrency: v.GetInt64("DB_MAX_CONCURRENCY"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsJSON: v.GetString("DRIVE_CREDENTIALS_JSON"),
			CredentialsFile: v.GetString("DRIVE_CREDENTIALS_FILE"),
			FolderID:        v.GetString("DRIVE_FOLDER_ID"),
			FolderPath:      v.GetString("DRIVE_FOLDER_PATH"),
		},
		App: AppConfig{
			DataDir:     v.GetString("APP_DATA_DIR"),
			DownloadDir: v.GetString("APP_DOWNLOAD_DIR"),
		},
		Cache: CacheConfig{
			Enabled:       v.GetBool("CACHE_ENABLED"),
			RedisURL:      v.GetString("REDIS_URL"),
			RedisHost:     v.GetString("REDIS_HOST"),
			RedisPort:     v.GetString("REDIS_PORT"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			ReportTTL:     v.GetInt("CACHE_REPORT_TTL_SECONDS"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

// Options turns the planner section into run options. An empty reference
// date resolves to now's calendar date.
func (p PlannerConfig) Options(now time.Time) (domain.PlanOptions, error) {
	ref, err := ParseReferenceDate(p.ReferenceDate, now)
	if err != nil {
		return domain.PlanOptions{}, err
	}
	return domain.PlanOptions{
		ReferenceDate: ref,
		Cycles:        p.Cycles,
		ElapsedMode:   domain.ElapsedMode(strings.ToLower(strings.TrimSpace(p.ElapsedMode))),
		ClampNegative: p.ClampNegative,
	}, nil
}

// ParseReferenceDate parses a YYYY-MM-DD date, or returns now's date when s is blank.
func ParseReferenceDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	}
	ref, err := time.Parse(ReferenceDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reference date %q, want %s", s, ReferenceDateLayout)
	}
	return ref, nil
}

// DSN builds a lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
