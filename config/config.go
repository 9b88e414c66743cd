package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fleet-analytics-api/analytics"
	"fleet-analytics-api/models"
)

const dateLayout = "2006-01-02"

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Dataset     DatasetConfig
	Access      AccessConfig
	Analytics   AnalyticsConfig
	RiskFactors []models.RiskFactor
}

type ServerConfig struct {
	Port        int
	MaxUploadMB int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type CORSConfig struct {
	AllowedOrigins string
}

type LogConfig struct {
	Level  string
	Format string
}

// Dataset sources for the default table set.
const (
	SourceWorkbook = "workbook"
	SourcePostgres = "postgres"
)

type DatasetConfig struct {
	Source string
	Path   string
	Watch  bool
}

// AccessConfig guards session creation. An empty KeyHash leaves it open.
type AccessConfig struct {
	KeyHash string
}

type AnalyticsConfig struct {
	EmptyQuantile         float64
	WindowStart           time.Time
	WindowEnd             time.Time
	TopNDefault           int
	TopNMin               int
	TopNMax               int
	EfficientCombinations int
	PreviewRows           int
	ImpactJoin            string
}

type fileConfig struct {
	Analytics   analyticsFileConfig `yaml:"analytics"`
	RiskFactors []models.RiskFactor `yaml:"risk_factors"`
}

type analyticsFileConfig struct {
	EmptyQuantile         *float64 `yaml:"empty_quantile"`
	WindowStart           string   `yaml:"window_start"`
	WindowEnd             string   `yaml:"window_end"`
	TopNDefault           *int     `yaml:"top_n_default"`
	TopNMin               *int     `yaml:"top_n_min"`
	TopNMax               *int     `yaml:"top_n_max"`
	EfficientCombinations *int     `yaml:"efficient_combinations"`
	PreviewRows           *int     `yaml:"preview_rows"`
	ImpactJoin            string   `yaml:"impact_join"`
}

// LoadConfig reads an optional .env file, then the optional YAML file named
// by CONFIG_PATH, then the environment. Later sources win.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	maxUpload, err := getIntEnv("MAX_UPLOAD_MB", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err)
	}
	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	redisEnabled, err := getBoolEnv("REDIS_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_ENABLED: %w", err)
	}
	expiry, err := getIntEnv("JWT_EXPIRY_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_HOURS: %w", err)
	}
	watch, err := getBoolEnv("DATASET_WATCH", true)
	if err != nil {
		return nil, fmt.Errorf("invalid DATASET_WATCH: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        serverPort,
			MaxUploadMB: maxUpload,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "fleet"),
			Password: getEnv("DB_PASSWORD", "fleet_dev_password"),
			Name:     getEnv("DB_NAME", "fleet"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  redisEnabled,
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "fleet-dev-secret"),
			ExpiryHours: expiry,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Dataset: DatasetConfig{
			Source: getEnv("DATASET_SOURCE", SourceWorkbook),
			Path:   getEnv("DATASET_PATH", "Viajes.xlsx"),
			Watch:  watch,
		},
		Access: AccessConfig{
			KeyHash: getEnv("ACCESS_KEY_HASH", ""),
		},
		Analytics:   defaultAnalytics(),
		RiskFactors: defaultRiskFactors(),
	}

	if err := cfg.applyFile(getEnv("CONFIG_PATH", "config/config.yaml")); err != nil {
		return nil, err
	}
	if err := cfg.applyAnalyticsEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultAnalytics() AnalyticsConfig {
	return AnalyticsConfig{
		EmptyQuantile:         analytics.DefaultEmptyQuantile,
		WindowStart:           analytics.DefaultWindow.Start,
		WindowEnd:             analytics.DefaultWindow.End,
		TopNDefault:           10,
		TopNMin:               3,
		TopNMax:               20,
		EfficientCombinations: analytics.DefaultEfficientCombinations,
		PreviewRows:           20,
		ImpactJoin:            string(analytics.InnerJoin),
	}
}

func defaultRiskFactors() []models.RiskFactor {
	return []models.RiskFactor{
		{Variable: "Nombre Cliente_EMBOTELLADORAS BEPENSA", Importance: 0.085},
		{Variable: "Peso_prom_ruta", Importance: 0.072},
		{Variable: "Nombre Cliente_NUEVA WAL MART DE MEXICO", Importance: 0.061},
		{Variable: "Duración_horas", Importance: 0.058},
		{Variable: "Semana", Importance: 0.048},
		{Variable: "Mes", Importance: 0.043},
		{Variable: "Tractocamión_T541", Importance: 0.038},
		{Variable: "Nombre Cliente_INDUSTRIA ENVASADORA DE QUERETARO", Importance: 0.036},
		{Variable: "Tractocamión_T575", Importance: 0.027},
		{Variable: "Ruta_WM CEDIS VILLAHERMOSA SECOS/PENSION SALINAS CRUZ", Importance: 0.026},
		{Variable: "Tractocamión_T620", Importance: 0.021},
		{Variable: "Ruta_BB CANCUN PLANTA/BB PLAYA DEL CARMEN", Importance: 0.019},
		{Variable: "Ruta_BB CAMPECHE OTE/BB PACABTUN", Importance: 0.017},
		{Variable: "Ruta_BB PACABTUN/BB PROGRESO", Importance: 0.015},
		{Variable: "Tractocamión_T600", Importance: 0.014},
	}
}

// applyFile merges the YAML file at path. A missing file is not an error.
func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	a := &c.Analytics
	f := fc.Analytics
	if f.EmptyQuantile != nil {
		a.EmptyQuantile = *f.EmptyQuantile
	}
	if f.WindowStart != "" {
		if a.WindowStart, err = time.Parse(dateLayout, f.WindowStart); err != nil {
			return fmt.Errorf("invalid window_start: %w", err)
		}
	}
	if f.WindowEnd != "" {
		if a.WindowEnd, err = time.Parse(dateLayout, f.WindowEnd); err != nil {
			return fmt.Errorf("invalid window_end: %w", err)
		}
	}
	setInt(&a.TopNDefault, f.TopNDefault)
	setInt(&a.TopNMin, f.TopNMin)
	setInt(&a.TopNMax, f.TopNMax)
	setInt(&a.EfficientCombinations, f.EfficientCombinations)
	setInt(&a.PreviewRows, f.PreviewRows)
	if f.ImpactJoin != "" {
		a.ImpactJoin = f.ImpactJoin
	}
	if len(fc.RiskFactors) > 0 {
		c.RiskFactors = fc.RiskFactors
	}
	return nil
}

func (c *Config) applyAnalyticsEnv() error {
	if v := os.Getenv("EMPTY_QUANTILE"); v != "" {
		q, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid EMPTY_QUANTILE: %w", err)
		}
		c.Analytics.EmptyQuantile = q
	}
	if v := os.Getenv("IMPACT_JOIN"); v != "" {
		c.Analytics.ImpactJoin = strings.ToLower(v)
	}
	return nil
}

func (c *Config) validate() error {
	a := c.Analytics
	if a.EmptyQuantile < 0 || a.EmptyQuantile > 1 {
		return fmt.Errorf("empty quantile %v outside [0,1]", a.EmptyQuantile)
	}
	if a.WindowEnd.Before(a.WindowStart) {
		return fmt.Errorf("window end %s before start %s", a.WindowEnd.Format(dateLayout), a.WindowStart.Format(dateLayout))
	}
	if a.TopNMin < 1 || a.TopNMin > a.TopNDefault || a.TopNDefault > a.TopNMax {
		return fmt.Errorf("top-n bounds must satisfy 1 <= min <= default <= max, got %d/%d/%d", a.TopNMin, a.TopNDefault, a.TopNMax)
	}
	switch a.ImpactJoin {
	case "inner", "left":
	default:
		return fmt.Errorf("unknown impact join %q", a.ImpactJoin)
	}
	switch c.Dataset.Source {
	case SourceWorkbook, SourcePostgres:
	default:
		return fmt.Errorf("unknown dataset source %q", c.Dataset.Source)
	}
	if a.PreviewRows < 0 || a.EfficientCombinations < 0 {
		return fmt.Errorf("preview rows and efficient combinations must not be negative")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}
