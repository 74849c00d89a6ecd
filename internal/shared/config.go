package shared

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Command struct {
	Name string
	Help string
}

// DefaultCommands is the command registry shown by /help and the main menu.
var DefaultCommands = []Command{
	{"start", "Start the bot"},
	{"help", "Show help"},
	{"lowprice", "Cheapest hotels in a city"},
	{"highprice", "Most expensive hotels in a city"},
	{"bestdeal", "Cheapest hotels closest to the city centre"},
	{"history", "Your search history"},
	{"cancel", "Cancel the current search"},
}

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	BotToken    string

	StorageBackend string // mysql|memory
	MySQLDSN       string
	StateBackend   string // redis|memory
	RedisAddr      string
	RedisDB        int
	RedisPass      string

	HotelsBase      string
	HotelsHost      string
	HotelsKey       string
	Locale          string
	ProviderTimeout time.Duration
	ProviderRPS     int
	PageSize        int
	DetailWorkers   int

	MaxResults   int
	MaxImages    int
	HistoryLimit int
	CacheTTL     time.Duration
	StateTTL     time.Duration
	Commands     []Command
}

// Load reads .env (when present) and the process environment.
// A missing bot token or provider key is returned as an error; callers treat it as fatal.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg(".env could not be parsed")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		BotToken:    os.Getenv("BOT_TOKEN"),

		StorageBackend: strings.ToLower(env("STORAGE_BACKEND", "mysql")),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/hotels?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		StateBackend:   strings.ToLower(env("STATE_BACKEND", "redis")),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),

		HotelsBase:      env("HOTELS_BASE_URL", "https://hotels4.p.rapidapi.com"),
		HotelsHost:      env("HOTELS_API_HOST", "hotels4.p.rapidapi.com"),
		HotelsKey:       os.Getenv("RAPID_API_KEY"),
		Locale:          env("LOCALE", "en_US"),
		ProviderTimeout: time.Duration(atoi("PROVIDER_TIMEOUT_SECONDS", 20)) * time.Second,
		ProviderRPS:     atoi("PROVIDER_RPS", 5),
		PageSize:        atoi("PROVIDER_PAGE_SIZE", 200),
		DetailWorkers:   atoi("DETAIL_WORKERS", 4),

		MaxResults:   atoi("MAX_RESULTS", 10),
		MaxImages:    atoi("MAX_IMAGES", 10),
		HistoryLimit: atoi("HISTORY_LIST_LIMIT", 10),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		StateTTL:     time.Duration(atoi("STATE_TTL_SECONDS", 86400)) * time.Second,
		Commands:     DefaultCommands,
	}

	var missing []string
	if c.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if c.HotelsKey == "" {
		missing = append(missing, "RAPID_API_KEY")
	}
	if len(missing) > 0 {
		return c, errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	return c, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
