package config

import (
	"errors"
	"flag"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type TgBot struct {
	TelegramApiToken string `toml:"telegram_apitoken"`
	Debug            bool   `toml:"debug"`
}

type Postgres struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	DBName   string `toml:"dbname"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	MaxConns int32  `toml:"max_conns"`
}

type Storage struct {
	Driver     string   `toml:"driver"`
	SqliteFile string   `toml:"sqlite_file"`
	Postgres   Postgres `toml:"postgres"`
}

type Auth struct {
	Token      string        `toml:"token"`
	Expiration time.Duration `toml:"expiration"`
}

type Server struct {
	Address      string  `toml:"address"`
	TgBotEnabled bool    `toml:"tg_bot_enabled"`
	Debug        bool    `toml:"debug_mode"`
	LogLevel     string  `toml:"log_level"`
	SeedFile     string  `toml:"seed_file"`
	Storage      Storage `toml:"storage"`
	Auth         Auth    `toml:"auth"`
}

type Config struct {
	TgBot  TgBot
	Server Server
}

var (
	serverConfigPath = flag.String("server-config", "configs/server.toml", "server config file")
	botConfigPath    = flag.String("bot-config", "configs/bot.toml", "telegram bot config file")
)

// New reads both config files. Values from the environment (and a .env file
// if present) take precedence over the files.
func New() (Config, error) {
	if !flag.Parsed() {
		flag.Parse()
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	return Load(*serverConfigPath, *botConfigPath)
}

func Load(serverPath, botPath string) (Config, error) {
	serverCfg := Server{
		Address:  ":3000",
		LogLevel: "info",
		Storage:  Storage{Driver: DriverMemory},
		Auth:     Auth{Expiration: 24 * time.Hour},
	}
	_, err := toml.DecodeFile(serverPath, &serverCfg)
	if err != nil {
		return Config{}, err
	}
	if token := os.Getenv("EVENTHUB_AUTH_TOKEN"); token != "" {
		serverCfg.Auth.Token = token
	}
	if password := os.Getenv("EVENTHUB_DB_PASSWORD"); password != "" {
		serverCfg.Storage.Postgres.Password = password
	}
	switch serverCfg.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return Config{}, errors.New("unknown storage driver " + serverCfg.Storage.Driver)
	}

	var tgBotCfg TgBot
	if serverCfg.TgBotEnabled {
		_, err = toml.DecodeFile(botPath, &tgBotCfg)
		if err != nil {
			return Config{}, err
		}
	}
	if token := os.Getenv("TELEGRAM_APITOKEN"); token != "" {
		tgBotCfg.TelegramApiToken = token
	}

	return Config{
		TgBot:  tgBotCfg,
		Server: serverCfg,
	}, nil
}
