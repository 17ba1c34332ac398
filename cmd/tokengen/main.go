package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/goserg/eventhub/auth/service"
	"github.com/goserg/eventhub/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var (
		userID int64
		ttl    time.Duration
	)
	flag.Int64Var(&userID, "user", 0, "user id the token is issued for")
	flag.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	flag.Parse()
	if userID <= 0 {
		return errors.New("-user must be a positive id")
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	key := os.Getenv("EVENTHUB_AUTH_TOKEN")
	if key == "" {
		return errors.New("EVENTHUB_AUTH_TOKEN is not set")
	}

	token, expires, err := service.New(config.Auth{Token: key, Expiration: ttl}).Generate(userID)
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintln(os.Stderr, "expires", expires.Format(time.DateTime))
	return nil
}
