// Command devtoken prints a signed bearer token for local testing.
//
//	go run ./cmd/devtoken -email ada@example.com
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/auth"
	"github.com/lalith-99/inkwell/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userFlag := flag.String("user", "", "user id (default: a new random id)")
	email := flag.String("email", "dev@example.com", "email claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	userID := uuid.New()
	if *userFlag != "" {
		if userID, err = uuid.Parse(*userFlag); err != nil {
			return fmt.Errorf("parse -user: %w", err)
		}
	}

	token, err := auth.GenerateToken(userID, *email, cfg.JWTSecret, *ttl)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "user %s\n", userID)
	fmt.Println(token)
	return nil
}
