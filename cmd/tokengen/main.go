// Command tokengen issues a bearer token for an existing user, or creates
// the user first with -create. Meant for operators and local development;
// regular clients register over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/auth"
	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/config"
	"github.com/kalviumcommunity/S64-KushanSingh-Capstone-ChatWave/internal/store"
)

func main() {
	userID := flag.String("user", "", "user UUID to issue a token for")
	username := flag.String("username", "", "username (with -create, the user to create; otherwise a lookup)")
	email := flag.String("email", "", "email for -create")
	create := flag.Bool("create", false, "create the user before issuing the token")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	var db store.DataStore
	var err error
	if cfg.DatabaseURL != "" {
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			fatal("migration failed: %v", err)
		}
		db, err = store.NewPostgresStore(ctx, cfg.DatabaseURL)
	} else {
		db, err = store.NewSQLiteStore(ctx, cfg.SQLitePath)
	}
	if err != nil {
		fatal("store open failed: %v", err)
	}
	defer db.Close()

	var id uuid.UUID
	switch {
	case *create:
		if *username == "" {
			fatal("-create requires -username")
		}
		user, err := db.CreateUser(ctx, *username, *email)
		if err != nil {
			fatal("create user failed: %v", err)
		}
		id = user.ID
		fmt.Printf("created user %s (%s)\n", user.Username, user.ID)

	case *userID != "":
		id, err = uuid.Parse(*userID)
		if err != nil {
			fatal("invalid -user: %v", err)
		}
		user, err := db.GetUserByID(ctx, id)
		if err != nil {
			fatal("user lookup failed: %v", err)
		}
		if user == nil {
			fatal("user %s not found", id)
		}

	case *username != "":
		user, err := db.GetUserByUsername(ctx, *username)
		if err != nil {
			fatal("user lookup failed: %v", err)
		}
		if user == nil {
			fatal("user %q not found", *username)
		}
		id = user.ID

	default:
		fatal("one of -user, -username or -create is required")
	}

	token, err := auth.Mint(ctx, db, id, *ttl)
	if err != nil {
		fatal("token mint failed: %v", err)
	}

	fmt.Printf("token (valid %s): %s\n", *ttl, token)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
