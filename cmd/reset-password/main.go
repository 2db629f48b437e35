package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"qualistock/internal/app"
	"qualistock/internal/config"
	"qualistock/internal/logging"
	"qualistock/internal/service"
)

func main() {
	username := flag.String("username", "admin", "account to reset")
	password := flag.String("password", "", "new password, at least 6 characters")
	flag.Parse()
	if *password == "" {
		fmt.Fprintln(os.Stderr, "usage: reset-password -username admin -password <new password>")
		os.Exit(2)
	}

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg)

	// 2. Setup database
	db, err := app.OpenDatabase(cfg, logger)
	if err != nil {
		logger.Error("database unavailable", slog.Any("error", err))
		os.Exit(1)
	}

	// 3. Reset through the user service so hashing and validation match the API
	repos := app.GormRepositories(db)
	users := service.NewUserService(repos.Users, repos.Roles, repos.Privileges, repos.Checks, service.Deps{Logger: logger})
	if err := users.ResetPassword(context.Background(), *username, *password); err != nil {
		logger.Error("reset password failed", slog.String("username", *username), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("password reset", slog.String("username", *username))
}
