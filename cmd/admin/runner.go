package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Aidin1998/visitante_sonoro/internal/auth"
	"github.com/Aidin1998/visitante_sonoro/internal/config"
	"github.com/Aidin1998/visitante_sonoro/internal/database"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"
)

func open(cmd *cli.Command) (*config.Config, *auth.AdminRepo, func(), error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closeDB := func() { closeGorm(db) }

	repo := auth.NewAdminRepo(db)
	if err := repo.Migrate(); err != nil {
		closeDB()
		return nil, nil, nil, fmt.Errorf("failed to migrate admins: %w", err)
	}
	return cfg, repo, closeDB, nil
}

func closeGorm(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func runCreate(ctx context.Context, cmd *cli.Command) error {
	cfg, repo, closeDB, err := open(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	admin := &auth.Admin{Name: cmd.String("name"), Email: cmd.String("email")}
	if err := repo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return printToken(cmd.Root().Writer, cfg, admin)
}

func runToken(ctx context.Context, cmd *cli.Command) error {
	cfg, repo, closeDB, err := open(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	admin, err := repo.ByEmail(ctx, cmd.String("email"))
	if err != nil {
		return fmt.Errorf("failed to find admin: %w", err)
	}
	return printToken(cmd.Root().Writer, cfg, admin)
}

func printToken(w io.Writer, cfg *config.Config, admin *auth.Admin) error {
	token, err := auth.NewTokens(cfg.Auth.JWTSecret).Issue(admin.ID, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	fmt.Fprintf(w, "admin: %s <%s>\nid:    %s\ntoken: %s\n", admin.Name, admin.Email, admin.ID, token)
	return nil
}
