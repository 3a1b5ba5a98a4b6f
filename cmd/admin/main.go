// Command admin manages the admins allowed to edit musicians
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newApp builds the command tree; created admins and tokens are printed to w
func newApp(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "admin",
		Usage:  "Create admins and mint bearer tokens for the musicians API",
		Writer: w,
		Commands: []*cli.Command{
			createCommand(),
			tokenCommand(),
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.yaml",
	}
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create an admin and print a token for it",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "name", Usage: "Display name", Required: true},
			&cli.StringFlag{Name: "email", Usage: "Unique email address", Required: true},
		},
		Action: runCreate,
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Print a fresh token for an existing admin",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "email", Usage: "Email of the admin", Required: true},
		},
		Action: runToken,
	}
}
