package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/MrEthical07/goIAM/internal/config"
	"github.com/MrEthical07/goIAM/internal/log"
	"github.com/MrEthical07/goIAM/internal/seed"
	"github.com/MrEthical07/goIAM/store/mongostore"
)

func main() {
	var (
		email = flag.String("email", "", "superadmin email to create (optional)")
		name  = flag.String("name", "Superadmin", "superadmin display name")
	)
	flag.Parse()

	cfg, err := config.Read()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Store.MongoURI == "" {
		fmt.Fprintln(os.Stderr, "MONGODB_URI is required")
		os.Exit(2)
	}

	logger := log.New(cfg.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := mongostore.NewStore(ctx, cfg.Store.MongoURI, cfg.Store.MongoDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	res, err := seed.Run(ctx, st, seed.Options{AdminEmail: *email, AdminName: *name})
	if err != nil {
		logger.Fatal().Err(err).Msg("seed failed")
	}

	logger.Info().
		Int("parameters", res.Parameters).
		Int("permissions", res.Permissions).
		Int("roles", res.Roles).
		Bool("admin_created", res.AdminCreated).
		Msg("seed finished")

	if res.AdminCreated {
		// Printed once on stdout, never logged.
		fmt.Printf("superadmin %s created with temporary password: %s\n", *email, res.AdminPassword)
		fmt.Println("the password must be changed at first login")
	}
}
