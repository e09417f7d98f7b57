// Command seed creates local accounts that cannot come from public sign-up
// (admins and employees) and lists the accounts in the database.
//
//	go run ./cmd/seed -admin-email ops@example.com   # password from SEED_ADMIN_PASSWORD
//	go run ./cmd/seed -demo
//	go run ./cmd/seed -list
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/shopwise/shopwise-api/config"
	"github.com/shopwise/shopwise-api/models"
	"github.com/shopwise/shopwise-api/services"
)

type options struct {
	adminEmail    string
	adminPassword string
	demo          bool
	list          bool
}

// demoUsers gives a fresh deployment one account per role
var demoUsers = []services.SeedUser{
	{Email: "admin@example.com", Password: "admin-demo-pass", FirstName: "Admin", LastName: "User", Role: models.RoleAdmin},
	{Email: "employee@example.com", Password: "employee-demo-pass", FirstName: "Employee", LastName: "User", Role: models.RoleEmployee},
	{Email: "user@example.com", Password: "customer-demo-pass", FirstName: "Customer", LastName: "User", Role: models.RoleCustomer},
}

func parseOptions(args []string, getenv func(string) string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.adminEmail, "admin-email", "", "create an admin account with this email")
	fs.StringVar(&opts.adminPassword, "admin-password", "", "admin password (defaults to $SEED_ADMIN_PASSWORD)")
	fs.BoolVar(&opts.demo, "demo", false, "create one demo account per role")
	fs.BoolVar(&opts.list, "list", false, "list every account")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.adminPassword == "" {
		opts.adminPassword = getenv("SEED_ADMIN_PASSWORD")
	}
	if opts.adminEmail == "" && !opts.demo && !opts.list {
		return options{}, errors.New("nothing to do: pass -admin-email, -demo or -list")
	}
	if opts.adminEmail != "" && opts.adminPassword == "" {
		return options{}, errors.New("-admin-email needs -admin-password or SEED_ADMIN_PASSWORD")
	}
	return opts, nil
}

func run(ctx context.Context, db *gorm.DB, opts options, out io.Writer) error {
	var seeds []services.SeedUser
	if opts.adminEmail != "" {
		seeds = append(seeds, services.SeedUser{
			Email:     opts.adminEmail,
			Password:  opts.adminPassword,
			FirstName: "Admin",
			LastName:  "User",
			Role:      models.RoleAdmin,
		})
	}
	if opts.demo {
		seeds = append(seeds, demoUsers...)
	}

	if len(seeds) > 0 {
		results, err := services.SeedUsers(ctx, db, seeds)
		if err != nil {
			return err
		}
		for _, r := range results {
			status := "exists"
			if r.Created {
				status = "created"
			}
			fmt.Fprintf(out, "%-8s %s (%s)\n", status, r.User.Email, r.User.Role)
		}
	}

	if opts.list {
		return listUsers(ctx, db, out)
	}
	return nil
}

func listUsers(ctx context.Context, db *gorm.DB, out io.Writer) error {
	users, err := services.ListUsers(ctx, db)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tACTIVE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s %s\t%s\t%t\t%s\n",
			u.ID, u.Email, u.FirstName, u.LastName, u.Role, u.IsActive, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotal users: %d\n", len(users))
	return nil
}

func main() {
	opts, err := parseOptions(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	config.SetupLogger(cfg)

	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	db := config.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	if err := run(context.Background(), db, opts, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}
}
