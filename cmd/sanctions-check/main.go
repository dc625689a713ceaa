// Package main provides a utility to inspect what the appeal menu would show
// a player, straight from the sanction database.
//
// Usage:
//
//	go run ./cmd/sanctions-check -player <uuid> [options]
//
// Options:
//
//	-player <uuid>  Player user id (required)
//	-kind <kind>    serverbans, rolebans, notes or all (default all)
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/PancyStudios/AppealBotGo/internal/appeal"
	"github.com/PancyStudios/AppealBotGo/pkg/config"
	"github.com/PancyStudios/AppealBotGo/pkg/logger"
	"github.com/PancyStudios/AppealBotGo/pkg/models"
	"github.com/PancyStudios/AppealBotGo/pkg/sanctions"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run does the work of main and returns the exit code so deferred cleanup runs
func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("sanctions-check", flag.ContinueOnError)
	fs.SetOutput(stdout)
	playerFlag := fs.String("player", "", "Player user id")
	kindFlag := fs.String("kind", "all", "serverbans, rolebans, notes or all")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	playerID, err := uuid.Parse(*playerFlag)
	if err != nil {
		fmt.Fprintf(stdout, "Invalid -player: %v\n", err)
		return 2
	}

	kinds, err := selectKinds(*kindFlag)
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 2
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stdout, "Error loading configuration: %v\n", err)
		return 1
	}

	log := logger.Init(cfg.LogsDir, "", "")
	defer log.Close()

	engine, err := sanctions.ParseEngine(cfg.DatabaseEngine)
	if err != nil {
		logger.Critical(err.Error(), "SanctionsCheck")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := sanctions.Open(ctx, engine, cfg.DatabaseURL)
	if err != nil {
		logger.Critical(fmt.Sprintf("Ошибка подключения к базе наказаний: %v", err), "SanctionsCheck")
		return 1
	}
	defer store.Close()

	classifier := appeal.NewClassifier(cfg.Appeal.PermanentMarkers, cfg.Appeal.NoAppealMarkers)
	out := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	defer out.Flush()

	for _, kind := range kinds {
		records, err := load(ctx, store, kind, playerID)
		if err != nil {
			logger.Error(fmt.Sprintf("Ошибка запроса %s: %v", kind, err), "SanctionsCheck")
			return 1
		}
		printRecords(out, kind, records, classifier)
	}
	return 0
}

func selectKinds(flagValue string) ([]models.SanctionKind, error) {
	all := []models.SanctionKind{models.KindServerBan, models.KindRoleBan, models.KindNote}
	if flagValue == "all" {
		return all, nil
	}
	for _, k := range all {
		if string(k) == flagValue {
			return []models.SanctionKind{k}, nil
		}
	}
	return nil, fmt.Errorf("unknown -kind %q", flagValue)
}

func load(ctx context.Context, store *sanctions.Store, kind models.SanctionKind, playerID uuid.UUID) ([]models.Sanction, error) {
	var out []models.Sanction
	switch kind {
	case models.KindServerBan:
		rows, err := store.ActiveServerBans(ctx, playerID)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, r)
		}
	case models.KindRoleBan:
		rows, err := store.ActiveRoleBans(ctx, playerID)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, r)
		}
	case models.KindNote:
		rows, err := store.ActiveNotes(ctx, playerID)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, r)
		}
	}
	return out, nil
}

func printRecords(out *tabwriter.Writer, kind models.SanctionKind, records []models.Sanction, c *appeal.Classifier) {
	fmt.Fprintf(out, "\n== %s (%d)\n", kind, len(records))
	if len(records) == 0 {
		return
	}

	fmt.Fprintln(out, "ID\tISSUED\tEXPIRES\tADMIN\tFLAGS\tTEXT")
	for _, r := range records {
		expires := "-"
		if exp := r.ExpiresAt(); exp != nil {
			expires = exp.UTC().Format("2006-01-02 15:04")
		}
		admin := "-"
		if by := r.IssuedBy(); by.Valid {
			admin = by.UUID.String()
		}
		flags := "-"
		if kind == models.KindServerBan {
			flags = classification(c, r.Text())
		}
		fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.RecordID(), r.IssuedAt().UTC().Format("2006-01-02 15:04"), expires, admin, flags, r.Text())
	}
}

func classification(c *appeal.Classifier, text string) string {
	switch {
	case c.NoAppeal(text):
		return "БВО"
	case c.Permanent(text):
		return "ПДК"
	}
	return "-"
}
