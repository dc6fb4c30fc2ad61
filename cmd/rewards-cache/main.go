// Command rewards-cache is a small CLI over the catalog cache: it can
// list the catalog, show card details, search, resolve card artwork, and
// manage profiles from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/nexuus/creditcard-sub000/internal/app"
	"github.com/nexuus/creditcard-sub000/internal/cards"
	"github.com/nexuus/creditcard-sub000/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.toml (default ~/.rewards-cache/config.toml)")
	flag.Usage = usage
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.App.DebugMode {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx := context.Background()
	service, err := app.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return nil
	}

	switch args[0] {
	case "catalog":
		return printCatalog(ctx, service, false)
	case "refresh":
		return printCatalog(ctx, service, true)
	case "detail":
		if len(args) < 2 {
			return fmt.Errorf("usage: detail <card-id>")
		}
		return printDetail(ctx, service, args[1])
	case "search":
		if len(args) < 2 {
			return fmt.Errorf("usage: search <term>")
		}
		return printSearch(ctx, service, args[1])
	case "image":
		if len(args) < 3 {
			return fmt.Errorf("usage: image <card-id> <output-file>")
		}
		data := service.ResolveImage(ctx, args[1])
		return os.WriteFile(args[2], data, 0o644)
	case "profiles":
		return printProfiles(service)
	case "switch":
		if len(args) < 2 {
			return fmt.Errorf("usage: switch <profile-id>")
		}
		owned, err := service.SwitchProfile(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("switched; %d owned cards loaded\n", len(owned))
		return nil
	case "clear":
		if err := service.ClearAllCaches(ctx); err != nil {
			return err
		}
		fmt.Println("caches cleared")
		return nil
	case "backup":
		dir := ""
		if len(args) > 1 {
			dir = args[1]
		}
		path, err := service.Backup(dir)
		if err != nil {
			return err
		}
		fmt.Println("backup written to", path)
		return nil
	case "export":
		if len(args) < 3 {
			return fmt.Errorf("usage: export <file> <password>")
		}
		if err := service.ExportProfiles(args[1], args[2]); err != nil {
			return err
		}
		fmt.Println("profiles exported to", args[1])
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printCatalog(ctx context.Context, service *app.Service, refresh bool) error {
	var catalog []cards.CardSummary
	var err error
	if refresh {
		catalog, err = service.ForceRefreshCatalog(ctx)
	} else {
		catalog, err = service.GetCatalog(ctx)
	}
	if err != nil && len(catalog) == 0 {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tISSUER\tNAME\tCATEGORY\tFEE")
	for _, card := range catalog {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t$%.0f\n", card.ID, card.Issuer, card.Name, card.Category, card.AnnualFee)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if lastErr := service.LastError(); lastErr != nil {
		fmt.Fprintln(os.Stderr, "warning: showing cached or sample data:", lastErr)
	}
	return nil
}

func printDetail(ctx context.Context, service *app.Service, id string) error {
	detail, err := service.GetDetail(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", detail.Name, detail.Issuer)
	fmt.Printf("  category:     %s\n", detail.Category)
	fmt.Printf("  annual fee:   $%.0f\n", detail.AnnualFee)
	if detail.Network != "" {
		fmt.Printf("  network:      %s\n", detail.Network)
	}
	if detail.CreditRange != "" {
		fmt.Printf("  credit range: %s\n", detail.CreditRange)
	}
	if detail.BonusTerms != "" {
		fmt.Printf("  signup bonus: %s\n", detail.BonusTerms)
	}
	for _, bc := range detail.BonusCategories {
		fmt.Printf("  %gx %s: %s\n", bc.Multiplier, bc.Name, bc.Description)
	}
	for _, b := range detail.Benefits {
		fmt.Printf("  + %s: %s\n", b.Title, b.Description)
	}
	return nil
}

func printSearch(ctx context.Context, service *app.Service, term string) error {
	results, err := service.SearchByTerm(ctx, term)
	if err != nil {
		return err
	}
	for _, card := range results {
		fmt.Printf("%s\t%s\t%s\n", card.ID, card.Issuer, card.Name)
	}
	return nil
}

func printProfiles(service *app.Service) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tACTIVE\tOWNED CARDS")
	for _, p := range service.Profiles() {
		active := ""
		if p.IsActive {
			active = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.ID, p.Name, active, len(p.OwnedCards))
	}
	return w.Flush()
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: rewards-cache [-config path] <command>

commands:
  catalog               list the card catalog (cached when fresh)
  refresh               force a remote refresh of the catalog
  detail <card-id>      show the enriched record for one card
  search <term>         search cards by name
  image <card-id> <out> resolve card artwork and write it to a file
  profiles              list profiles
  switch <profile-id>   switch the active profile
  clear                 clear catalog, detail, and image caches
  backup [dir]          write an atomic database backup
  export <file> <pw>    export profiles, encrypted
`)
}
