package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/canonical/maas-sub008/internal/api"
	"github.com/canonical/maas-sub008/internal/config"
	"github.com/canonical/maas-sub008/internal/repository"
	"github.com/canonical/maas-sub008/internal/zonefile"
	"github.com/canonical/maas-sub008/internal/zonegen"
)

func main() {
	cfg := config.NewConfig()

	root := &cobra.Command{
		Use:          "maasdns",
		Short:        "DNS zone generation for the machine inventory",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the inventory database")
	root.PersistentFlags().StringVar(&cfg.MAASURL, "maas-url", cfg.MAASURL, "URL this controller is reachable at")
	root.PersistentFlags().Uint32Var(&cfg.DefaultTTL, "default-ttl", cfg.DefaultTTL, "default record TTL (0 uses the built-in default)")

	root.AddCommand(serveCommand(cfg), generateCommand(cfg))

	if err := root.Execute(); err != nil {
		log.Fatalf("maasdns: %v", err)
	}
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory and zone-preview API",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := cfg.InitializeDatabase()
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()

			controllerHost, err := cfg.ControllerHost()
			if err != nil {
				return err
			}

			r := chi.NewRouter()
			r.Use(middleware.Logger)
			r.Use(middleware.Recoverer)

			a := api.NewAPI(db, controllerHost, cfg.DefaultTTL)
			a.RegisterRoutes(r)

			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				if _, err := fmt.Fprintln(w, "maasdns is running"); err != nil {
					log.Printf("failed to write response: %v", err)
				}
			})

			log.Printf("Starting maasdns on :%s", cfg.Port)
			return http.ListenAndServe(":"+cfg.Port, r)
		},
	}
	cmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	return cmd
}

func generateCommand(cfg *config.Config) *cobra.Command {
	var serial uint32
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate zone files from the stored inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := cfg.InitializeDatabase()
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()

			controllerHost, err := cfg.ControllerHost()
			if err != nil {
				return err
			}

			provider := repository.NewMappingRepository(db)
			domains, err := provider.Domains(cmd.Context())
			if err != nil {
				return err
			}
			subnets, err := repository.NewSubnetRepository(db).FindAll(cmd.Context())
			if err != nil {
				return err
			}

			generator := zonegen.New(provider, zonegen.NetResolver{}, zonegen.Params{
				Domains:        domains,
				Subnets:        subnets,
				Serial:         serial,
				DefaultTTL:     cfg.DefaultTTL,
				ControllerHost: controllerHost,
			})
			zones, err := generator.GenerateZones(cmd.Context())
			if err != nil {
				return err
			}

			dir := cfg.ZoneDirectory()
			if err := zonefile.WriteZones(dir, zones); err != nil {
				return err
			}
			log.Printf("Wrote %d zones to %s", len(zones), dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.ZoneDir, "zone-dir", cfg.ZoneDir, "directory to write zone files into")
	cmd.Flags().Uint32Var(&serial, "serial", 1, "SOA serial to stamp on every zone")
	return cmd
}
