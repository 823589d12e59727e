package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	appconfig "github.com/mohammad-safakhou/dealwatch/config"
	"github.com/mohammad-safakhou/dealwatch/internal/catalog"
	"github.com/mohammad-safakhou/dealwatch/internal/exchange"
	"github.com/mohammad-safakhou/dealwatch/internal/overlay"
	"github.com/mohammad-safakhou/dealwatch/internal/predict"
	"github.com/mohammad-safakhou/dealwatch/internal/server"
	"github.com/mohammad-safakhou/dealwatch/internal/session"
	"github.com/mohammad-safakhou/dealwatch/internal/settings"
	"github.com/mohammad-safakhou/dealwatch/internal/watcher"
)

func main() {
	var cfgPath string

	root := &cobra.Command{Use: "dealwatch"}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")

	var serveAddr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the overlay daemon: HTTP API, navigation watcher, debug session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Catalog.Validate(); err != nil {
				return err
			}
			if serveAddr == "" {
				serveAddr = cfg.Server.Address
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			prefs := settings.NewMemory(cfg.Settings)
			fetcher := catalog.New(cfg.Catalog)

			var cache exchange.Cache = exchange.NewMemory()
			if cfg.Storage.Redis.Enabled {
				client, err := exchange.Conn(ctx, cfg.Storage.Redis)
				if err != nil {
					return fmt.Errorf("connecting redis: %w", err)
				}
				defer client.Close()
				cache = exchange.NewRedis(client)
			}
			rates := exchange.NewService(cfg.Exchange, cache)
			if cfg.Exchange.APIKey != "" {
				refresher, err := exchange.NewRefresher(cfg.Exchange, rates)
				if err != nil {
					return fmt.Errorf("invalid exchange.refresh_cron: %w", err)
				}
				go refresher.Run(ctx)
			}

			mgr := session.NewManager(cfg.Session, session.Options{
				Fetcher:  fetcher,
				Settings: prefs,
			})
			feed := watcher.NewFeed()
			w := watcher.New(cfg.Watcher, feed, mgr)
			w.Watch()
			defer w.Close()

			return server.Run(serveAddr, server.Deps{
				Config:   cfg,
				Fetcher:  fetcher,
				Settings: prefs,
				Session:  mgr,
				Feed:     feed,
				Exchange: rates,
			})
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")

	price := &cobra.Command{
		Use:   "price <appid>",
		Short: "Fetch price history and prediction for one app, as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Catalog.Validate(); err != nil {
				return err
			}
			prefs := settings.NewStatic(cfg.Settings)
			fetcher := catalog.New(cfg.Catalog)

			ctx, cancel := context.WithTimeout(context.Background(), cfg.General.DefaultTimeout)
			defer cancel()

			res := fetcher.Fetch(ctx, args[0], catalog.Query{Country: prefs.Country(), Shops: prefs.Shops()})
			now := time.Now()
			var pred *predict.Prediction
			if res.Data != nil && len(res.Data.History) > 0 {
				current := res.Data.History[len(res.Data.History)-1].Amount
				pred = predict.Predict(res.Data.History, current, now)
			}
			out := overlay.Build(args[0], res, pred, prefs, now)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	ratesCmd := &cobra.Command{
		Use:   "rates <from> <to> <amount>",
		Short: "Convert an amount between currencies",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			amount, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[2])
			}
			svc := exchange.NewService(cfg.Exchange, nil)
			ctx, cancel := context.WithTimeout(context.Background(), cfg.General.DefaultTimeout)
			defer cancel()
			converted, err := svc.Convert(ctx, amount, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("%.2f %s = %.2f %s\n", amount, args[0], converted, args[1])
			return nil
		},
	}

	root.AddCommand(serve, price, ratesCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
