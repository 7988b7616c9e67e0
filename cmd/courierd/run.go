/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"courier/internal/config"
	"courier/internal/data"
	"courier/internal/handler"
	"courier/internal/keys"
	"courier/internal/nlog"
	"courier/internal/receive"
	"courier/internal/relay"
)

// daemon bundles everything runCmd and fetchHistoryCmd need to wire up.
type daemon struct {
	cfg      *config.Config
	logger   *nlog.DaemonLogger
	storage  *data.StorageManager
	notifier *data.Notifier
	keypair  *keys.Keypair
	keyring  *keys.Keyring
	client   *relay.Client
	receiver *receive.Receiver
}

// buildDaemon assembles the full receive stack from the environment
// configuration. The caller owns shutdown: stop the receiver, close the
// relay client, then cancel the logger context.
func buildDaemon(ctx context.Context) (*daemon, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	logger, err := nlog.NewDaemonLogger(cfg.LogDir, "courierd", cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	go logger.Run(ctx)

	pipelineLog, err := logger.RegisterSubsystem("pipeline")
	if err != nil {
		return nil, err
	}
	relayLog, err := logger.RegisterSubsystem("relay")
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", cfg.DatabasePath, err)
	}

	storage, err := data.NewStorageManager(db)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	keypair, err := keys.EnsureKeypair(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("identity key: %w", err)
	}
	keyring, err := keys.NewKeyring(keypair, cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("keyring: %w", err)
	}

	client, err := relay.NewClient(cfg.RelayAddress, relayLog)
	if err != nil {
		return nil, fmt.Errorf("relay %q: %w", cfg.RelayAddress, err)
	}

	notifier := data.NewNotifier()
	receiver := receive.NewReceiver(client, keyring, storage, notifier, pipelineLog, cfg.PipelineOptions())

	return &daemon{
		cfg:      cfg,
		logger:   logger,
		storage:  storage,
		notifier: notifier,
		keypair:  keypair,
		keyring:  keyring,
		client:   client,
		receiver: receiver,
	}, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the receive daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := buildDaemon(ctx)
			if err != nil {
				return err
			}
			defer d.client.Close()

			httpLog, err := d.logger.RegisterSubsystem("http")
			if err != nil {
				return err
			}

			if err := d.receiver.Start(d.keypair.PublicHex()); err != nil {
				return fmt.Errorf("start receiver: %w", err)
			}
			defer d.receiver.Stop()

			api := handler.NewAPIServer(d.keyring, d.receiver, d.storage, httpLog)
			return api.Run(ctx, &handler.APIConfig{
				ListenAddr:   d.cfg.ListenAddr,
				SecretKey:    d.cfg.SessionKey,
				ReadTimeout:  d.cfg.ReadTimeout,
				WriteTimeout: d.cfg.WriteTimeout,
			})
		},
	}
}

func fetchHistoryCmd() *cobra.Command {
	var sinceHours int

	cmd := &cobra.Command{
		Use:   "fetch-history",
		Short: "Backfill stored messages from the relay, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := buildDaemon(ctx)
			if err != nil {
				return err
			}
			defer d.client.Close()

			if err := d.receiver.Start(d.keypair.PublicHex()); err != nil {
				return fmt.Errorf("start receiver: %w", err)
			}
			defer d.receiver.Stop()

			var since time.Time
			if sinceHours > 0 {
				since = time.Now().Add(-time.Duration(sinceHours) * time.Hour)
			}

			accepted, err := d.receiver.FetchHistory(ctx, since)
			if err != nil {
				return err
			}
			fmt.Printf("accepted %d new messages\n", accepted)
			return nil
		},
	}

	cmd.Flags().IntVar(&sinceHours, "since-hours", 0, "how far back to query; 0 uses the configured default window")
	return cmd
}

func genkeyCmd() *cobra.Command {
	var keyPath string

	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Create the identity key file if missing and print the public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			keypair, err := keys.EnsureKeypair(keyPath)
			if err != nil {
				return err
			}
			fmt.Println(keypair.PublicHex())
			return nil
		},
	}

	cmd.Flags().StringVar(&keyPath, "key", "identity.pem", "path of the identity key file")
	return cmd
}
