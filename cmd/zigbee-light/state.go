package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sweeney/zigbee-light/internal/config"
	"github.com/sweeney/zigbee-light/internal/status"
	"github.com/sweeney/zigbee-light/internal/zcl"
	"github.com/sweeney/zigbee-light/internal/zigbee"
)

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the button level and stored network, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			hw, err := openHardware(cfg.GPIO)
			if err != nil {
				return err
			}
			defer hw.Close()

			level, err := hw.button.Level()
			if err != nil {
				return fmt.Errorf("read button: %w", err)
			}
			printf(cmd, "Button: %s\n", stateString(level == 0))
			return printNetwork(cmd, cfg)
		},
	}
}

func forgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget",
		Short: "Clear the stored network so the next run commissions from scratch",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(); err != nil {
				return fmt.Errorf("clear credentials: %w", err)
			}
			printf(cmd, "Network credentials cleared\n")
			return nil
		},
	}
}

func openStore(cfg *config.Config) (*zigbee.CredentialStore, error) {
	if cfg.Zigbee.StorePath == "" {
		return nil, errors.New("zigbee.store_path is not set")
	}
	store, err := zigbee.OpenCredentialStore(cfg.Zigbee.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	return store, nil
}

func printNetwork(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.Zigbee.StorePath == "" {
		printf(cmd, "Network: none (not persisted)\n")
		return nil
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	creds, err := store.Load()
	if errors.Is(err, zigbee.ErrNoCredentials) {
		printf(cmd, "Network: none\n")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	printf(cmd, "Network: channel %d, pan_id %s, ext_pan_id %s\n",
		creds.Channel, status.FormatPanID(creds.PanID), zcl.FormatExtPanID(creds.ExtPanID))
	return nil
}
