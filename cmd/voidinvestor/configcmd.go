package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papaburgs/voidinvestor/internal/session"
)

func newConfigCmd(a *app) *cobra.Command {
	var section string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write the credential store",
	}
	cmd.PersistentFlags().StringVar(&section, "section", "", "store section, defaults to store.section")

	sectionOr := func() string {
		if section != "" {
			return section
		}
		return a.cfg.Store.Section
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a stored value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.store.GetString(cmd.Context(), sectionOr(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.SetString(cmd.Context(), sectionOr(), args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init <token>",
		Short: "Store a token and the api url from settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.SetString(cmd.Context(), sectionOr(), session.KeyURL, a.cfg.API.BaseURL); err != nil {
				return err
			}
			return a.store.SetString(cmd.Context(), sectionOr(), session.KeyToken, args[0])
		},
	})
	return cmd
}
