package main

import (
	"github.com/spf13/cobra"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

var placesCmd = &cobra.Command{
	Use:     "places <dining|lodging>",
	Short:   "List dining or lodging places",
	GroupID: "directory",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := buildRuntime(cmd.Context())
		if err != nil {
			return err
		}
		places, err := r.Service.ListPlaces(cmd.Context(), visitcontent.PlaceKind(args[0]))
		if err != nil {
			return err
		}
		return printPlaces(cmd.OutOrStdout(), places)
	},
}

var landmarksCmd = &cobra.Command{
	Use:     "landmarks",
	Short:   "List landmarks",
	GroupID: "directory",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := buildRuntime(cmd.Context())
		if err != nil {
			return err
		}
		landmarks, err := r.Service.ListLandmarks(cmd.Context())
		if err != nil {
			return err
		}
		return printLandmarks(cmd.OutOrStdout(), landmarks)
	},
}
