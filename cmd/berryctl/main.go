package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag      string
	actorFlag    string
	overrideFlag bool

	rootCmd = &cobra.Command{
		Use:   "berryctl",
		Short: "CLI client for the berry memory REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:4111", "Berry service base URL")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "Actor identity for visibility checks")
	rootCmd.PersistentFlags().BoolVar(&overrideFlag, "admin-override", false, "Request administrative override")

	createCmd := &cobra.Command{
		Use:   "create [content]",
		Short: "Create a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			memType, _ := cmd.Flags().GetString("type")
			visibility, _ := cmd.Flags().GetString("visibility")
			sharedWith, _ := cmd.Flags().GetStringSlice("share-with")
			tags, _ := cmd.Flags().GetStringSlice("tag")
			refs, _ := cmd.Flags().GetStringSlice("ref")
			return runCreate(apiFlag, createParams{
				Content:    args[0],
				Type:       memType,
				CreatedBy:  actorFlag,
				Visibility: visibility,
				SharedWith: sharedWith,
				Tags:       tags,
				References: refs,
			}, os.Stdout)
		},
	}
	createCmd.Flags().StringP("type", "t", "", "Memory type (question, request, information)")
	createCmd.Flags().String("visibility", "", "Visibility (private, shared, public)")
	createCmd.Flags().StringSlice("share-with", nil, "Agent names granted read access")
	createCmd.Flags().StringSlice("tag", nil, "Tags to attach")
	createCmd.Flags().StringSlice("ref", nil, "Referenced memory IDs")
	rootCmd.AddCommand(createCmd)

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Fetch one memory by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(apiFlag, args[0], actorFlag, overrideFlag, os.Stdout)
		},
	}
	rootCmd.AddCommand(getCmd)

	rmCmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(apiFlag, args[0], actorFlag, overrideFlag, os.Stdout)
		},
	}
	rootCmd.AddCommand(rmCmd)

	shareCmd := &cobra.Command{
		Use:   "share [id]",
		Short: "Change a memory's visibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			visibility, _ := cmd.Flags().GetString("visibility")
			sharedWith, _ := cmd.Flags().GetStringSlice("with")
			if actorFlag == "" {
				return fmt.Errorf("--actor required to change visibility")
			}
			return runShare(apiFlag, args[0], visibility, sharedWith, actorFlag, overrideFlag, os.Stdout)
		},
	}
	shareCmd.Flags().String("visibility", "shared", "Target visibility (private, shared, public)")
	shareCmd.Flags().StringSlice("with", nil, "Agent names granted read access")
	rootCmd.AddCommand(shareCmd)

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search memories",
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("query")
			memType, _ := cmd.Flags().GetString("type")
			createdBy, _ := cmd.Flags().GetString("created-by")
			tags, _ := cmd.Flags().GetStringSlice("tag")
			refs, _ := cmd.Flags().GetStringSlice("ref")
			limit, _ := cmd.Flags().GetInt("limit")
			return runSearch(apiFlag, searchParams{
				Query:      query,
				Type:       memType,
				CreatedBy:  createdBy,
				Tags:       tags,
				References: refs,
				Limit:      limit,
			}, actorFlag, overrideFlag, os.Stdout)
		},
	}
	searchCmd.Flags().StringP("query", "q", "", "Similarity query text")
	searchCmd.Flags().StringP("type", "t", "", "Filter by memory type")
	searchCmd.Flags().String("created-by", "", "Filter by creator")
	searchCmd.Flags().StringSlice("tag", nil, "Filter by tags (any match)")
	searchCmd.Flags().StringSlice("ref", nil, "Filter by referenced IDs (any match)")
	searchCmd.Flags().IntP("limit", "n", 10, "Maximum results")
	rootCmd.AddCommand(searchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
