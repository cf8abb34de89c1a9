package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/salesbrain/internal/core"
	"github.com/markdave123-py/salesbrain/internal/core/orchestrator"
	"github.com/markdave123-py/salesbrain/internal/core/retrieval"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the sales assistant a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		question := strings.Join(args, " ")
		res, err := a.Orchestrator.Run(cmd.Context(), []core.Message{{Role: core.RoleUser, Content: question}}, a.RunOptions())
		if err != nil {
			return err
		}
		fmt.Println(res.Text)
		fmt.Printf("\n(%d tool calls, finish: %s)\n", res.ToolCallCount, res.FinishReason)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a vector search inside one product",
	RunE: func(cmd *cobra.Command, _ []string) error {
		productID, _ := cmd.Flags().GetString("product")
		query, _ := cmd.Flags().GetString("query")
		limit, _ := cmd.Flags().GetInt("limit")
		if productID == "" || query == "" {
			return errors.New("--product and --query are required")
		}

		a, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		product, err := a.Products.Get(cmd.Context(), productID)
		if err != nil {
			return err
		}
		results, err := a.Searcher.Search(cmd.Context(), product.ID, query, retrieval.WithMatchCount(limit))
		if err != nil {
			return err
		}
		fmt.Println(retrieval.FormatSearchResults(results, product.Name))
		return nil
	},
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List products and the search tool each one exposes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		tools, err := orchestrator.BuildTools(cmd.Context(), a.DB, a.Searcher)
		if err != nil {
			return err
		}
		if tools.Len() == 0 {
			fmt.Println("no products")
			return nil
		}
		for _, name := range tools.Names() {
			t, _ := tools.Get(name)
			fmt.Printf("%s\t%s\t%s\n", t.Product.ID, t.Product.Name, name)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().String("product", "", "product id")
	searchCmd.Flags().String("query", "", "search text")
	searchCmd.Flags().Int("limit", retrieval.DefaultMatchCount, "maximum results")
	rootCmd.AddCommand(askCmd, searchCmd, productsCmd)
}
