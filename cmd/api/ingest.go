package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/salesbrain/internal/core/ingestion_engine"
	"github.com/markdave123-py/salesbrain/internal/services"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [document-id]",
	Short: "Ingest a document in the foreground",
	Long: `Ingest an uploaded document with durable, checkpointed steps, or upload
and ingest a local file in one go:

  salesbrain ingest 5b0c...            # stored document, durable run
  salesbrain ingest --product <id> --file ./pricing.pdf`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

var resumeCmd = &cobra.Command{
	Use:   "resume <document-id>",
	Short: "Resume an interrupted ingestion from its last completed step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Coordinator.Resume(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	ingestCmd.Flags().String("product", "", "product id for --file")
	ingestCmd.Flags().String("file", "", "local file to upload and ingest")
	rootCmd.AddCommand(ingestCmd, resumeCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	productID, _ := cmd.Flags().GetString("product")
	path, _ := cmd.Flags().GetString("file")
	if (len(args) == 1) == (path != "") {
		return errors.New("give either a document id or --file")
	}

	ctx := cmd.Context()
	a, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		res, err := a.Coordinator.Run(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(res)
	}

	if productID == "" {
		return errors.New("--product is required with --file")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	// no queue: the upload is ingested right here
	docs := services.NewDocumentService(a.DB, a.Objects, nil)
	doc, err := docs.Upload(ctx, productID, filepath.Base(path), "", f)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	res, err := a.Coordinator.Ingest(ctx, ingestion_engine.IngestRequest{
		DocumentID:  doc.ID,
		ProductID:   doc.ProductID,
		StoragePath: doc.StoragePath,
		FileName:    doc.FileName,
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
