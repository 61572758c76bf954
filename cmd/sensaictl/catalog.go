package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/repository"
	"github.com/sensai/sensai-backend/internal/service"
	"github.com/spf13/cobra"
)

func seedMistakeTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-mistake-types <file.json>",
		Short: "Insert or refresh mistake-type catalog entries from a JSON file",
		Long: `Reads a JSON array of {"label": ..., "description": ...} objects.
Existing labels keep their ID and get the new description. Use "-" for stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runSeedMistakeTypes,
	}
	return cmd
}

func runSeedMistakeTypes(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer f.Close()
		r = f
	}

	entries, err := parseCatalog(r)
	if err != nil {
		return err
	}

	e, err := connect(cmd.Context(), cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()

	svc := service.NewMistakeTypeService(repository.NewMistakeTypeRepository(e.pool), e.rdb)
	for i := range entries {
		if err := svc.Upsert(cmd.Context(), &entries[i]); err != nil {
			return fmt.Errorf("upsert %q: %w", entries[i].Label, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s\n", entries[i].ID, entries[i].Label)
	}
	return nil
}

// parseCatalog decodes and validates a catalog file. Labels must be unique
// ignoring case.
func parseCatalog(r io.Reader) ([]model.MistakeType, error) {
	var entries []model.MistakeType
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	seen := make(map[string]bool, len(entries))
	for i := range entries {
		entries[i].ID = 0
		entries[i].Label = strings.TrimSpace(entries[i].Label)
		entries[i].Description = strings.TrimSpace(entries[i].Description)
		if entries[i].Label == "" {
			return nil, fmt.Errorf("entry %d: label is required", i)
		}
		key := strings.ToLower(entries[i].Label)
		if seen[key] {
			return nil, fmt.Errorf("entry %d: duplicate label %q", i, entries[i].Label)
		}
		seen[key] = true
	}
	return entries, nil
}
