package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/notable/internal/normalize"
)

func suggestCmd() *cobra.Command {
	var (
		threshold      float64
		minClusterSize int
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest tag normalizations based on semantically similar notes",
		Long: `Analyze notes and suggest tag normalizations based on semantic similarity.

Identifies clusters of semantically similar notes that carry different tags
and suggests standardizing them. Suggestions are displayed, never applied;
use 'notable normalize' to apply one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if cmd.Flags().Changed("similarity-threshold") {
				if threshold < 0 || threshold > 1 {
					return fmt.Errorf("similarity threshold must be in [0,1], got %v", threshold)
				}
			} else {
				threshold = cfg.Normalize.SimilarityThreshold
			}
			if !cmd.Flags().Changed("min-cluster-size") {
				minClusterSize = cfg.Normalize.MinClusterSize
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			fmt.Println("Analyzing notes and identifying similar content with different tags...")

			suggestions, err := normalize.Suggest(ctx, s, normalize.Options{
				DistanceThreshold: 1 - threshold,
				MinClusterSize:    minClusterSize,
			})
			if err != nil {
				return err
			}

			if len(suggestions) == 0 {
				fmt.Println("No tag normalization suggestions found.")
				return nil
			}

			fmt.Printf("\n--- Tag Normalization Suggestions (%d) ---\n\n", len(suggestions))
			for i, suggestion := range suggestions {
				fmt.Printf("Group #%d:\n", i+1)
				fmt.Println(suggestion.String())
				fmt.Println(strings.Repeat("-", 50))
			}
			fmt.Println("\nReview the suggestions above and run your chosen command to apply the normalization you prefer.")

			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "similarity-threshold", 0.85, "similarity threshold (0.0-1.0) for considering notes as similar")
	cmd.Flags().IntVar(&minClusterSize, "min-cluster-size", 2, "minimum number of notes in a cluster to suggest normalization")
	return cmd
}

func normalizeCmd() *cobra.Command {
	var (
		noteIDs     string
		keepTag     string
		replaceTags string
	)

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Apply a tag normalization to a set of notes",
		Long: `Apply a specific tag normalization to a set of notes.

Replaces the given tags with the keep tag across the listed notes, in one
transaction: either every note is rewritten or none is.

Example:
  notable normalize --note-ids 1,2,3 --keep-tag "python" --replace-tags "py,python3"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ids, err := parseNoteIDs(noteIDs)
			if err != nil {
				return err
			}
			replace := splitTags(replaceTags)

			fmt.Println("\n--- Tag Normalization Details ---")
			fmt.Printf("Notes to update: %s\n", noteIDs)
			fmt.Printf("Tag to keep: '%s'\n", keepTag)
			fmt.Printf("Tags to replace: %s\n", strings.Join(replace, ", "))

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			applier := normalize.NewApplier(normalize.BeginFromStore(s), slog.Default())
			result, err := applier.Apply(ctx, normalize.Request{
				NoteIDs:     ids,
				KeepTag:     keepTag,
				ReplaceTags: replace,
			})
			if err != nil {
				fmt.Println("No changes were made to the database.")
				return err
			}

			for _, id := range result.MissingNotes {
				fmt.Printf("Warning: Note ID %d not found. Skipped.\n", id)
			}

			fmt.Println("\n--- Tag Normalization Complete ---")
			fmt.Printf("Notes updated: %d\n", result.NotesUpdated)
			fmt.Printf("Tags removed: %d\n", result.LinksRemoved)
			fmt.Printf("Tags added: %d\n", result.LinksAdded)

			return nil
		},
	}

	cmd.Flags().StringVar(&noteIDs, "note-ids", "", "comma-separated list of note IDs to normalize tags for")
	cmd.Flags().StringVar(&keepTag, "keep-tag", "", "the target tag to keep and ensure all notes have")
	cmd.Flags().StringVar(&replaceTags, "replace-tags", "", "comma-separated list of tags to remove and replace with the keep tag")
	_ = cmd.MarkFlagRequired("note-ids")
	_ = cmd.MarkFlagRequired("keep-tag")
	_ = cmd.MarkFlagRequired("replace-tags")
	return cmd
}

func parseNoteIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid note id %q: use comma-separated integers", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no valid note IDs provided")
	}
	return ids, nil
}

func splitTags(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		// Tolerate quoted tags pasted from suggestion output.
		part = strings.Trim(part, `"`)
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}
