package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pbaille/notable/internal/api"
	"github.com/pbaille/notable/internal/classifier"
	"github.com/pbaille/notable/internal/config"
	"github.com/pbaille/notable/internal/domain"
	"github.com/pbaille/notable/internal/embedding"
	"github.com/pbaille/notable/internal/fetcher"
	"github.com/pbaille/notable/internal/store"
)

var (
	cfgPath string
	cfg     *config.Config
)

func main() {
	// A .env next to the binary or cwd may carry GEMINI_API_KEY etc.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "notable",
		Short:         "Personal note store with semantic search and tag normalization",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			setupLogging(cfg.Log.Level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(recentCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func getStore() (*store.Store, error) {
	dir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(cfg.Database.Path, cfg.Embedding.Dimensions)
}

func getEmbedder(ctx context.Context) (*embedding.Service, error) {
	return embedding.New(ctx, cfg.Embedding)
}

func addCmd() *cobra.Command {
	var (
		title    string
		content  string
		tags     []string
		fromURL  string
		classify bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new note",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if fromURL != "" {
				page, err := fetcher.Fetch(ctx, fromURL)
				if err != nil {
					return err
				}
				if content == "" {
					content = page.Text
				}
				if title == "" {
					title = page.Title
				}
				fmt.Printf("Captured %s\n", fromURL)
			}

			if title == "" || content == "" {
				return fmt.Errorf("both --title and --content are required (or --from-url)")
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if classify {
				clf, err := classifier.New()
				if err != nil {
					fmt.Printf("(classification skipped: %v)\n", err)
				} else {
					existing, _ := s.ListTags(ctx)
					names := make([]string, len(existing))
					for i, t := range existing {
						names[i] = t.Name
					}

					fmt.Print("Classifying... ")
					result, err := clf.Classify(ctx, title, content, names)
					if err != nil {
						fmt.Printf("failed: %v\n", err)
					} else {
						fmt.Println("done")
						for _, suggestion := range result.Tags {
							tags = append(tags, suggestion.Name)
							fmt.Printf("  + %s\n", suggestion.Name)
						}
					}
				}
			}

			emb, err := getEmbedder(ctx)
			if err != nil {
				return err
			}

			vector, err := emb.Embed(ctx, content)
			if err != nil {
				return err
			}

			note, err := s.AddNote(ctx, title, content, vector, tags)
			if err != nil {
				return err
			}

			fmt.Printf("Note added successfully with ID: %d\n", note.ID)
			return printStats(ctx, s)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "title of the note")
	cmd.Flags().StringVar(&content, "content", "", "content of the note")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag for the note (repeatable)")
	cmd.Flags().StringVar(&fromURL, "from-url", "", "capture a web page as the note")
	cmd.Flags().BoolVar(&classify, "classify", false, "suggest tags automatically")
	return cmd
}

func searchCmd() *cobra.Command {
	var (
		tag   string
		limit int
		full  bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search notes by semantic similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			emb, err := getEmbedder(ctx)
			if err != nil {
				return err
			}

			vector, err := emb.Embed(ctx, query)
			if err != nil {
				return err
			}

			results, err := s.SearchSimilar(ctx, vector, limit, tag)
			if err != nil {
				return err
			}

			fmt.Printf("\n--- Search Results (%d found) ---\n", len(results))
			if len(results) == 0 {
				fmt.Println("No matching notes found.")
				return nil
			}

			for i, r := range results {
				fmt.Printf("\n%d. %s (Similarity: %.1f%%)\n", i+1, r.Note.Title, r.Similarity()*100)
				fmt.Printf("Created: %s\n", r.Note.CreatedAt.Format("2006-01-02 15:04:05"))
				if len(r.Note.Tags) > 0 {
					fmt.Printf("Tags: %s\n", strings.Join(r.Note.Tags, ", "))
				}
				fmt.Printf("\nContent:\n")
				if full {
					fmt.Println(r.Note.Content)
				} else {
					fmt.Println(truncate(r.Note.Content, 500))
				}
				fmt.Println(strings.Repeat("-", 50))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "filter results by tag")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().BoolVar(&full, "full", false, "print full note content")
	return cmd
}

func recentCmd() *cobra.Command {
	var (
		last  int
		unit  string
		tag   string
		limit int
		sort  string
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List notes created within a time range",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			since, err := rangeStart(last, unit)
			if err != nil {
				return err
			}
			if sort != "newest" && sort != "oldest" {
				return fmt.Errorf("sort must be newest or oldest, got %q", sort)
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			notes, err := s.NotesSince(ctx, since, tag, limit, sort == "oldest")
			if err != nil {
				return err
			}

			if len(notes) == 0 {
				fmt.Println("No notes found in that range.")
				return nil
			}

			for _, n := range notes {
				printNote(n, true)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&last, "last", 7, "how far back to search")
	cmd.Flags().StringVar(&unit, "unit", "days", "unit of time: days, weeks, months or years")
	cmd.Flags().StringVar(&tag, "tag", "", "filter results by tag")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of results")
	cmd.Flags().StringVar(&sort, "sort", "newest", "sort order: newest or oldest")
	return cmd
}

// rangeStart turns a count and unit into the start of the range. Months and
// years are approximated as 30 and 365 days.
func rangeStart(amount int, unit string) (time.Time, error) {
	if amount <= 0 {
		return time.Time{}, fmt.Errorf("range must be positive, got %d", amount)
	}
	now := time.Now().UTC()
	switch unit {
	case "days":
		return now.AddDate(0, 0, -amount), nil
	case "weeks":
		return now.AddDate(0, 0, -7*amount), nil
	case "months":
		return now.AddDate(0, 0, -30*amount), nil
	case "years":
		return now.AddDate(0, 0, -365*amount), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time unit %q: use days, weeks, months or years", unit)
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show note details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("note id must be an integer: %s", args[0])
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			note, err := s.GetNote(ctx, id)
			if err != nil {
				return err
			}

			printNote(*note, false)
			return nil
		},
	}
}

func printNote(n domain.Note, short bool) {
	if short {
		fmt.Printf("%-5d %s  %s\n", n.ID, n.CreatedAt.Format("2006-01-02"), truncate(n.Title, 60))
		return
	}
	fmt.Printf("ID:      %d\n", n.ID)
	fmt.Printf("Title:   %s\n", n.Title)
	fmt.Printf("Created: %s\n", n.CreatedAt.Format("2006-01-02 15:04:05"))
	if len(n.Tags) > 0 {
		fmt.Printf("Tags:    %s\n", strings.Join(n.Tags, ", "))
	}
	fmt.Printf("Content:\n%s\n", n.Content)
}

func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List all tags with usage counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			usage, err := s.TagUsage(cmd.Context())
			if err != nil {
				return err
			}

			if len(usage) == 0 {
				fmt.Println("No tags yet.")
				return nil
			}

			for _, tc := range usage {
				fmt.Printf("  - %s: %d note(s)\n", tc.Name, tc.Count)
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			return printStats(cmd.Context(), s)
		},
	}
}

func printStats(ctx context.Context, s *store.Store) error {
	stats, err := s.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\n--- Database Statistics ---")
	fmt.Printf("Total notes: %d\n", stats.TotalNotes)
	fmt.Printf("Notes created in the last 7 days: %d\n", stats.RecentNotes)
	fmt.Printf("Total unique tags: %d\n", stats.TotalTags)

	if len(stats.TagUsage) > 0 {
		fmt.Println("\nTag usage:")
		for _, tc := range stats.TagUsage {
			fmt.Printf("  - %s: %d note(s)\n", tc.Name, tc.Count)
		}
	}
	fmt.Println("---------------------------")
	return nil
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Listen = addr
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			// No defer s.Close(): the server runs until killed.

			emb, err := getEmbedder(cmd.Context())
			if err != nil {
				slog.Warn("embedding service unavailable, search and add disabled", "error", err)
				emb = nil
			}

			server := api.New(s, emb, cfg, slog.Default())
			return server.Run()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (overrides config)")
	return cmd
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
