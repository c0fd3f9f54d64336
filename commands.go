package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CrestNiraj12/tapestry/domain"
	"github.com/CrestNiraj12/tapestry/infra/cache"
	"github.com/CrestNiraj12/tapestry/infra/config"
	"github.com/CrestNiraj12/tapestry/infra/editor"
	"github.com/CrestNiraj12/tapestry/infra/host"
	"github.com/CrestNiraj12/tapestry/infra/logging"
	"github.com/CrestNiraj12/tapestry/infra/storage"
	"github.com/CrestNiraj12/tapestry/tui"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tapestry",
		Short: "Tapestry merges feeds from many sites into one timeline",
		Long: `Tapestry runs connectors against the feeds listed in feeds.yaml and
shows their items in a single terminal timeline.

Built-in connectors: rss, jsonfeed, mastodon. Script connectors are loaded
from the connectors directory under the data dir.`,
		Args:          cobra.NoArgs,
		RunE:          runView,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = strings.TrimSpace(versionString())
	root.SetVersionTemplate("{{.Version}}\n")

	root.AddCommand(
		&cobra.Command{
			Use:   "view",
			Short: "Open the timeline viewer",
			Args:  cobra.NoArgs,
			RunE:  runView,
		},
		newVerifyCmd(),
		newLoadCmd(),
		newListCmd(),
		&cobra.Command{
			Use:   "feeds",
			Short: "List configured feeds",
			Args:  cobra.NoArgs,
			RunE:  runFeeds,
		},
		&cobra.Command{
			Use:   "connectors",
			Short: "List available connectors",
			Args:  cobra.NoArgs,
			RunE:  runConnectors,
		},
		newStoreCmd(),
		newEditCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprint(cmd.OutOrStdout(), versionString())
			},
		},
	)
	return root
}

func runView(cmd *cobra.Command, args []string) error {
	return withEnv(true, func(e *env) error {
		uiState, err := config.LoadUIState(e.cfg.UIStatePath())
		if err != nil {
			e.logger.Warn("ignoring unreadable ui state", zap.Error(err))
		}
		rootModel := tui.NewApp(tui.Deps{
			Timeline:  e.timeline(),
			StatePath: e.cfg.UIStatePath(),
			State:     uiState,
		})
		p := tea.NewProgram(rootModel, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		_, err = p.Run()
		return err
	})
}

func newVerifyCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "verify <feed>",
		Short: "Check that a feed's connector can reach its site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(true, func(e *env) error {
				feed, err := config.FindFeed(e.feeds, args[0])
				if err != nil {
					return err
				}
				v, err := e.runner.Verify(cmd.Context(), feed)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, v)
				}
				fmt.Fprintf(out, "name:     %s\n", v.DisplayName)
				if v.Icon != "" {
					fmt.Fprintf(out, "icon:     %s\n", v.Icon)
				}
				if v.BaseURL != "" {
					fmt.Fprintf(out, "base url: %s\n", v.BaseURL)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the verification as JSON")
	return cmd
}

type loadReport struct {
	Feed     string        `json:"feed"`
	Run      string        `json:"run"`
	Complete bool          `json:"complete"`
	Error    string        `json:"error,omitempty"`
	Elapsed  string        `json:"elapsed"`
	Items    []domain.Item `json:"items"`
}

func newLoadCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "load [feed...]",
		Short: "Load feeds now and store their items",
		Long: `Load runs each named feed (every feed when none is named), stores the
items in the cache and prints them. It fails when no feed produced an item.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(true, func(e *env) error {
				feeds, err := e.selectFeeds(args)
				if err != nil {
					return err
				}
				results, err := e.runner.LoadAll(cmd.Context(), feeds)
				if err != nil {
					return err
				}
				return reportLoad(cmd, e, results, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func reportLoad(cmd *cobra.Command, e *env, results []host.Result, asJSON bool) error {
	out := cmd.OutOrStdout()
	total := 0
	var errs []error
	reports := make([]loadReport, 0, len(results))
	for _, res := range results {
		total += len(res.Items)
		if len(res.Items) > 0 {
			if _, err := e.cache.Save(cmd.Context(), res.Feed.Name, res.Items); err != nil {
				return fmt.Errorf("saving %s: %w", res.Feed.Name, err)
			}
		}
		r := loadReport{
			Feed:     res.Feed.Name,
			Run:      res.RunID,
			Complete: res.Complete,
			Elapsed:  res.Elapsed.Round(time.Millisecond).String(),
			Items:    res.Items,
		}
		if r.Items == nil {
			r.Items = []domain.Item{}
		}
		if res.Err != nil {
			r.Error = res.Err.Error()
			errs = append(errs, res.Err)
		}
		reports = append(reports, r)
	}

	if asJSON {
		if err := writeJSON(out, reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			status := fmt.Sprintf("%d items", len(r.Items))
			if r.Error != "" {
				status += ", error: " + r.Error
			} else if !r.Complete {
				status += ", incomplete"
			}
			fmt.Fprintf(out, "%s: %s (%s)\n", r.Feed, status, r.Elapsed)
			for _, it := range r.Items {
				fmt.Fprintf(out, "  %s  %s\n", it.Date.Local().Format("2006-01-02 15:04"), itemLabel(it))
			}
		}
	}

	if total == 0 {
		return errors.Join(append([]error{domain.ErrNoResults}, errs...)...)
	}
	return nil
}

func newListCmd() *cobra.Command {
	var (
		asJSON bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list [feed]",
		Short: "List cached items, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(false, func(e *env) error {
				q := cache.Query{Limit: limit}
				if len(args) == 1 {
					q.Feed = args[0]
				}
				entries, err := e.cache.List(cmd.Context(), q)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					if entries == nil {
						entries = []domain.Entry{}
					}
					return writeJSON(out, entries)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, en := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", en.Item.Date.Local().Format("2006-01-02 15:04"), en.Feed, itemLabel(en.Item))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of entries")
	return cmd
}

func runFeeds(cmd *cobra.Command, args []string) error {
	return withEnv(true, func(e *env) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tCONNECTOR\tSITE")
		for _, f := range e.feeds {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, e.registry.DisplayName(f.Connector), f.Site)
		}
		return tw.Flush()
	})
}

func runConnectors(cmd *cobra.Command, args []string) error {
	return withEnv(false, func(e *env) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME")
		for _, id := range e.registry.IDs() {
			fmt.Fprintf(tw, "%s\t%s\n", id, e.registry.DisplayName(id))
		}
		return tw.Flush()
	})
}

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect or edit a feed's connector storage",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <feed> <key>",
			Short: "Print a stored value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStoreFeed(args[0], func(e *env, feed domain.Feed) error {
					v, ok, err := e.store.Scope(feed.Name).GetItem(args[1])
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("key %q: %w", args[1], domain.ErrNotFound)
					}
					fmt.Fprintln(cmd.OutOrStdout(), v)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set <feed> <key> <value>",
			Short: "Store a value",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStoreFeed(args[0], func(e *env, feed domain.Feed) error {
					return e.store.Scope(feed.Name).SetItem(args[1], &args[2])
				})
			},
		},
		&cobra.Command{
			Use:   "delete <feed> <key>",
			Short: "Remove a stored value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStoreFeed(args[0], func(e *env, feed domain.Feed) error {
					return e.store.Scope(feed.Name).SetItem(args[1], nil)
				})
			},
		},
		&cobra.Command{
			Use:   "keys <feed>",
			Short: "List stored keys",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStoreFeed(args[0], func(e *env, feed domain.Feed) error {
					keys, err := e.store.Keys(feed.Name)
					if err != nil {
						return err
					}
					for _, k := range keys {
						fmt.Fprintln(cmd.OutOrStdout(), k)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear <feed>",
			Short: "Remove every stored value of a feed",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStoreFeed(args[0], func(e *env, feed domain.Feed) error {
					return e.store.Scope(feed.Name).ClearItems()
				})
			},
		},
	)
	return cmd
}

func withStoreFeed(name string, fn func(*env, domain.Feed) error) error {
	return withEnv(true, func(e *env) error {
		feed, err := config.FindFeed(e.feeds, name)
		if err != nil {
			return err
		}
		return fn(e, feed)
	})
}

const feedsTemplate = `feeds:
  - name: example
    connector: rss
    site: https://blog.example/feed.xml
`

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit feeds.yaml in $EDITOR",
		Long: `Edit opens the feeds file in $EDITOR. The result is checked before it
replaces the current file, so a mistake never leaves a broken config behind.`,
		Args: cobra.NoArgs,
		RunE: runEdit,
	}
}

func runEdit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogPath())
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	current, err := os.ReadFile(cfg.FeedsPath)
	var previous []domain.Feed
	switch {
	case errors.Is(err, os.ErrNotExist):
		current = []byte(feedsTemplate)
	case err != nil:
		return err
	default:
		previous, _ = config.ParseFeeds(current, nil)
	}

	ed := editor.NewEnvEditor(editor.FeedsHeader, "feeds-*.yaml")
	c, path, err := ed.Cmd(string(current))
	if err != nil {
		return err
	}
	c.Stdin, c.Stdout, c.Stderr = cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()
	if err := c.Run(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("editor: %w", err)
	}
	edited, err := ed.ReadContent(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if edited == strings.TrimSpace(string(current)) {
		fmt.Fprintln(out, "No changes.")
		return nil
	}
	feeds, err := config.ParseFeeds([]byte(edited), knownConnector(loadRegistry(cfg, logger)))
	if err != nil {
		return fmt.Errorf("feeds not saved: %w", err)
	}
	if err := config.WriteFeeds(cfg.FeedsPath, []byte(edited+"\n")); err != nil {
		return err
	}
	logger.Info("feeds file updated", zap.String("path", cfg.FeedsPath), zap.Int("feeds", len(feeds)))
	fmt.Fprintf(out, "Saved %d feeds to %s\n", len(feeds), cfg.FeedsPath)

	removed, err := forgetRemovedFeeds(cmd.Context(), cfg, previous, feeds)
	if err != nil {
		logger.Warn("data of removed feeds kept", zap.Error(err))
	}
	if len(removed) > 0 {
		fmt.Fprintf(out, "Removed cached items and storage of %s\n", strings.Join(removed, ", "))
	}
	return nil
}

// forgetRemovedFeeds drops the cached items and connector storage of feeds
// that were configured before, or still have cached items, but are no longer
// in feeds.
func forgetRemovedFeeds(ctx context.Context, cfg config.Config, previous, feeds []domain.Feed) ([]string, error) {
	items, err := cache.Open(cfg.CachePath())
	if err != nil {
		return nil, err
	}
	defer items.Close()
	store, err := storage.OpenBolt(cfg.StorePath())
	if err != nil {
		return nil, err
	}
	defer store.Close()

	cached, err := items.Feeds(ctx)
	if err != nil {
		return nil, err
	}
	keep := make(map[string]bool, len(feeds))
	for _, f := range feeds {
		keep[f.Name] = true
	}
	candidates := cached
	for _, f := range previous {
		candidates = append(candidates, f.Name)
	}

	var removed []string
	for _, name := range candidates {
		if keep[name] {
			continue
		}
		keep[name] = true
		if err := items.DeleteFeed(ctx, name); err != nil {
			return removed, err
		}
		if err := store.Scope(name).ClearItems(); err != nil {
			return removed, err
		}
		removed = append(removed, name)
	}
	return removed, nil
}

func itemLabel(it domain.Item) string {
	if it.Title != "" {
		return it.Title
	}
	return it.URI
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
