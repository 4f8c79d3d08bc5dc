package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"triage_server/adapter/out/persistence"
	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/core/service/dashboard"
)

// profiler is implemented by mail providers that know the signed-in address.
type profiler interface {
	Profile(ctx context.Context) (string, error)
}

func newInboxCmd(app *App) *cobra.Command {
	var category, search string

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List recent mail with stored classifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, ok := dashboard.ParseFilterCategory(category)
			if !ok {
				return fmt.Errorf("unknown category %q, expected one of %s", category, categoryList())
			}

			svc, mail, err := app.dashboard(cmd.Context())
			if err != nil {
				return err
			}
			views, err := svc.Load(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if p, ok := mail.(profiler); ok {
				if addr, err := p.Profile(cmd.Context()); err == nil {
					fmt.Fprintln(w, mutedStyle.Render("Inbox for "+addr))
				}
			}

			shown := dashboard.Filter(views, filter, search)
			fmt.Fprintln(w, renderInbox(shown))
			fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d of %d emails", len(shown), len(views))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "All", "show only this category ("+categoryList()+")")
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive match on subject or sender")
	return cmd
}

func newClassifyCmd(app *App) *cobra.Command {
	var modeName string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify every email that has no stored classification",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, ok := domain.ParseMode(modeName)
			if !ok {
				return fmt.Errorf("unknown mode %q, expected advanced, simple or batch", modeName)
			}

			svc, _, err := app.dashboard(cmd.Context())
			if err != nil {
				return err
			}
			views, err := svc.Load(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			updated, n, err := svc.ClassifyPending(cmd.Context(), views, mode)
			if errors.Is(err, dashboard.ErrNothingToClassify) {
				fmt.Fprintln(w, dashboard.NothingToClassifyMessage)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(w, renderInbox(updated))
			fmt.Fprintf(w, "Classified %d emails.\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&modeName, "mode", "m", string(dashboard.DefaultMode), "classification mode: advanced, simple or batch")
	return cmd
}

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize classifications of recent mail",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := app.dashboard(cmd.Context())
			if err != nil {
				return err
			}
			views, err := svc.Load(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStats(dashboard.ComputeStats(views)))
			return nil
		},
	}
}

func newClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget every stored classification",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.classified.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared stored classifications.")
			return nil
		},
	}
}

func newKeyCmd(app *App) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "key [openai-api-key]",
		Short: "Store the OpenAI key sent with classify requests",
		Long: `Store an OpenAI API key on this device. The server classifies with it
instead of its own key. Without arguments the current key is shown masked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch {
			case remove:
				if err := app.store.Delete(persistence.KeyOpenAIKey); err != nil {
					return err
				}
				fmt.Fprintln(w, "OpenAI key removed.")
			case len(args) == 1:
				key := strings.TrimSpace(args[0])
				if key == "" {
					return errors.New("key must not be empty")
				}
				if err := app.store.Set(persistence.KeyOpenAIKey, key); err != nil {
					return err
				}
				fmt.Fprintln(w, "OpenAI key saved.")
			default:
				key, err := app.store.Get(persistence.KeyOpenAIKey)
				if errors.Is(err, out.ErrKeyNotFound) {
					fmt.Fprintln(w, "No OpenAI key stored; the server's key is used.")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "OpenAI key: %s\n", maskKey(key))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remove, "clear", false, "remove the stored key")
	return cmd
}

func categoryList() string {
	names := make([]string, len(domain.FilterCategories))
	for i, c := range domain.FilterCategories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// maskKey keeps the first three and last four characters.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + strings.Repeat("*", len(key)-7) + key[len(key)-4:]
}
