package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
)

// load checks the session and fetches the list.
func (r *runner) load(ctx context.Context) error {
	return r.app.Sync(ctx)
}

// resolve finds a todo by its 1-based index in the list, or else by id.
func (r *runner) resolve(ref string) (model.Item, error) {
	items := r.app.Todos.Items()
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(items) {
		return items[n-1], nil
	}
	if it, ok := r.app.Todos.Item(ref); ok {
		return it, nil
	}
	if _, err := strconv.Atoi(ref); err == nil {
		return model.Item{}, usagef("index out of range: have %d, got %s", len(items), ref)
	}
	return model.Item{}, usagef("no todo with id %q", ref)
}

func (r *runner) listCmd() *cobra.Command {
	var group, asJSON, offline bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List todos",
		Long: `List todos. The list is saved after every sync and shown instead
when the service cannot be reached, or on request with --offline.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var items []model.Item
			if offline {
				snap, err := r.offline()
				if err != nil {
					return err
				}
				items = snap.Items
			} else {
				err := r.load(cmd.Context())
				switch {
				case err == nil:
					items = r.app.Todos.Items()
				case app.Unreachable(err):
					snap, serr := r.app.Offline()
					if serr != nil || snap == nil {
						return err
					}
					ui.Hint(r.env.Stderr, "service unreachable; showing the list saved at "+snap.SavedAt.Local().Format(time.DateTime))
					items = snap.Items
				default:
					return err
				}
			}
			return r.printList(items, group, asJSON)
		},
	}
	cmd.Flags().BoolVarP(&group, "group", "g", false, "group output by pending/done")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the list as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "show the last synced list without contacting the service")
	return cmd
}

func (r *runner) offline() (*jsonstore.Snapshot, error) {
	snap, err := r.app.Offline()
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errors.New("no list saved yet. Run: tada ls")
	}
	return snap, nil
}

func (r *runner) printList(items []model.Item, group, asJSON bool) error {
	w := r.out()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	done := 0
	for _, it := range items {
		if it.Completed {
			done++
		}
	}
	fmt.Fprintln(w, ui.Header(done, len(items)-done))
	if len(items) > 0 {
		fmt.Fprintln(w, ui.ProgressBar(done, len(items), 20))
	}
	lines := ui.FlatLines(items)
	if group {
		lines = ui.GroupLines(items)
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return nil
}

func (r *runner) addCmd() *cobra.Command {
	var (
		photo    string
		lat, lon float64
		done     bool
	)
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a todo (title can be multiple words)",
		Example: `  tada add Buy milk
  tada add "Fix the fence" --photo fence.jpg --lat -33.45 --lon -70.66`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := r.app.RequireAuth(); err != nil {
				return err
			}
			task := app.NewTask{
				Title:     strings.Join(args, " "),
				Completed: done,
				PhotoPath: photo,
			}
			switch hasLat, hasLon := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon"); {
			case hasLat && hasLon:
				task.Location = &model.Location{Latitude: lat, Longitude: lon}
			case hasLat || hasLon:
				return usagef("--lat and --lon go together")
			}
			it, err := r.app.CreateTask(cmd.Context(), task)
			if err != nil {
				return err
			}
			ui.OK(r.out(), "added "+ui.Title(it.Title, 0)+ui.Badges(it))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&photo, "photo", "p", "", "image file to attach")
	f.Float64Var(&lat, "lat", 0, "latitude")
	f.Float64Var(&lon, "lon", 0, "longitude")
	f.BoolVar(&done, "done", false, "create the todo already completed")
	return cmd
}

func (r *runner) doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <index|id>",
		Short: "Toggle done for a todo",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.load(cmd.Context()); err != nil {
				return err
			}
			it, err := r.resolve(args[0])
			if err != nil {
				return err
			}
			updated, _, err := r.app.Todos.Toggle(cmd.Context(), it.ID)
			if err != nil {
				return err
			}
			verb := "reopened"
			if updated.Completed {
				verb = "done"
			}
			ui.OK(r.out(), verb+": "+ui.Title(updated.Title, 0))
			return nil
		},
	}
}

func (r *runner) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <index|id> <title...>",
		Short: "Change the title of a todo",
		Args:  usageArgs(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.load(cmd.Context()); err != nil {
				return err
			}
			it, err := r.resolve(args[0])
			if err != nil {
				return err
			}
			title := strings.Join(args[1:], " ")
			updated, err := r.app.Todos.Update(cmd.Context(), it.ID, model.UpdateInput{Title: &title})
			if err != nil {
				return err
			}
			ui.OK(r.out(), "renamed: "+ui.Title(updated.Title, 0))
			return nil
		},
	}
}

func (r *runner) removeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <index|id>",
		Aliases: []string{"remove"},
		Short:   "Delete a todo",
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.load(cmd.Context()); err != nil {
				return err
			}
			it, err := r.resolve(args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := r.in.confirm(r.out(), fmt.Sprintf("Delete %q?", it.Title))
				if err != nil {
					return err
				}
				if !ok {
					ui.Hint(r.out(), "cancelled")
					return nil
				}
			}
			if err := r.app.Todos.Remove(cmd.Context(), it.ID); err != nil {
				return err
			}
			ui.OK(r.out(), "removed: "+ui.Title(it.Title, 0))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (r *runner) uiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive list",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := r.app.RequireAuth(); err != nil {
				return err
			}
			timeout, err := r.app.Config.TimeoutDuration()
			if err != nil {
				return err
			}
			defer r.app.Todos.Close()
			return tui.Run(tui.Options{
				Store:   r.app.Todos,
				Timeout: timeout,
				Create: func(ctx context.Context, title string) (model.Item, error) {
					return r.app.CreateTask(ctx, app.NewTask{Title: title})
				},
			})
		},
	}
}
