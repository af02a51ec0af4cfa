package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/KarpovAlexandrGo/task-tracker/internal/client/api"
	"github.com/KarpovAlexandrGo/task-tracker/internal/client/store"
	"github.com/KarpovAlexandrGo/task-tracker/internal/client/view"
	"github.com/KarpovAlexandrGo/task-tracker/internal/entity"
	"github.com/KarpovAlexandrGo/task-tracker/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// session: store, подключённый к серверу, и загруженный список задач.
type session struct {
	store *store.Store
	cmd   *cobra.Command
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Terminal client for the Task Manager API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Configure(v.GetString("log-level"), "text"); err != nil {
				return err
			}
			logger.Log.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("api", api.DefaultBaseURL, "Task API base URL (env TASKCTL_API)")
	pf.String("log-level", "warn", "Log level for diagnostics on stderr")
	_ = v.BindPFlag("api", pf.Lookup("api"))
	_ = v.BindPFlag("log-level", pf.Lookup("log-level"))
	v.SetEnvPrefix("TASKCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(
		newListCmd(v),
		newAddCmd(v),
		newToggleCmd(v),
		newDeleteCmd(v),
	)
	return root
}

// open загружает задачи; каждая команда начинается с этого шага.
func open(cmd *cobra.Command, v *viper.Viper) (*session, error) {
	s := store.New(api.New(v.GetString("api")))
	s.Subscribe(func(st store.State) {
		logger.Log.WithField("status", st.Status).Debug("Store state changed")
	})
	if err := s.FetchTasks(cmd.Context()); err != nil {
		logger.Log.WithError(err).Error("Failed to fetch tasks")
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	return &session{store: s, cmd: cmd}, nil
}

func (s *session) render(filter view.Filter, key view.SortKey) error {
	return view.RenderState(s.cmd.OutOrStdout(), s.store.State(), filter, key, time.Now())
}

func newListCmd(v *viper.Viper) *cobra.Command {
	var search, priority, category, sortKey string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := view.Filter{Search: search}
			var err error
			if filter.Priority, err = view.ParsePriorityFilter(priority); err != nil {
				return err
			}
			if filter.Category, err = view.ParseCategoryFilter(category); err != nil {
				return err
			}
			key, err := view.ParseSortKey(sortKey)
			if err != nil {
				return err
			}

			s, err := open(cmd, v)
			if err != nil {
				return err
			}
			return s.render(filter, key)
		},
	}

	f := cmd.Flags()
	f.StringVar(&search, "search", "", "Case-insensitive text to find in title or description")
	f.StringVar(&priority, "priority", view.All, "Priority filter: All, Low, Medium or High")
	f.StringVar(&category, "category", view.All, "Category filter: All, Personal, Work, Shopping or Others")
	f.StringVar(&sortKey, "sort", string(view.SortByCreatedAt), "Sort by: createdAt, dueDate or priority")
	return cmd
}

func newAddCmd(v *viper.Viper) *cobra.Command {
	form := view.NewForm()
	var priority, category string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := view.ParsePriorityFilter(priority)
			if err != nil || p == view.All {
				return fmt.Errorf("unknown priority %q", priority)
			}
			c, err := view.ParseCategoryFilter(category)
			if err != nil || c == view.All {
				return fmt.Errorf("unknown category %q", category)
			}
			form.Priority = entity.Priority(p)
			form.Category = entity.Category(c)

			in, err := form.Input()
			if err != nil {
				return err
			}

			s, err := open(cmd, v)
			if err != nil {
				return err
			}
			if _, err := s.store.AddTask(cmd.Context(), in); err != nil {
				logger.Log.WithError(err).Error("Failed to add task")
				return fmt.Errorf("failed to add task: %w", err)
			}
			form.Reset()
			return s.render(view.DefaultFilter(), view.SortByCreatedAt)
		},
	}

	f := cmd.Flags()
	f.StringVar(&form.Title, "title", "", "Task title (required)")
	f.StringVar(&form.Description, "description", "", "Task description")
	f.StringVar(&priority, "priority", string(entity.PriorityMedium), "Low, Medium or High")
	f.StringVar(&category, "category", string(entity.CategoryOthers), "Personal, Work, Shopping or Others")
	f.StringVar(&form.DueDate, "due", "", "Due date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newToggleCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip the completion status of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			s, err := open(cmd, v)
			if err != nil {
				return err
			}

			task, ok := findTask(s.store.State().Tasks, id)
			if !ok {
				return fmt.Errorf("task %s not found", id)
			}
			if _, err := s.store.ToggleTask(cmd.Context(), id, !task.Status); err != nil {
				logger.Log.WithError(err).WithField("task_id", id).Error("Failed to update task")
				return fmt.Errorf("failed to update task: %w", err)
			}
			return s.render(view.DefaultFilter(), view.SortByCreatedAt)
		},
	}
}

func newDeleteCmd(v *viper.Viper) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			s, err := open(cmd, v)
			if err != nil {
				return err
			}

			if !yes && !confirm(cmd, "Are you sure you want to delete this task?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
				return s.render(view.DefaultFilter(), view.SortByCreatedAt)
			}

			if err := s.store.DeleteTask(cmd.Context(), id); err != nil {
				logger.Log.WithError(err).WithField("task_id", id).Error("Failed to delete task")
				return fmt.Errorf("failed to delete task: %w", err)
			}
			return s.render(view.DefaultFilter(), view.SortByCreatedAt)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func findTask(tasks []entity.Task, id string) (entity.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return entity.Task{}, false
}

func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
