package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"todo-service.com/todo-service/internal/constants"
	"todo-service.com/todo-service/internal/services"
	"todo-service.com/todo-service/internal/validators"
	model "todo-service.com/todo-service/pkg/models"
)

// newTaskCmd builds the console surface. Commands share one owner flag and run
// against the same service as the HTTP API with strict validation.
func newTaskCmd() *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks from the console",
	}
	taskCmd.PersistentFlags().String("user", "", "Owner of the tasks")
	_ = taskCmd.MarkPersistentFlagRequired("user")

	taskCmd.AddCommand(
		newTaskAddCmd(),
		newTaskListCmd(),
		newTaskShowCmd(),
		newTaskDoneCmd(),
		newTaskToggleCmd(),
		newTaskEditCmd(),
		newTaskRemoveCmd(),
		newTaskDueCmd(),
		newTaskTagCmd("tag", "Add tags to a task", services.TagsAdd),
		newTaskTagCmd("untag", "Remove tags from a task", services.TagsRemove),
		newTaskHistoryCmd(),
	)
	return taskCmd
}

func init() {
	rootCmd.AddCommand(newTaskCmd())
}

// runTasks opens the application for one console command and closes it after fn.
func runTasks(cmd *cobra.Command, fn func(ctx context.Context, tasks *services.TaskService, owner string) error) error {
	owner, _ := cmd.Flags().GetString("user")
	if owner == "" {
		return errors.New("--user is required")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, appOptions{logOutput: io.Discard})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	return fn(ctx, a.tasks.ForSource(constants.SourceCLI).WithValidator(validators.Strict), owner)
}

func newTaskAddCmd() *cobra.Command {
	var in services.TaskInput
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = strings.Join(args, " ")
			return runTasks(cmd, func(ctx context.Context, tasks *services.TaskService, owner string) error {
				task, err := tasks.CreateTask(ctx, owner, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", task.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "Task description")
	cmd.Flags().StringVarP(&in.Priority, "priority", "p", "", "high, medium or low")
	cmd.Flags().StringSliceVarP(&in.Tags, "tags", "t", nil, "Comma separated tags")
	cmd.Flags().StringVar(&in.DueDate, "due", "", "Due date, e.g. 2024-01-15T10:00:00Z")
	cmd.Flags().StringVarP(&in.Recurring, "recurring", "r", "", "daily, weekly or monthly")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var (
		status, priority, search, sortKey, order string
		tags                                     []string
		limit, offset                            int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks with filters and counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := validators.Strict
			var q services.TaskQuery
			var err error
			if q.Status, err = v.Status(status); err != nil {
				return err
			}
			if q.Priority, err = v.PriorityFilter(priority); err != nil {
				return err
			}
			if q.Sort, err = v.SortKey(sortKey); err != nil {
				return err
			}
			if q.Order, err = v.SortOrder(order); err != nil {
				return err
			}
			q.Tags = validators.Tags(tags)
			q.Search = search
			q.Limit = limit
			q.Offset = offset

			return runTasks(cmd, func(ctx context.Context, tasks *services.TaskService, owner string) error {
				page, err := tasks.ListTasks(ctx, owner, q)
				if err != nil {
					return err
				}
				writeTaskTable(cmd.OutOrStdout(), page)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "all, pending or completed")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Filter by priority")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Filter by any of these tags")
	cmd.Flags().StringVarP(&search, "search", "q", "", "Keyword in title or description")
	cmd.Flags().StringVar(&sortKey, "sort", "", "created_at, due_date, priority or title")
	cmd.Flags().StringVar(&order, "order", "", "asc or desc")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Tasks to skip")
	return cmd
}

func newTaskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, func(ctx context.Context, tasks *services.TaskService, owner string) error {
				task, err := tasks.GetTask(ctx, owner, args[0])
				if err != nil {
					return err
				}
				writeTaskDetail(cmd.OutOrStdout(), task)
				return nil
			})
		},
	}
}

func newTaskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, func(ctx context.Context, tasks *services.TaskService, owner string) error {
				result, err := tasks.CompleteTask(ctx, owner, args[0])
				if err != nil {
					return err
				}
				writeCompletion(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newTaskToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task between pending and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, func(ctx context.Context, tasks *services.TaskService, owner string) error {
				result, err := tasks.ToggleTask(ctx, owner, args[0])
				if err != nil {
					return err
				}
				writeCompletion(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newTaskEditCmd() *cobra.Command {
	var (
		title, description, priority, due, recurring string
		tags                                         []string
		clearDue                                     bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var patch services.TaskPatch
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("priority") {
				patch.Priority = &priority
			}
			if flags.Changed("tags") {
				patch.Tags = &tags
			}
			if flags.Changed("due") {
				patch.DueDate = &due
			}
			if flags.Changed("recurring") {
				patch.Recurring = &recurring
			}
			patch.ClearDueDate = clearDue

			return runTasks(cmd, func(ctx context.Context, tasks *services.TaskService, owner string) error {
				task, err := tasks.UpdateTask(ctx, owner, args[0], patch)
				if err != nil {
					return err
				}
				writeTaskDetail(cmd.OutOrStdout(), task)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "high, medium or low")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Replace all tags")
	cmd.Flags().StringVar(&due, "due", "", "New due date")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date and reminder")
	cmd.Flags().StringVarP(&recurring, "recurring", "r", "", "daily, weekly, monthly or empty for none")
	cmd.MarkFlagsMutuallyExclusive("due", "clear-due")
	return cmd
}

func newTaskRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, func(ctx context.Context, tasks *services.TaskService, owner string) error {
				if err := tasks.DeleteTask(ctx, owner, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newTaskDueCmd() *cobra.Command {
	var (
		noReminder bool
		before     int
	)
	cmd := &cobra.Command{
		Use:   "due <id> <date|none>",
		Short: "Set or clear the due date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var due *time.Time
			if raw := args[1]; raw != "none" {
				parsed, err := validators.DueDate(raw)
				if err != nil {
					return err
				}
				due = &parsed
			}
			opts := services.DueDateOptions{SetReminder: !noReminder, OffsetMinutes: before}

			return runTasks(cmd, func(ctx context.Context, tasks *services.TaskService, owner string) error {
				task, err := tasks.SetDueDate(ctx, owner, args[0], due, opts)
				if err != nil {
					return err
				}
				writeTaskDetail(cmd.OutOrStdout(), task)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noReminder, "no-reminder", false, "Store the due date without a reminder")
	cmd.Flags().IntVar(&before, "before", services.DefaultDueDateOptions().OffsetMinutes, "Reminder minutes before the due date")
	return cmd
}

func newTaskTagCmd(use, short, action string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id> <tag>...",
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, func(ctx context.Context, tasks *services.TaskService, owner string) error {
				task, err := tasks.UpdateTags(ctx, owner, args[0], action, args[1:])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tags: %s\n", strings.Join(task.Tags, ", "))
				return nil
			})
		},
	}
}

func newTaskHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the latest task operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, func(ctx context.Context, tasks *services.TaskService, owner string) error {
				entries, err := tasks.AuditTrail(ctx, owner, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tEVENT\tSOURCE\tTASK\tTITLE")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n",
						e.Timestamp.UTC().Format(time.RFC3339), e.EventType, e.Source, e.TaskID, e.TaskData["title"])
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries")
	return cmd
}

func writeTaskTable(w io.Writer, page services.TaskPage) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tDUE\tTITLE\tTAGS")
	for i := range page.Tasks {
		t := &page.Tasks[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, statusLabel(t), t.Priority, formatDue(t.DueDate), t.Title, strings.Join(t.Tags, ","))
	}
	tw.Flush()
	fmt.Fprintf(w, "\nTotal: %d  Pending: %d  Completed: %d\n", page.Total, page.PendingCount, page.CompletedCount)
}

func writeTaskDetail(w io.Writer, t *model.Task) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", t.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", t.Title)
	if t.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", t.Description)
	}
	fmt.Fprintf(tw, "Status:\t%s\n", statusLabel(t))
	fmt.Fprintf(tw, "Priority:\t%s\n", t.Priority)
	if len(t.Tags) > 0 {
		fmt.Fprintf(tw, "Tags:\t%s\n", strings.Join(t.Tags, ", "))
	}
	fmt.Fprintf(tw, "Due:\t%s\n", formatDue(t.DueDate))
	if t.ReminderAt != nil {
		fmt.Fprintf(tw, "Reminder:\t%s\n", t.ReminderAt.UTC().Format(time.RFC3339))
	}
	if t.Recurring != constants.RecurrenceNone {
		fmt.Fprintf(tw, "Recurring:\t%s\n", t.Recurring)
	}
	tw.Flush()
}

func writeCompletion(w io.Writer, result services.CompletionResult) {
	fmt.Fprintf(w, "%s is %s\n", result.Task.ID, statusLabel(result.Task))
	if result.Spawned != nil {
		fmt.Fprintf(w, "Next occurrence %s due %s\n", result.Spawned.ID, formatDue(result.Spawned.DueDate))
	}
}

func statusLabel(t *model.Task) string {
	if t.Completed {
		return "completed"
	}
	return "pending"
}

func formatDue(due *time.Time) string {
	if due == nil {
		return "-"
	}
	return due.UTC().Format(time.RFC3339)
}
