package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"task-board.com/task-board/internal/api"
	config "task-board.com/task-board/internal/configs"
	"task-board.com/task-board/internal/constants"
	"task-board.com/task-board/internal/drag"
	"task-board.com/task-board/internal/kanban"
	model "task-board.com/task-board/internal/models"
	"task-board.com/task-board/internal/mutation"
)

var boardLocal bool

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Inspect and change the board through the client cache",
}

var boardListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the board column by column",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd, func(ctx context.Context, b *kanban.Board, _ config.Config) error {
			printBoard(cmd.OutOrStdout(), b)
			return nil
		})
	},
}

var boardMoveCmd = &cobra.Command{
	Use:   "move <card-id> <column>",
	Short: "Move a card to another column",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd, func(ctx context.Context, b *kanban.Board, _ config.Config) error {
			call, err := b.Move(ctx, args[0], constants.CardStatus(args[1]))
			if err != nil {
				return err
			}
			return settle(cmd, b, call)
		})
	},
}

var (
	addTitle       string
	addDescription string
	addResponsible []string
	addStatus      string
	addPriority    string
	addDeadline    string
	addTags        []string
)

var boardAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a card",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd, func(ctx context.Context, b *kanban.Board, _ config.Config) error {
			card := model.Card{
				Title:       addTitle,
				Description: addDescription,
				Responsible: addResponsible,
				Status:      constants.CardStatus(addStatus),
				Priority:    constants.Priority(addPriority),
				Deadline:    addDeadline,
			}
			for i, name := range addTags {
				card.Tags = append(card.Tags, model.Tag{ID: fmt.Sprintf("t%d", i+1), Name: name})
			}
			call, err := b.Add(ctx, card)
			if err != nil {
				return err
			}
			return settle(cmd, b, call)
		})
	},
}

var boardDeleteCmd = &cobra.Command{
	Use:   "delete <card-id>",
	Short: "Delete a card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd, func(ctx context.Context, b *kanban.Board, _ config.Config) error {
			call, err := b.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			return settle(cmd, b, call)
		})
	},
}

var commentAuthor string

var boardCommentCmd = &cobra.Command{
	Use:   "comment <card-id> <text>",
	Short: "Append a comment to a card",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd, func(ctx context.Context, b *kanban.Board, cfg config.Config) error {
			author := commentAuthor
			if author == "" {
				author = currentUser(cfg).Identity()
			}
			call, err := b.AddComment(ctx, args[0], author, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return settle(cmd, b, call)
		})
	},
}

var boardDragCmd = &cobra.Command{
	Use:   "drag <card-id> <column>...",
	Short: "Replay a drag gesture across the given columns",
	Long: "Presses the card, moves the pointer past the activation distance, hovers each column " +
		"in order and releases. Every column change commits as it is hovered.",
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd, func(ctx context.Context, b *kanban.Board, cfg config.Config) error {
			machine := drag.New(b, drag.Options{ActivationDistance: float64(cfg.DragActivationDistance)})
			if err := machine.Press(args[0], drag.Point{}); err != nil {
				return err
			}
			machine.PointerMove(drag.Point{X: float64(cfg.DragActivationDistance) + 1})

			var calls []*mutation.Call
			for i, column := range args[1:] {
				machine.PointerMove(drag.Point{X: float64(cfg.DragActivationDistance+1) * float64(i+2)})
				call, err := machine.Over(ctx, drag.ColumnTarget{ColumnID: constants.CardStatus(column)})
				if err != nil {
					machine.Cancel()
					return err
				}
				if call != nil {
					calls = append(calls, call)
				}
			}
			machine.Release()

			for _, call := range calls {
				if err := settle(cmd, b, call); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d move(s) issued\n", len(calls))
			return nil
		})
	},
}

func withBoard(cmd *cobra.Command, fn func(ctx context.Context, b *kanban.Board, cfg config.Config) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	schema, err := config.LoadBoardSchema(cfg.BoardSchemaFile)
	if err != nil {
		return err
	}

	var cardAPI kanban.CardAPI
	if boardLocal {
		cardAPI = api.NewLocal(model.DemoCards(time.Now()), nil)
	} else {
		cardAPI = api.NewHTTPClient(cfg.APIBaseURL, api.ClientOptions{
			UserID:     currentUser(cfg).Identity(),
			HTTPClient: newHTTPClient(cfg),
		})
	}

	board, err := kanban.New(cardAPI, kanban.Options{
		Schema:          schema,
		RefreshInterval: cfg.BoardRefresh(),
		Logger:          log.StandardLogger(),
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := board.Load(ctx); err != nil {
		return err
	}
	defer board.Close(context.Background())

	return fn(ctx, board, cfg)
}

// settle waits for call and prints the board it left behind.
func settle(cmd *cobra.Command, b *kanban.Board, call *mutation.Call) error {
	if err := call.Wait(cmd.Context()); err != nil {
		return err
	}
	if call.Superseded() {
		log.WithFields(log.Fields{"kind": call.Kind, "target": call.Target}).Debug("superseded by a later call")
	}
	printBoard(cmd.OutOrStdout(), b)
	return nil
}

func printBoard(out io.Writer, b *kanban.Board) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	for _, column := range b.Columns() {
		cards := b.CardsInColumn(column.ID)
		fmt.Fprintf(w, "%s (%d)\n", column.Title, len(cards))
		for _, c := range cards {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", c.ID, c.Title, c.Priority, c.Deadline, strings.Join(c.Responsible, ","))
		}
	}
}

func init() {
	boardCmd.PersistentFlags().BoolVar(&boardLocal, "local", false, "use an in-memory board seeded with demo cards instead of the backend")

	boardAddCmd.Flags().StringVar(&addTitle, "title", "", "card title")
	boardAddCmd.Flags().StringVar(&addDescription, "description", "", "card description")
	boardAddCmd.Flags().StringSliceVar(&addResponsible, "responsible", nil, "responsible user ids")
	boardAddCmd.Flags().StringVar(&addStatus, "status", string(constants.StatusBacklog), "column")
	boardAddCmd.Flags().StringVar(&addPriority, "priority", string(constants.PriorityMedium), "priority")
	boardAddCmd.Flags().StringVar(&addDeadline, "deadline", "", "deadline (YYYY-MM-DD)")
	boardAddCmd.Flags().StringSliceVar(&addTags, "tag", nil, "tag names")
	_ = boardAddCmd.MarkFlagRequired("title")

	boardCommentCmd.Flags().StringVar(&commentAuthor, "author", "", "comment author (defaults to the configured user)")

	boardCmd.AddCommand(boardListCmd, boardMoveCmd, boardAddCmd, boardDeleteCmd, boardCommentCmd, boardDragCmd)
	rootCmd.AddCommand(boardCmd)
}
