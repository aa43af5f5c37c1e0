package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewBrickCmd создаёт группу команд для редактирования bricks.
func NewBrickCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brick",
		Short: "Edit bricks of a function",
	}

	cmd.AddCommand(
		newBrickAddCmd(clientFn, outputFn),
		newBrickMoveCmd(clientFn, outputFn),
		newBrickConfigureCmd(clientFn, outputFn),
		newBrickRemoveCmd(clientFn, outputFn),
	)

	return cmd
}

// NewBrickTypesCmd создаёт команду со списком типов bricks.
func NewBrickTypesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "brick-types",
		Short: "List available brick types",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			types, err := client.ListBrickTypes()
			if err != nil {
				return err
			}

			headers := []string{"TYPE", "INPUTS", "OUTPUTS", "DESCRIPTION"}
			rows := make([][]string, len(types))
			for i, t := range types {
				rows[i] = []string{t.Type, formatPorts(t.Inputs), formatPorts(t.Outputs), t.Description}
			}

			out.Print(headers, rows, types)
			return nil
		},
	}
}

func newBrickAddCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var brickType string
	var config []string
	var x, y float64

	cmd := &cobra.Command{
		Use:   "add FUNCTION_ID",
		Short: "Add a brick to a function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			cfg, err := parseConfig(config)
			if err != nil {
				return err
			}

			brick, err := client.AddBrick(args[0], AddBrickRequest{
				Type:     brickType,
				Config:   cfg,
				Position: Position{X: x, Y: y},
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Brick added: %s", brick.ID))
			printBrick(out, brick)
			return nil
		},
	}

	cmd.Flags().StringVar(&brickType, "type", "", "Brick type (required)")
	cmd.Flags().StringArrayVar(&config, "config", nil, `Configuration as KEY=VALUE, e.g. "Name of DB=default database" (repeatable)`)
	cmd.Flags().Float64Var(&x, "x", 0, "Canvas X position")
	cmd.Flags().Float64Var(&y, "y", 0, "Canvas Y position")
	cmd.MarkFlagRequired("type")

	return cmd
}

func newBrickMoveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var x, y float64

	cmd := &cobra.Command{
		Use:   "move FUNCTION_ID BRICK_ID",
		Short: "Move a brick on the canvas",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			brick, err := client.MoveBrick(args[0], args[1], Position{X: x, Y: y})
			if err != nil {
				return err
			}

			out.Success("Brick moved")
			printBrick(out, brick)
			return nil
		},
	}

	cmd.Flags().Float64Var(&x, "x", 0, "Canvas X position (required)")
	cmd.Flags().Float64Var(&y, "y", 0, "Canvas Y position (required)")
	cmd.MarkFlagRequired("x")
	cmd.MarkFlagRequired("y")

	return cmd
}

func newBrickConfigureCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var set []string
	var unset []string

	cmd := &cobra.Command{
		Use:   "configure FUNCTION_ID BRICK_ID",
		Short: "Update brick configuration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			cfg, err := parseConfig(set)
			if err != nil {
				return err
			}
			if cfg == nil {
				cfg = make(map[string]any)
			}
			for _, key := range unset {
				cfg[key] = nil
			}
			if len(cfg) == 0 {
				return fmt.Errorf("nothing to change: use --set or --unset")
			}

			brick, err := client.ConfigureBrick(args[0], args[1], cfg)
			if err != nil {
				return err
			}

			out.Success("Brick configured")
			printBrick(out, brick)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&set, "set", nil, "Set a field as KEY=VALUE (repeatable)")
	cmd.Flags().StringArrayVar(&unset, "unset", nil, "Remove a field (repeatable)")

	return cmd
}

func newBrickRemoveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "remove FUNCTION_ID BRICK_ID",
		Short: "Remove a brick and its connections",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			resp, err := client.RemoveBrick(args[0], args[1])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Brick removed: %s (%d connection(s) removed)", args[1], len(resp.RemovedConnections)))
			if out.jsonMode {
				out.JSON(resp)
			}
			return nil
		},
	}
}

func printBrick(out *Output, b *BrickResponse) {
	out.Print(
		[]string{"ID", "TYPE", "POSITION", "CONFIG"},
		[][]string{{b.ID, b.Type, fmt.Sprintf("%g,%g", b.Position.X, b.Position.Y), formatConfig(b.Config)}},
		b,
	)
}

// parseConfig разбирает пары KEY=VALUE. Ключ может содержать пробелы.
func parseConfig(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	cfg := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid config format %q, expected KEY=VALUE", kv)
		}
		cfg[key] = value
	}
	return cfg, nil
}
