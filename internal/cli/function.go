package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewFunctionCmd создаёт группу команд для управления functions.
func NewFunctionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "function",
		Short: "Manage functions",
	}

	cmd.AddCommand(
		newFunctionListCmd(clientFn, outputFn),
		newFunctionCreateCmd(clientFn, outputFn),
		newFunctionShowCmd(clientFn, outputFn),
		newFunctionDeleteCmd(clientFn, outputFn),
		newFunctionValidateCmd(clientFn, outputFn),
		newFunctionRunCmd(clientFn, outputFn),
	)

	return cmd
}

func newFunctionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List functions of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			fns, err := client.ListFunctions(projectID)
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "CREATED"}
			rows := make([][]string, len(fns))
			for i, f := range fns {
				rows[i] = []string{f.ID, f.Name, f.CreatedAt}
			}

			out.Print(headers, rows, fns)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.MarkFlagRequired("project")

	return cmd
}

func newFunctionCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var projectID string
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty function",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			fn, err := client.CreateFunction(projectID, name)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Function created: %s", fn.ID))
			out.Print(
				[]string{"ID", "PROJECT_ID", "NAME", "CREATED"},
				[][]string{{fn.ID, fn.ProjectID, fn.Name, fn.CreatedAt}},
				fn,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "Function name (required)")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newFunctionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a function with its bricks and connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			snap, err := client.GetFunction(args[0])
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(snap)
				return nil
			}

			out.Success(fmt.Sprintf("Function %s (%s)", snap.Function.Name, snap.Function.ID))

			brickRows := make([][]string, len(snap.Bricks))
			for i, b := range snap.Bricks {
				brickRows[i] = []string{
					strconv.Itoa(i),
					b.ID,
					b.Type,
					fmt.Sprintf("%g,%g", b.Position.X, b.Position.Y),
					formatConfig(b.Config),
				}
			}
			out.Table([]string{"#", "BRICK_ID", "TYPE", "POSITION", "CONFIG"}, brickRows)

			connRows := make([][]string, len(snap.Connections))
			for i, c := range snap.Connections {
				connRows[i] = []string{
					c.ID,
					c.FromBrickID + "." + c.FromPort,
					c.ToBrickID + "." + c.ToPort,
				}
			}
			out.Table([]string{"CONNECTION_ID", "FROM", "TO"}, connRows)
			return nil
		},
	}
}

func newFunctionDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteFunction(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Function deleted: %s", args[0]))
			return nil
		},
	}
}

func newFunctionValidateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate ID",
		Short: "Check that a function graph can be executed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			report, err := client.ValidateFunction(args[0])
			if err != nil {
				return err
			}

			if report.Valid {
				out.Success("Function is valid")
				if out.jsonMode {
					out.JSON(report)
				}
				return nil
			}

			headers := []string{"KIND", "BRICK_ID", "PORT", "MESSAGE"}
			rows := make([][]string, len(report.Errors))
			for i, e := range report.Errors {
				rows[i] = []string{e.Kind, e.BrickID, e.Port, e.Message}
			}
			out.Print(headers, rows, report)

			return fmt.Errorf("function has %d validation error(s)", len(report.Errors))
		},
	}
}

func newFunctionRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var async bool

	cmd := &cobra.Command{
		Use:   "run ID",
		Short: "Execute a function and print its console output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if async {
				resp, err := client.RequestRun(args[0])
				if err != nil {
					return err
				}
				out.Success(fmt.Sprintf("Run requested: %s", resp.RequestID))
				if out.jsonMode {
					out.JSON(resp)
				}
				return nil
			}

			exec, err := client.RunFunction(args[0])
			if err != nil {
				return err
			}

			out.Lines(exec.OutputLines, exec)
			out.Success(fmt.Sprintf("Execution %s %s in %dms", exec.ID, exec.Status, exec.DurationMs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&async, "async", false, "Queue the run and return immediately")

	return cmd
}
