package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewConnectionCmd создаёт группу команд для управления connections.
func NewConnectionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connection",
		Short: "Connect and disconnect brick ports",
	}

	cmd.AddCommand(
		newConnectionAddCmd(clientFn, outputFn),
		newConnectionRemoveCmd(clientFn, outputFn),
	)

	return cmd
}

func newConnectionAddCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "add FUNCTION_ID FROM_BRICK.PORT TO_BRICK.PORT",
		Short: "Connect an output port to an input port",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			fromBrick, fromPort, err := splitEndpoint(args[1])
			if err != nil {
				return err
			}
			toBrick, toPort, err := splitEndpoint(args[2])
			if err != nil {
				return err
			}

			conn, err := client.Connect(args[0], ConnectRequest{
				FromBrickID: fromBrick,
				FromPort:    fromPort,
				ToBrickID:   toBrick,
				ToPort:      toPort,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Connection created: %s", conn.ID))
			out.Print(
				[]string{"ID", "FROM", "TO"},
				[][]string{{conn.ID, conn.FromBrickID + "." + conn.FromPort, conn.ToBrickID + "." + conn.ToPort}},
				conn,
			)
			return nil
		},
	}
}

func newConnectionRemoveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "remove FUNCTION_ID CONNECTION_ID",
		Short: "Remove a connection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.Disconnect(args[0], args[1]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Connection removed: %s", args[1]))
			return nil
		},
	}
}

// splitEndpoint разбирает BRICK_ID.PORT.
func splitEndpoint(s string) (string, string, error) {
	brick, port, ok := strings.Cut(s, ".")
	if !ok || brick == "" || port == "" {
		return "", "", fmt.Errorf("invalid endpoint %q, expected BRICK_ID.PORT", s)
	}
	return brick, port, nil
}
