package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewDatabaseCmd создаёт группу команд для просмотра баз проекта.
func NewDatabaseCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "database",
		Short: "Inspect project databases",
	}

	cmd.AddCommand(newDatabaseListCmd(clientFn, outputFn))

	return cmd
}

func newDatabaseListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List databases visible to a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			dbs, err := client.ListDatabases(projectID)
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "PROPERTIES"}
			rows := make([][]string, len(dbs))
			for i, db := range dbs {
				props := make([]string, len(db.Properties))
				for j, p := range db.Properties {
					props[j] = p.Name
				}
				rows[i] = []string{db.ID, db.Name, strings.Join(props, ", ")}
			}

			out.Print(headers, rows, dbs)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID (required)")
	cmd.MarkFlagRequired("project")

	return cmd
}
