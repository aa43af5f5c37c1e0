package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/bricks/internal/blueprint"
	"github.com/shaiso/bricks/internal/bricks"
	"github.com/shaiso/bricks/internal/engine"
	"github.com/shaiso/bricks/internal/orchestrator"
	"github.com/shaiso/bricks/internal/telemetry"
)

// NewRunLocalCmd создаёт команду локального запуска blueprint.
// Сервер не нужен: базы из файла загружаются в память.
func NewRunLocalCmd(outputFn func() *Output, loggerFn func() *slog.Logger) *cobra.Command {
	var timeout time.Duration
	var validateOnly bool

	cmd := &cobra.Command{
		Use:   "run-local FILE.hcl",
		Short: "Execute a function blueprint without a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			logger := loggerFn()
			ctx := telemetry.WithLogger(cmd.Context(), logger)

			file, err := blueprint.LoadFile(ctx, args[0])
			if err != nil {
				return err
			}

			registry := bricks.DefaultRegistry()
			res, err := file.Build(registry)
			if err != nil {
				return err
			}

			if validateOnly {
				if err := engine.Validate(res.Snapshot, registry); err != nil {
					return describeBlueprintError(err, res.BrickNames)
				}
				out.Success(fmt.Sprintf("Function %q is valid", file.Function.Name))
				return nil
			}

			orch := orchestrator.New(orchestrator.Config{
				Registry: registry,
				Store:    res.Store,
				Loader:   res.Store,
				Timeout:  timeout,
				Logger:   logger,
			})

			exec, err := orch.RunFunction(ctx, res.Snapshot.Function.ID)
			if err != nil {
				return describeBlueprintError(err, res.BrickNames)
			}

			out.Lines(exec.OutputLines, exec)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Execution timeout (0 means no limit)")
	cmd.Flags().BoolVar(&validateOnly, "validate", false, "Only validate the graph")

	return cmd
}

// describeBlueprintError подставляет имена bricks из blueprint.
func describeBlueprintError(err error, names map[uuid.UUID]string) error {
	var brickErr *orchestrator.BrickExecutionError
	if errors.As(err, &brickErr) {
		if name, ok := names[brickErr.BrickID]; ok {
			return &namedError{msg: fmt.Sprintf("brick %q failed: %v", name, brickErr.Err), err: err}
		}
		return err
	}

	var verrs *engine.ValidationErrors
	if errors.As(err, &verrs) {
		var sb strings.Builder
		sb.WriteString("function is not valid:")
		for _, ge := range verrs.Errors {
			sb.WriteString("\n  - ")
			if name, ok := names[ge.BrickID]; ok {
				fmt.Fprintf(&sb, "brick %q: %s", name, ge.Message)
			} else {
				sb.WriteString(ge.Error())
			}
		}
		return &namedError{msg: sb.String(), err: err}
	}

	return err
}

// namedError — ошибка с сообщением в терминах blueprint.
type namedError struct {
	msg string
	err error
}

func (e *namedError) Error() string { return e.msg }
func (e *namedError) Unwrap() error { return e.err }
