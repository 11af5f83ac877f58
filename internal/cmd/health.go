package cmd

import (
	"strconv"
	"time"

	"github.com/Digital-Shane/metahub/internal/registry"
	"github.com/spf13/cobra"
)

func newHealthCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run one round of provider health checks",
		Long: `Check every registered provider once. A provider's health is decided by the
instance of its first capability. Failures are reported, never returned as a
command error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			a.printHealth(a.registry.PerformHealthChecks(cmd.Context()))
			return nil
		},
	}
}

func (a *app) printHealth(reports []registry.HealthReport) {
	if len(reports) == 0 {
		a.printf("No providers to check.\n")
		return
	}

	rows := make([][]string, len(reports))
	for i, rep := range reports {
		rows[i] = []string{
			rep.ProviderID,
			string(rep.Capability),
			a.theme.Status(string(rep.Status)),
			rep.Result.ResponseTime.Round(time.Millisecond).String(),
			strconv.Itoa(rep.RetryCount),
			rep.Result.Error,
		}
	}

	a.header("Health")
	a.table([]string{"PROVIDER", "CHECKED", "STATUS", "TIME", "FAILURES", "ERROR"}, rows)
}
