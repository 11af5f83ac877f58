package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Digital-Shane/metahub/internal/registry"
	"github.com/spf13/cobra"
)

func newStatsCommand(opts *rootOptions) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show registry statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if check {
				a.registry.PerformHealthChecks(cmd.Context())
			}
			a.printStats(a.registry.Statistics())
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Run health checks first")
	return cmd
}

func (a *app) printStats(s registry.Statistics) {
	lastRun := "never"
	if !s.LastHealthCheckRun.IsZero() {
		lastRun = s.LastHealthCheckRun.Format(time.RFC3339)
	}

	rows := [][]string{
		{"providers", strconv.Itoa(s.TotalProviders)},
		{"enabled", strconv.Itoa(s.ActiveProviders)},
		{"healthy / unhealthy / unknown", fmt.Sprintf("%d / %d / %d", s.HealthyProviders, s.UnhealthyProviders, s.UnknownProviders)},
		{"registrations", strconv.Itoa(s.Factory.TotalRegistrations)},
		{"cached instances", strconv.Itoa(s.Factory.TotalInstances)},
		{"constructions (failed)", fmt.Sprintf("%d (%d)", s.Factory.Constructions, s.Factory.ConstructionFailures)},
		{"cache hits / misses", fmt.Sprintf("%d / %d", s.Factory.CacheHits, s.Factory.CacheMisses)},
		{"resolutions", fmt.Sprintf("%d (%d ok, %d failed, %d timed out)", s.Resolutions, s.ResolutionSuccesses, s.ResolutionFailures, s.ResolutionTimeouts)},
		{"avg resolution time", s.AverageResolutionTime.String()},
		{"health checks (failed)", fmt.Sprintf("%d (%d)", s.HealthChecks, s.HealthCheckFailures)},
		{"avg health check time", s.AverageHealthCheckTime.String()},
		{"last health check run", lastRun},
		{"monitoring", strconv.FormatBool(s.Monitoring)},
	}

	a.header(a.theme.Icon("stats") + " Registry")
	a.table([]string{"STAT", "VALUE"}, rows)

	if len(s.Factory.RegistrationsByProvider) == 0 {
		return
	}
	ids := make([]string, 0, len(s.Factory.RegistrationsByProvider))
	for id := range s.Factory.RegistrationsByProvider {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	perProvider := make([][]string, len(ids))
	for i, id := range ids {
		perProvider[i] = []string{
			id,
			strconv.Itoa(s.Factory.RegistrationsByProvider[id]),
			strconv.Itoa(s.Factory.InstancesByProvider[id]),
		}
	}
	a.table([]string{"PROVIDER", "CAPABILITIES", "INSTANCES"}, perProvider)
}
