package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/spf13/cobra"
)

func newProvidersCommand(opts *rootOptions) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List registered providers",
		Long: `List every registered provider with its priority, enabled flag, health and
capabilities. Health stays "unknown" until a check has run; pass --check to run
one first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if check {
				a.registry.PerformHealthChecks(cmd.Context())
			}
			return a.printProviders()
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Run health checks before listing")
	return cmd
}

func (a *app) printProviders() error {
	ids := a.registry.Providers()
	if len(ids) == 0 {
		a.printf("No providers are enabled. Enable one with `metahub config set providers.<id>.enabled true`.\n")
		return nil
	}

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		cfg, ok := a.registry.ProviderConfig(id)
		if !ok {
			continue
		}
		health, _ := a.registry.ProviderHealth(id)
		rows = append(rows, []string{
			id,
			cfg.Name,
			strconv.Itoa(cfg.Priority),
			a.theme.Check(cfg.Enabled),
			a.theme.Status(string(health.Status)),
			joinCapabilities(a.registry.AvailableCapabilities(id)),
		})
	}

	a.header(a.theme.Icon("provider") + " Providers")
	a.table([]string{"ID", "NAME", "PRIORITY", "ENABLED", "HEALTH", "CAPABILITIES"}, rows)
	return nil
}

func newCapabilitiesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities [provider]",
		Short: "Show which providers serve each capability",
		Long: `Without arguments, list every capability with the providers registered for it
in registration order. With a provider id, list that provider's capabilities.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if len(args) == 1 {
				return a.printProviderCapabilities(args[0])
			}
			a.printCapabilityMatrix()
			return nil
		},
	}
}

func (a *app) printProviderCapabilities(id string) error {
	caps := a.registry.AvailableCapabilities(id)
	if len(caps) == 0 {
		return fmt.Errorf("provider %q is not registered", id)
	}
	for _, c := range caps {
		a.printf("%s\n", c)
	}
	return nil
}

func (a *app) printCapabilityMatrix() {
	rows := make([][]string, 0, len(provider.AllCapabilities))
	for _, c := range provider.AllCapabilities {
		statuses := a.registry.ProvidersForCapability(c)
		ids := make([]string, len(statuses))
		for i, s := range statuses {
			ids[i] = s.ProviderID
		}
		providers := strings.Join(ids, ", ")
		if providers == "" {
			providers = a.theme.MutedStyle().Render("none")
		}
		rows = append(rows, []string{string(c), providers})
	}

	a.header("Capabilities")
	a.table([]string{"CAPABILITY", "PROVIDERS"}, rows)
}

func joinCapabilities(caps []provider.Capability) string {
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
