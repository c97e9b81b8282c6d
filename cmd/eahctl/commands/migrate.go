package commands

import (
	"github.com/spf13/cobra"

	"github.com/eahctl/eahctl/cmd/eahctl/handlers"
)

// Migrate returns the command that performs the encryption migration.
//
// Required flags:
//
//	--resource-group, -g: resource group containing the source VM
//	--source-vm:          VM to migrate
//	--new-vm:             name of the replacement VM
//
// Environment variables:
//
//	AZURE_SUBSCRIPTION_ID: subscription id (unless --subscription is given)
func Migrate() *cobra.Command {
	var (
		flags      handlers.MigrateFlags
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate a VM from guest disk encryption to encryption at host",
		Long: `Migrate an Azure VM from guest-level disk encryption to encryption at host.

The migration decrypts the guest volumes, deallocates the VM, clones every
managed disk byte-for-byte, deletes the source VM while keeping its network
interfaces, and rebuilds an equivalent VM on the cloned disks with
encryption at host enabled.

The source VM is deleted during the migration. Its original disks are left
detached as a manual fallback; they are never modified.

Examples:
  # Preview the migration without touching anything
  eahctl migrate -g prod-rg --source-vm app01 --new-vm app01-eah --dry-run

  # Migrate including data disks
  eahctl migrate -g prod-rg --source-vm app01 --new-vm app01-eah --include-data-disks

  # Use an options file and override the size
  eahctl migrate -c eahctl.yaml --vm-size Standard_D8s_v5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Migrate(cmd.Context(), configPath, &flags)
		},
	}

	cmd.Flags().StringVar(&flags.SubscriptionID, "subscription", "", "Subscription id (default: AZURE_SUBSCRIPTION_ID)")
	cmd.Flags().StringVarP(&flags.ResourceGroup, "resource-group", "g", "", "Resource group of the source VM")
	cmd.Flags().StringVar(&flags.SourceVM, "source-vm", "", "Name of the VM to migrate")
	cmd.Flags().StringVar(&flags.NewVM, "new-vm", "", "Name of the replacement VM")
	cmd.Flags().StringVar(&flags.NewOSDiskName, "new-os-disk-name", "", "Name of the cloned OS disk (default: <source>-OSDisk-EAH)")
	cmd.Flags().StringVar(&flags.VMSize, "vm-size", "", "Size of the replacement VM (default: source VM size)")
	cmd.Flags().BoolVar(&flags.IncludeDataDisks, "include-data-disks", false, "Clone and reattach data disks")
	cmd.Flags().StringVar(&flags.AzCopyPath, "azcopy-path", "", "Path to the azcopy binary (default: PATH lookup)")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Print the plan without mutating anything")
	cmd.Flags().BoolVar(&flags.ValidatePlacement, "validate-placement", false, "Validate the target size against the location catalog")
	cmd.Flags().StringVar(&flags.AdminUsername, "admin-username", "", "Admin username for the image-rebuild strategy")
	cmd.Flags().StringVar(&flags.AdminPassword, "admin-password", "", "Admin password for the image-rebuild strategy")
	cmd.Flags().DurationVar(&flags.SASDuration, "sas-duration", 0, "Lifetime of disk access grants (default: 24h)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to an options file (YAML)")

	return cmd
}
