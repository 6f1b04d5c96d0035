package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yapay-ai/spendwatch/pkg/model"
)

var configsCmd = &cobra.Command{
	Use:   "configs",
	Short: "Manage the provider configuration set",
}

var configsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored provider configs (credentials masked)",
	RunE:  runConfigsList,
}

var configsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the stored provider config set from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigsImport,
}

var configsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the stored provider config set as YAML",
	RunE:  runConfigsExport,
}

func init() {
	rootCmd.AddCommand(configsCmd)
	configsCmd.AddCommand(configsListCmd)
	configsCmd.AddCommand(configsImportCmd)
	configsCmd.AddCommand(configsExportCmd)
}

// configFile is the YAML import format. Enabled is a pointer so an omitted
// field defaults to enabled.
type configFile struct {
	Configs []configFileEntry `yaml:"configs"`
}

type configFileEntry struct {
	UserID       string             `yaml:"user_id"`
	ProviderID   string             `yaml:"provider_id"`
	ProviderType model.ProviderType `yaml:"provider_type"`
	Credential   string             `yaml:"credential"`
	SoftLimit    *float64           `yaml:"soft_limit"`
	HardLimit    *float64           `yaml:"hard_limit"`
	Enabled      *bool              `yaml:"enabled"`
}

func runConfigsList(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := initStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	configs, err := st.ListConfigs(ctx)
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		fmt.Println("No provider configs stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tPROVIDER ID\tTYPE\tSOFT\tHARD\tENABLED")
	for _, c := range configs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
			c.UserID, c.ProviderID, c.ProviderType,
			formatLimit(c.SoftLimit), formatLimit(c.HardLimit), !c.Disabled)
	}
	return w.Flush()
}

func runConfigsImport(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	configs := make([]model.ProviderConfig, 0, len(file.Configs))
	for i, entry := range file.Configs {
		if entry.UserID == "" {
			return fmt.Errorf("config %d: user_id required", i)
		}
		if !entry.ProviderType.Valid() {
			return fmt.Errorf("config %d: unknown provider type %q", i, entry.ProviderType)
		}
		if entry.Credential == "" {
			return fmt.Errorf("config %d: credential required", i)
		}

		providerID := entry.ProviderID
		if providerID == "" {
			providerID = uuid.New().String()
		}

		configs = append(configs, model.ProviderConfig{
			UserID:       entry.UserID,
			ProviderID:   providerID,
			ProviderType: entry.ProviderType,
			Credential:   entry.Credential,
			SoftLimit:    entry.SoftLimit,
			HardLimit:    entry.HardLimit,
			Disabled:     entry.Enabled != nil && !*entry.Enabled,
		})
	}

	st, err := initStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := st.SaveConfigs(ctx, configs); err != nil {
		return err
	}

	fmt.Printf("Imported %d provider configs.\n", len(configs))
	return nil
}

func runConfigsExport(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := initStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	configs, err := st.ListConfigs(ctx)
	if err != nil {
		return err
	}

	file := configFile{Configs: make([]configFileEntry, 0, len(configs))}
	for _, c := range configs {
		enabled := !c.Disabled
		file.Configs = append(file.Configs, configFileEntry{
			UserID:       c.UserID,
			ProviderID:   c.ProviderID,
			ProviderType: c.ProviderType,
			Credential:   c.Credential,
			SoftLimit:    c.SoftLimit,
			HardLimit:    c.HardLimit,
			Enabled:      &enabled,
		})
	}

	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(file)
}

func formatLimit(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *v)
}
