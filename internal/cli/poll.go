package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yapay-ai/spendwatch/pkg/model"
)

var pollCmd = &cobra.Command{
	Use:   "poll <provider>",
	Short: "Poll one provider once and print the normalized snapshot",
	Long: `Poll issues a single on-demand poll against one provider using the given
credential and prints the normalized usage snapshot as JSON. Nothing is
persisted.`,
	Args: cobra.ExactArgs(1),
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)

	pollCmd.Flags().String("credential", "", "Provider API credential (required)")
	_ = pollCmd.MarkFlagRequired("credential")
}

func runPoll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	providerType := model.ProviderType(args[0])
	if !providerType.Valid() {
		return fmt.Errorf("unknown provider %q (one of: openai, anthropic, openrouter)", args[0])
	}

	credential, _ := cmd.Flags().GetString("credential")

	registry, err := initRegistry(cfg)
	if err != nil {
		return err
	}
	adapter, err := registry.Get(providerType)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), parseDuration(cfg.Poller.PollTimeout, 30*time.Second))
	defer cancel()

	snap, err := adapter.Poll(ctx, credential)
	if err != nil {
		return fmt.Errorf("poll %s: %w", providerType, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
