package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"interview-sync/internal/webhooks"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Sign and verify orchestrator callback bodies",
}

// readBody takes the body from --body or, failing that, --file.
func readBody(cmd *cobra.Command) ([]byte, error) {
	if body, _ := cmd.Flags().GetString("body"); body != "" {
		return []byte(body), nil
	}
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		return os.ReadFile(path)
	}
	return nil, errors.New("one of --body or --file is required")
}

var webhookSignCmd = &cobra.Command{
	Use:   "sign",
	Short: "Print signature and timestamp headers for a body",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetString("secret")
		if secret == "" {
			return errors.New("--secret is required")
		}
		body, err := readBody(cmd)
		if err != nil {
			return err
		}
		cmd.Printf("%s: %s\n", webhooks.HeaderSignature, webhooks.Sign(secret, body))
		cmd.Printf("%s: %d\n", webhooks.HeaderTimestamp, time.Now().Unix())
		return nil
	},
}

var webhookVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a signature the way the service would",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetString("secret")
		signature, _ := cmd.Flags().GetString("signature")
		timestamp, _ := cmd.Flags().GetString("timestamp")
		window, _ := cmd.Flags().GetDuration("window")
		body, err := readBody(cmd)
		if err != nil {
			return err
		}

		verdict := webhooks.NewVerifier(window, true).Verify(secret, body, signature, timestamp)
		cmd.Printf("valid: %s reason: %s\n", strconv.FormatBool(verdict.Valid), verdict.Reason)
		if !verdict.Valid {
			return fmt.Errorf("signature rejected: %s", verdict.Reason)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{webhookSignCmd, webhookVerifyCmd} {
		c.Flags().String("secret", "", "shared webhook secret")
		c.Flags().String("body", "", "raw request body")
		c.Flags().String("file", "", "file holding the raw request body")
	}
	webhookVerifyCmd.Flags().String("signature", "", "signature header value")
	webhookVerifyCmd.Flags().String("timestamp", "", "timestamp header value (unix seconds)")
	webhookVerifyCmd.Flags().Duration("window", 5*time.Minute, "replay window")

	webhookCmd.AddCommand(webhookSignCmd, webhookVerifyCmd)
	rootCmd.AddCommand(webhookCmd)
}
