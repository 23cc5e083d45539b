package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avirta/ytarchiver/internal/youtube"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with YouTube using an authorization code",
		Long: `Authorize access to your YouTube account.

Prints a consent URL to visit in a browser; paste the resulting authorization
code back on stdin. The token is saved with owner-only permissions and
refreshed automatically afterwards.`,
		RunE: runLogin,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	if resolvedCfg.Auth.ClientID == "" || resolvedCfg.Auth.ClientSecret == "" {
		return fmt.Errorf("login: client_id and client_secret must be set in the [auth] config section")
	}

	oauthCfg := youtube.OAuthConfig(resolvedCfg.Auth.ClientID, resolvedCfg.Auth.ClientSecret)

	err := youtube.Login(cmd.Context(), oauthCfg, resolvedCfg.Auth.TokenFile,
		func(authURL string) {
			// Consent prompts must always be visible — not suppressed by --quiet.
			fmt.Fprintf(os.Stderr, "Visit this URL to authorize access:\n\n  %s\n\n", authURL)
			fmt.Fprint(os.Stderr, "Enter the authorization code: ")
		},
		func() (string, error) {
			reader := bufio.NewReader(os.Stdin)

			line, err := reader.ReadString('\n')
			if err != nil {
				return "", err
			}

			return strings.TrimSpace(line), nil
		},
		logger)
	if err != nil {
		return err
	}

	statusf("Login successful. Token saved to %s\n", resolvedCfg.Auth.TokenFile)

	return nil
}
