// memctl is a CLI client for the memspace REST API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag   string
	tokenFlag string
	devUser   string
	rootCmd   = &cobra.Command{
		Use:   "memctl",
		Short: "CLI client for the memspace REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "memspace service base URL")
	rootCmd.PersistentFlags().StringVarP(&tokenFlag, "token", "t", "", "API key token (Bearer auth)")
	rootCmd.PersistentFlags().StringVar(&devUser, "dev-user", "", "act as this user id via the dev session header")

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Semantic search over visible memories",
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("query")
			limit, _ := cmd.Flags().GetInt("limit")
			spaces, _ := cmd.Flags().GetStringSlice("spaces")
			return runSearch(newClient(), query, spaces, limit, os.Stdout)
		},
	}
	searchCmd.Flags().StringP("query", "q", "", "search query text (required)")
	searchCmd.Flags().IntP("limit", "l", 20, "max results")
	searchCmd.Flags().StringSlice("spaces", nil, "restrict to these space ids")
	_ = searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)

	createKeyCmd := &cobra.Command{
		Use:   "create-api-key",
		Short: "Create an API key (prints the plaintext token once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			spaces, _ := cmd.Flags().GetStringSlice("spaces")
			return runCreateApiKey(newClient(), name, spaces, os.Stdout)
		},
	}
	createKeyCmd.Flags().StringP("name", "n", "", "key name (required)")
	createKeyCmd.Flags().StringSlice("spaces", nil, "space ids the key may access")
	_ = createKeyCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(createKeyCmd)

	inviteCmd := &cobra.Command{
		Use:   "invite",
		Short: "Issue an invite for a new user (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			role, _ := cmd.Flags().GetString("role")
			return runCreateInvite(newClient(), email, role, os.Stdout)
		},
	}
	inviteCmd.Flags().StringP("email", "e", "", "invitee email (required)")
	inviteCmd.Flags().StringP("role", "r", "user", "role for the new account (user or admin)")
	_ = inviteCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(inviteCmd)

	validateCmd := &cobra.Command{
		Use:   "validate-token",
		Short: "Check whether an API key token authenticates",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, _ := cmd.Flags().GetString("check")
			return runValidateToken(newClient(), token, os.Stdout)
		},
	}
	validateCmd.Flags().String("check", "", "token to validate (required)")
	_ = validateCmd.MarkFlagRequired("check")
	rootCmd.AddCommand(validateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
