package main

import (
	"fmt"
	"strconv"

	"github.com/mattfreire/mentors/internal/config"
	"github.com/mattfreire/mentors/pkg/utils"
	"github.com/spf13/cobra"
)

// tokenCmd mints a bearer token for an existing user id. Registration and
// login live in the identity service; this covers local testing and ops.
func tokenCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an API token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			token, err := utils.GenerateToken(strconv.FormatInt(userID, 10), role, cfg.JWTSecret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "user", "role claim embedded in the token")

	return cmd
}
