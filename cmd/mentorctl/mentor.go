package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mattfreire/mentors/internal/app"
	"github.com/mattfreire/mentors/internal/config"
	"github.com/mattfreire/mentors/internal/models"
	"github.com/mattfreire/mentors/internal/services"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

func mentorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mentor",
		Short: "Moderate mentor listings",
	}

	cmd.AddCommand(mentorStatusCmd("approve", "Approve a mentor and list them as bookable",
		func(s *services.MentorService) statusFunc { return s.Approve }))
	cmd.AddCommand(mentorStatusCmd("deactivate", "Hide a mentor from listings without revoking approval",
		func(s *services.MentorService) statusFunc { return s.Deactivate }))

	return cmd
}

type statusFunc func(ctx context.Context, mentorID int64) (*models.Mentor, error)

func mentorStatusCmd(use, short string, pick func(*services.MentorService) statusFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <mentor-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mentorID, err := parseID(args[0])
			if err != nil {
				return err
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			service, err := do.Invoke[*services.MentorService](app.New(cfg))
			if err != nil {
				return err
			}

			mentor, err := pick(service)(cmd.Context(), mentorID)
			if err != nil {
				return err
			}
			return printJSON(cmd, mentor)
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, value any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
