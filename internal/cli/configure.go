// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cfupload/cfupload/sdk/utils"
)

func (a *App) newConfigureCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Save credentials and endpoint options into a profile",
		Long: `Write the given credentials, container and endpoint options into a
section of the config file, so later uploads can omit them.

Examples:
  cfupload configure -k KEY -u USER -c mycontainer
  cfupload configure --profile london --uk -k KEY -u USER`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := loadSettings(v, cmd.Flags())
			if err != nil {
				return err
			}
			if s.APIKey == "" && s.Username == "" && s.Container == "" {
				return &usageError{err: errors.New("nothing to save: give at least one of --apikey, --user or --container")}
			}

			path := utils.IniPath(s.ConfigFile)
			section, err := utils.WriteProfile(v, path, s.Profile)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile [%s] saved to %s\n", section, path)
			if s.APIKey != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  apikey:   %s\n", utils.MaskSecret(s.APIKey))
			}
			if s.Username != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  username: %s\n", s.Username)
			}
			if s.Container != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  container: %s\n", s.Container)
			}
			return nil
		},
	}
}
