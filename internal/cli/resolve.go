package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/famomatic/ytlive/internal/app"
	"github.com/famomatic/ytlive/internal/channel"
	"github.com/famomatic/ytlive/internal/config"
)

func NewResolveCmd(deps *Dependencies, global *globalOptions) *cobra.Command {
	var apiKey string
	var idOnly bool

	cmd := &cobra.Command{
		Use:   "resolve <channel-url|channel-id|@handle>",
		Short: "Print the channel id and name for a channel reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(deps, func(cfg *config.Config) {
				if cmd.Flags().Changed("api-key") {
					cfg.APIKey = apiKey
				}
			})
			if err != nil {
				return err
			}
			logger := NewLogger(deps.Err, cfg.Log)
			c, err := app.NewClient(cfg, logger)
			if err != nil {
				return err
			}
			resolver := channel.NewResolver(c, nil, logger)

			if idOnly {
				id, err := resolver.ResolveID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(deps.Out, id)
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ch, err := resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ch.Keyword {
				_, err = fmt.Fprintf(deps.Out, "%s\t(keyword)\n", ch.ID)
				return err
			}
			_, err = fmt.Fprintf(deps.Out, "%s\t%s\n", ch.ID, ch.DisplayName)
			return err
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "YouTube Data API key")
	cmd.Flags().BoolVar(&idOnly, "id-only", false, "Only resolve the id; needs no API key")
	return cmd
}
