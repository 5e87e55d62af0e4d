package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/igtlctl/internal/config"
)

func templateCmd() *cobra.Command {
	var (
		kind     string
		output   string
		force    bool
		validate string
	)

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write or validate a client config or entity manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if validate != "" {
				switch kind {
				case "client":
					if _, err := loadClientConfig(validate); err != nil {
						return err
					}
				case "manifest":
					if _, err := config.LoadManifest(validate); err != nil {
						return err
					}
				default:
					return fmt.Errorf("unknown kind: %s", kind)
				}
				fmt.Fprintf(out, "Validated %s config at %s\n", kind, validate)
				return nil
			}

			if output == "" {
				body, err := config.Template(kind)
				if err != nil {
					return err
				}
				fmt.Fprint(out, body)
				return nil
			}
			if err := config.WriteTemplate(output, kind, force); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s template to %s\n", kind, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "client", "template kind: client|manifest")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path; prints to stdout when empty")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().StringVar(&validate, "validate", "", "validate an existing file instead of writing one")

	return cmd
}
