package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var voicesJSON bool

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List voices and their narration styles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		synth, err := newSynthesizer(ctx)
		if err != nil {
			return err
		}
		defer synth.Close()

		voices, err := synth.Voices(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if voicesJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(voices)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VOICE\tNARRATION STYLES")
		for _, v := range voices {
			styles := make([]string, 0, len(v.NarrationStyles))
			for _, ns := range v.NarrationStyles {
				name := ns.Name
				if ns.IsDefault {
					name += " (default)"
				}
				styles = append(styles, name)
			}
			fmt.Fprintf(tw, "%s\t%s\n", v.Name, strings.Join(styles, "; "))
		}
		return tw.Flush()
	},
}

func init() {
	voicesCmd.Flags().BoolVar(&voicesJSON, "json", false, "print the catalogue as JSON")
	rootCmd.AddCommand(voicesCmd)
}
