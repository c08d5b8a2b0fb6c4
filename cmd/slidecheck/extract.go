package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/slidecheck/internal/extract"
)

func extractCmd() *cobra.Command {
	var pretty bool
	var out string

	cmd := &cobra.Command{
		Use:   "extract <deck>",
		Short: "Print the XML extracted from a .pptx or .pdf deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			xml, err := extract.ConvertFile(args[0], pretty)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), xml)
				return err
			}
			return os.WriteFile(out, []byte(xml+"\n"), 0o644)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", true, "indent the XML output")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	return cmd
}
