package main

import (
	"github.com/spf13/cobra"
)

var saveFlags struct{ date, issue, out string }

var saveRawCmd = &cobra.Command{
	Use:   "save-raw",
	Short: "Write every XML member of a package to <out>/issue-<id>/",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		req, err := request(saveFlags.date, saveFlags.issue)
		if err != nil {
			return err
		}
		a := openOffline()
		issue := req.Issue
		if issue == "" {
			if issue, err = a.runner().Resolve(cmd.Context(), req.Date); err != nil {
				return err
			}
		}
		st, err := a.runner().SaveRaw(cmd.Context(), issue, saveFlags.out)
		printJSON(cmd.OutOrStdout(), st)
		return err
	},
}

var uploadFlags struct{ date, issue, dir string }

var uploadRawCmd = &cobra.Command{
	Use:   "upload-raw",
	Short: "Upsert saved XML files into tb.ted_raw_xml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		req, err := request(uploadFlags.date, uploadFlags.issue)
		if err != nil {
			return err
		}
		a, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		sum, err := a.runner().UploadRaw(cmd.Context(), req, uploadFlags.dir)
		if sum != nil {
			printJSON(cmd.OutOrStdout(), sum)
		}
		return err
	},
}

func init() {
	saveRawCmd.Flags().StringVar(&saveFlags.date, "date", "", "publication day YYYY-MM-DD, resolved when --issue is empty")
	saveRawCmd.Flags().StringVar(&saveFlags.issue, "issue", "", "package id YYYYNNNNN")
	saveRawCmd.Flags().StringVar(&saveFlags.out, "out", "./raw", "output root")

	uploadRawCmd.Flags().StringVar(&uploadFlags.date, "date", "", "publication day YYYY-MM-DD, resolved when --issue is empty")
	uploadRawCmd.Flags().StringVar(&uploadFlags.issue, "issue", "", "package id YYYYNNNNN")
	uploadRawCmd.Flags().StringVar(&uploadFlags.dir, "dir", "./raw", "root holding issue-<id>/ directories")

	rootCmd.AddCommand(saveRawCmd, uploadRawCmd)
}
