package cmd

import (
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:               "run",
		Short:             "Segment, build the manifest and split it",
		Long:              "Segment the source recordings, build the manifest and split it into train and validation lists. Publishes the lists when a publish target is configured.",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.pipeline(cmd.Context())
		},
	}
	addSegmentFlags(a, c.Flags())
	addSplitFlags(a, c.Flags())
	return c
}

func newSegmentCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:               "segment",
		Short:             "Cut source recordings into fixed-length clips",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.segment(cmd.Context())
			return err
		},
	}
	addSegmentFlags(a, c.Flags())
	return c
}

func newManifestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:               "manifest",
		Short:             "Write the label mapping and the clip manifest",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.manifest(cmd.Context())
			return err
		},
	}
}

func newSplitCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "split",
		Short: "Split the manifest into train and validation lists",
		Example: "  vocalprep split --eval-fraction 0.1 --seed 42\n" +
			"  vocalprep split --holdout-count 2\n" +
			"  vocalprep split --holdout-labels 3,7",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, err := a.split()
			return err
		},
	}
	addSplitFlags(a, c.Flags())
	return c
}

func newPublishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:               "publish",
		Short:             "Copy the generated lists to a directory or an S3 bucket",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.publish(cmd.Context())
			return err
		},
	}
}
