package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wqlog/wqlog/pkg/storage"
)

func openStore() (*storage.FS, error) {
	c, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return storage.Open(c.Storage.Root)
}

func NewStorageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "storage",
		Short:   "Inspect the data volume",
		GroupID: gAdvanced,
		Long:    `List, print and remove files on the data volume, such as calibration files.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "ls [dir]",
			Short: "List files",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := openStore()
				if err != nil {
					return err
				}
				dir := "."
				if len(args) == 1 {
					dir = args[0]
				}
				entries, err := s.List(dir)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, e := range entries {
					size := ""
					if !e.IsDir {
						size = e.HumanSize()
					}
					fmt.Fprintf(w, "%s\t%s\n", e, size)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "cat <file>",
			Short: "Print a file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := openStore()
				if err != nil {
					return err
				}
				b, err := s.Read(args[0])
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(b)
				return err
			},
		},
		&cobra.Command{
			Use:   "rm <file>",
			Short: "Remove a file",
			Long: `Remove a file. Removing a calibration file makes the daemon ask for a new
calibration on its next start.`,
			Args: cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				s, err := openStore()
				if err != nil {
					return err
				}
				ok, err := s.Exists(args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: %w", args[0], storage.ErrNotFound)
				}
				if err := s.Remove(args[0]); err != nil {
					return err
				}
				logrus.Infof("removed %s", args[0])
				return nil
			},
		},
	)

	return cmd
}
