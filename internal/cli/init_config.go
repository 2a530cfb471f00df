package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/png2gif/internal/config"
)

// NewInitConfigCommand writes the default config as a YAML template.
func NewInitConfigCommand(_ *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config <path>",
		Short: "Записать конфиг по умолчанию в YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force)", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}
			if err := config.Write(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[+] Конфиг записан: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "перезаписать существующий файл")
	return cmd
}
