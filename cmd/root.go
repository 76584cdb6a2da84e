package cmd

import (
	"github.com/urfave/cli/v3"

	"github.com/illarion/phantom/internal/config"
)

// Root assembles the phantom command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name:  "phantom",
		Usage: "Turn folders into encrypted, hidden vaults",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "~/.config/phantom/config.yaml",
				Value:       config.DefaultPath(),
				Sources:     cli.EnvVars(config.EnvConfigPath),
			},
		},
		Commands: []*cli.Command{
			Create(),
			List(),
			Info(),
			Remove(),
			Seal(),
			Unseal(),
			Status(),
			Passwd(),
			Hide(),
			Unhide(),
			Attr(),
			Conceal(),
			Watch(),
			Journal(),
			Keyring(),
			Recovery(),
			Compact(),
			Wipe(),
			Completion(),
		},
	}
}
