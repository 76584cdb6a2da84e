package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// Completion outputs shell completion scripts.
func Completion() *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "Generate shell completions",
		ArgsUsage: "<bash|zsh|fish>",
		Action:    runCompletion,
	}
}

func runCompletion(ctx context.Context, cmd *cli.Command) error {
	switch cmd.Args().First() {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		return fmt.Errorf("unknown shell %q, supported: bash, zsh, fish", cmd.Args().First())
	}
	return nil
}

const bashCompletion = `_phantom() {
    local cur prev words cword
    _init_completion || return

    local commands="create ls info rm seal unseal status passwd hide unhide attr conceal watch journal keyring recovery compact wipe completion help"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        seal|unseal|status|info|rm|passwd|hide|unhide|watch)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--json --force --purge --idle --conceal" -- "$cur"))
            else
                local vaults
                vaults=$(phantom ls 2>/dev/null | awk '{print $1}')
                COMPREPLY=($(compgen -W "$vaults" -- "$cur") $(compgen -d -- "$cur"))
            fi
            ;;
        create|attr|wipe)
            _filedir
            ;;
        conceal)
            COMPREPLY=($(compgen -W "hide show status name" -- "$cur"))
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save rm status" -- "$cur"))
            ;;
        recovery)
            COMPREPLY=($(compgen -W "setup recover" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
    esac
}

complete -F _phantom phantom
`

const zshCompletion = `#compdef phantom

_phantom() {
    local -a commands
    commands=(
        'create:Register a folder as a new vault'
        'ls:List registered vaults'
        'info:Show details of a vault'
        'rm:Remove a vault from the registry'
        'seal:Encrypt every file in a vault folder'
        'unseal:Decrypt a sealed vault folder'
        'status:Show the sealed state of a vault'
        'passwd:Change the password of an open vault'
        'hide:Hide a folder from directory listings'
        'unhide:Make a hidden folder visible again'
        'attr:Show or change file attributes'
        'conceal:Manage the process name'
        'watch:Watch open vaults and seal them when idle'
        'journal:Show recent vault operations'
        'keyring:Manage vault passwords in the OS keyring'
        'recovery:Recover a forgotten vault password'
        'compact:Compact the vault registry database'
        'wipe:Securely delete files'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'phantom commands' commands
            ;;
        args)
            case "${words[2]}" in
                create|attr|wipe)
                    _files
                    ;;
                seal|unseal|status|info|rm|passwd|hide|unhide|watch)
                    _phantom_vaults
                    ;;
                conceal)
                    _values 'subcommand' hide show status name
                    ;;
                keyring)
                    _values 'subcommand' save rm status
                    ;;
                recovery)
                    _values 'subcommand' setup recover
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_phantom_vaults() {
    local -a vaults
    vaults=(${(f)"$(phantom ls 2>/dev/null | awk '{print $1}')"})
    _describe -t vaults 'vaults' vaults
    _files -/
}

_phantom "$@"
`

const fishCompletion = `# phantom fish completions

set -l commands create ls info rm seal unseal status passwd hide unhide attr conceal watch journal keyring recovery compact wipe completion help

complete -c phantom -f

complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a create -d 'Register a folder as a new vault'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List registered vaults'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a info -d 'Show details of a vault'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove a vault from the registry'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a seal -d 'Encrypt every file in a vault folder'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a unseal -d 'Decrypt a sealed vault folder'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show the sealed state of a vault'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change the password of an open vault'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a hide -d 'Hide a folder'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a unhide -d 'Unhide a folder'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a attr -d 'Show or change file attributes'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a conceal -d 'Manage the process name'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a watch -d 'Seal vaults when idle'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a journal -d 'Show recent vault operations'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage passwords in OS keyring'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a recovery -d 'Recover a forgotten password'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact the registry database'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a wipe -d 'Securely delete files'
complete -c phantom -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# folders and vault IDs
complete -c phantom -n "__fish_seen_subcommand_from seal unseal status info rm passwd hide unhide watch" -a "(phantom ls 2>/dev/null | awk '{print \$1}')"
complete -c phantom -n "__fish_seen_subcommand_from create attr wipe" -F

# subcommands
complete -c phantom -n "__fish_seen_subcommand_from conceal" -a "hide show status name"
complete -c phantom -n "__fish_seen_subcommand_from keyring" -a "save rm status"
complete -c phantom -n "__fish_seen_subcommand_from recovery" -a "setup recover"
complete -c phantom -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"

# help completions
complete -c phantom -n "__fish_seen_subcommand_from help" -a "$commands"
`
