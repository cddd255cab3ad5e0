package main

import "fmt"

func completionMain(args []string) {
	shell := "bash"
	if len(args) > 0 && args[0] != "" {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	default:
		log.Fatalf("unsupported shell: %s (use bash or zsh)", shell)
	}
}

const bashCompletion = `
_rtl_cli_completions()
{
    local cur prev
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "exec serve config completion" -f -- "$cur") )
        return 0
    fi

    case "${COMP_WORDS[1]}" in
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        exec)
            if [[ "$prev" == "-kind" || "$prev" == "-k" ]]; then
                COMPREPLY=( $(compgen -W "simulate lint synthesize" -- "$cur") )
                return 0
            fi
            COMPREPLY=( $(compgen -W "-kind -k -timeout -json -c" -f -- "$cur") )
            ;;
        serve)
            COMPREPLY=( $(compgen -W "-addr -c" -- "$cur") )
            ;;
        config)
            COMPREPLY=( $(compgen -W "-init -force" -- "$cur") )
            ;;
        *)
            COMPREPLY=( $(compgen -f -- "$cur") )
            ;;
    esac
}
complete -F _rtl_cli_completions rtl-cli
`

const zshCompletion = `
#compdef rtl-cli
_rtl_cli() {
    local -a subcmds
    subcmds=('exec:run one tool invocation and stream its output' 'serve:expose the local toolchain over websocket' 'config:print or initialize the config file' 'completion:print shell completions')
    if (( CURRENT == 2 )); then
        _describe 'command' subcmds
        _files
        return
    fi
    case $words[2] in
        exec)
            _arguments '-kind[tool]:kind:(simulate lint synthesize)' '-timeout[seconds]:' '-json[JSONL output]' '*:file:_files'
            ;;
        serve)
            _arguments '-addr[listen address]:'
            ;;
        config)
            _arguments '-init[write default config]' '-force[overwrite]'
            ;;
        completion)
            _values 'shell' bash zsh
            ;;
    esac
}
compdef _rtl_cli rtl-cli
`
