package internal

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mitchellh/colorstring"
	"github.com/spf13/cobra"

	"github.com/beryl-lang/berylbuild/internal/variant"
)

// runMenu asks for a variant on stdin and builds it. Unknown answers ask
// again; quitting or reaching the end of input builds nothing.
func runMenu(cmd *cobra.Command) error {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	for {
		printMenu(out)
		line, err := in.ReadString('\n')
		answer := strings.TrimSpace(line)
		if isQuit(answer) {
			return nil
		}
		if kind, ok := menuChoice(answer); ok {
			return runVariant(cmd, kind)
		}
		if err != nil {
			// end of input
			fmt.Fprintln(out)
			return nil
		}
		if answer != "" {
			colorstring.Fprint(out, fmt.Sprintf("[yellow]Unknown option %q[reset]\n", answer))
		}
	}
}

func printMenu(out io.Writer) {
	colorstring.Fprint(out, "[bold]Select build option:[reset]\n")
	for i, kind := range variant.Kinds() {
		fmt.Fprintf(out, "%d. %s\n", i+1, kind.Description())
	}
	fmt.Fprintln(out, "Q. Quit")
	fmt.Fprint(out, ":")
}

// menuChoice maps a menu number to its variant.
func menuChoice(answer string) (variant.Kind, bool) {
	n, err := strconv.Atoi(answer)
	kinds := variant.Kinds()
	if err != nil || n < 1 || n > len(kinds) || strconv.Itoa(n) != answer {
		return 0, false
	}
	return kinds[n-1], true
}

func isQuit(answer string) bool {
	switch strings.ToLower(answer) {
	case "q", "quit":
		return true
	}
	return false
}
