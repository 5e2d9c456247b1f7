package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/tgulacsi/wrap"
)

const cliWelcome = `
Please drag and drop the boot image you want to inspect
into this window.

After you drop the file, press the [Enter] key to continue.

> `

func cliPrompt(msg string) {
	var cols uint = 60
	wrapped := wrap.String(msg, cols)

	fmt.Printf(`
%s

> `, wrapped)
}

// Interactive fallback for getting an image path when run from a
// terminal with no arguments.
func cliGetInputPath() (path string, ok bool) {
	interactive := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	if !interactive {
		return "", false
	}

	fmt.Print(cliWelcome)
	scanner := bufio.NewScanner(os.Stdin)

	for {
		if !scanner.Scan() {
			return "", false
		}

		path = strings.TrimSpace(scanner.Text())
		path = strings.Trim(path, `"'`)
		if path == "" {
			cliPrompt("That doesn't look like a file path.")
			continue
		}

		fInfo, err := os.Stat(path)
		if err != nil {
			cliPrompt(fmt.Sprintf("An error occurred verifying that file: %q. Try dragging and dropping a boot image you are able to open.", path))
			continue
		}

		if fInfo.IsDir() {
			cliPrompt("That is a directory. Try dragging and dropping a boot image file here.")
			continue
		}

		return path, true
	}
}
