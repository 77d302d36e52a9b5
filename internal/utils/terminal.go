package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
)

// ReadPassphrase prompts the user for a secret value without echoing input.
// Returns an error if stdin is not a terminal.
func ReadPassphrase(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("cannot read secret: stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // Add newline after hidden input
	if err != nil {
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	return passphrase, nil
}

// Confirm asks a yes/no question on the controlling terminal and returns true
// only for "y" or "yes". The terminal is used instead of stdin so a consent
// prompt cannot be answered by piped input.
func Confirm(prompt string) (bool, error) {
	tty, err := openTTY()
	if err != nil {
		return false, err
	}
	defer tty.Close()

	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	return ReadYesNo(tty)
}

// ReadYesNo reads one line from r and reports whether it is an affirmative
// answer. Anything other than "y" or "yes" (case-insensitive) is a no.
func ReadYesNo(r io.Reader) (bool, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	if err == io.EOF && line == "" {
		return false, fmt.Errorf("failed to read answer: %w", io.ErrUnexpectedEOF)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func openTTY() (*os.File, error) {
	ttyPath := "/dev/tty"
	if runtime.GOOS == "windows" {
		ttyPath = "CONIN$"
	}

	tty, err := os.Open(ttyPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s for consent prompt: %w", ttyPath, err)
	}

	if !term.IsTerminal(int(tty.Fd())) {
		tty.Close()
		return nil, fmt.Errorf("%s is not a terminal", ttyPath)
	}

	return tty, nil
}

// IsTerminal returns true if stdin is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
