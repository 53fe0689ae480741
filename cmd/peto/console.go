package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// console owns stdin for both the command loop and operator prompts (manual
// CAPTCHA input, required-field fallbacks). Prompts only happen while a verb
// is executing, so a single reader is safe.
type console struct {
	reader *bufio.Reader
}

func newConsole() *console {
	return &console{reader: bufio.NewReader(os.Stdin)}
}

// ReadLine reads one trimmed line. io.EOF signals the operator closed stdin.
func (c *console) ReadLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Prompt implements interfaces.Prompter.
func (c *console) Prompt(message string) (string, error) {
	fmt.Printf("%s ", message)
	return c.ReadLine()
}
