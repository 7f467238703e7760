package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
)

// Prompter asks the operator for the value of a setting.
type Prompter interface {
	Prompt(key string) (string, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(key string) (string, error)

// Prompt calls f(key).
func (f PrompterFunc) Prompt(key string) (string, error) {
	return f(key)
}

// PromptuiPrompter prompts on an interactive terminal, masking secret keys.
type PromptuiPrompter struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

// Prompt asks for key until a non-empty value is entered.
func (p PromptuiPrompter) Prompt(key string) (string, error) {
	prompt := promptui.Prompt{
		Label: label(key),
		Templates: &promptui.PromptTemplates{
			Prompt:  "{{ . }} ",
			Valid:   "{{ . | green }} ",
			Invalid: "{{ . | yellow }} ",
			Success: "{{ . | bold }} ",
		},
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("a value is required")
			}

			return nil
		},
		Stdin:  p.Stdin,
		Stdout: p.Stdout,
	}

	if IsSecret(key) {
		prompt.Mask = '*'
	}

	v, err := prompt.Run()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(v), nil
}

// LinePrompter prompts with plain lines, for piped input and tests.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter reads answers from r and writes questions to w.
func NewLinePrompter(r io.Reader, w io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(r), out: w}
}

// Prompt writes the question for key and reads one line as the answer, asking
// again while the line is blank. Running out of input is an error.
func (p *LinePrompter) Prompt(key string) (string, error) {
	for {
		if _, err := fmt.Fprintf(p.out, "%s: ", label(key)); err != nil {
			return "", err
		}

		line, err := p.in.ReadString('\n')
		if v := strings.TrimSpace(line); v != "" {
			return v, nil
		}

		if err != nil {
			return "", fmt.Errorf("no answer for %s: %w", key, err)
		}
	}
}

func label(key string) string {
	return strings.ReplaceAll(normalizeKey(key), "_", " ")
}
