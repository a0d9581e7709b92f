package repair

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandGenerator runs an external program per prompt: the prompt is
// written to its stdin and its stdout is the generated text. It lets any
// local model runner drive the loop.
type CommandGenerator struct {
	Path string
	Args []string
}

// Generate runs the command once.
func (g CommandGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, g.Path, g.Args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", g.Path, err, msg)
		}
		return "", fmt.Errorf("%s: %w", g.Path, err)
	}
	return stdout.String(), nil
}
