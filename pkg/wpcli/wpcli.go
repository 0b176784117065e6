// Package wpcli talks to a WordPress installation: it reads the core
// version and shells out to the wp binary for theme activation.
package wpcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultBinary is the WP-CLI executable looked up on PATH.
const DefaultBinary = "wp"

var versionRe = regexp.MustCompile(`\$wp_version\s*=\s*['"]([^'"]+)['"]`)

// ErrVersionNotFound is returned when version.php has no $wp_version.
var ErrVersionNotFound = errors.New("wp_version not found")

// DetectVersion reads $wp_version from <wpRoot>/wp-includes/version.php.
func DetectVersion(wpRoot string) (string, error) {
	path := filepath.Join(wpRoot, "wp-includes", "version.php")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	m := versionRe.FindSubmatch(data)
	if m == nil {
		return "", fmt.Errorf("%s: %w", path, ErrVersionNotFound)
	}
	return string(m[1]), nil
}

// Runner invokes WP-CLI theme commands against a WordPress root.
type Runner struct {
	// Binary defaults to DefaultBinary.
	Binary string
	// Path is passed as --path when set.
	Path   string
	Stdout io.Writer
	Stderr io.Writer
}

// Activate runs `wp theme activate <slug>`.
func (r *Runner) Activate(ctx context.Context, slug string) error {
	return r.run(ctx, "theme", "activate", slug)
}

// EnableNetwork runs `wp theme enable <slug> --network`.
func (r *Runner) EnableNetwork(ctx context.Context, slug string) error {
	return r.run(ctx, "theme", "enable", slug, "--network")
}

// Args returns the full argument list for a wp invocation.
func (r *Runner) Args(args ...string) []string {
	if r.Path != "" {
		args = append(args, "--path="+r.Path)
	}
	return args
}

func (r *Runner) run(ctx context.Context, args ...string) error {
	bin := r.Binary
	if bin == "" {
		bin = DefaultBinary
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, r.Args(args...)...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = &stderr
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(r.Stderr, &stderr)
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("wp %s: %w", strings.Join(args, " "), withStderr(err, stderr.String()))
	}
	return nil
}

// withStderr appends the command's stderr to an exit error.
func withStderr(err error, stderr string) error {
	var exitErr *exec.ExitError
	if msg := strings.TrimSpace(stderr); errors.As(err, &exitErr) && msg != "" {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}
