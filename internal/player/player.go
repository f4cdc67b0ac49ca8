// Package player launches the external media player, fire-and-forget,
// with the video path and start timestamp substituted into a
// configurable command template.
package player

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/irrwahn/ffpreview/internal/logging"
)

// Player holds the configured command templates. %f is replaced by the
// video path, %t by the start timestamp.
type Player struct {
	command       string
	pausedCommand string
	log           *logging.Logger
}

// New creates a Player. pausedCommand may be empty, in which case the
// normal command is used for paused playback too.
func New(command, pausedCommand string, log *logging.Logger) *Player {
	return &Player{command: command, pausedCommand: pausedCommand, log: log}
}

// Launch starts the player detached from this process. The player's
// lifetime is its own; no handle is retained and no exit status is
// collected.
func (p *Player) Launch(videoPath, startTS string, paused bool) error {
	if videoPath == "" {
		return fmt.Errorf("no video file given")
	}
	if startTS == "" {
		startTS = "0"
	}

	tmpl := p.command
	if paused && p.pausedCommand != "" {
		tmpl = p.pausedCommand
	}
	args, err := splitCommand(tmpl)
	if err != nil {
		return fmt.Errorf("invalid player command template: %w", err)
	}
	if len(args) == 0 {
		return fmt.Errorf("empty player command template")
	}
	for i := range args {
		args[i] = strings.ReplaceAll(args[i], "%t", startTS)
		args[i] = strings.ReplaceAll(args[i], "%f", videoPath)
	}

	p.log.Debugf("launching player: %v", args)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = detachAttr()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start player: %w", err)
	}
	// Detach fully; the player must not become our child to reap.
	if err := cmd.Process.Release(); err != nil {
		p.log.Warnf("failed to release player process: %v", err)
	}
	return nil
}

// splitCommand splits a command template into arguments, honoring single
// and double quotes.
func splitCommand(s string) ([]string, error) {
	var args []string
	var cur strings.Builder
	var quote rune
	inArg := false

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unbalanced quote in %q", s)
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
