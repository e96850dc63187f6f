package excerpt

import (
	"context"
	"fmt"

	"github.com/nxadm/tail"
	"go.uber.org/zap"
)

// Follower streams appended lines from a growing log file, for watch
// mode where the agent re-runs extraction as the file changes.
type Follower struct {
	path   string
	logger *zap.Logger
}

// NewFollower creates a follower for the given file.
func NewFollower(path string, logger *zap.Logger) *Follower {
	return &Follower{path: path, logger: logger}
}

// Name returns a human-readable name for this follower.
func (f *Follower) Name() string {
	return fmt.Sprintf("tail:%s", f.path)
}

// Read follows the file and sends each new line to the channel. It
// returns when the context is cancelled or the tail ends.
func (f *Follower) Read(ctx context.Context, lines chan<- string) error {
	t, err := tail.TailFile(f.path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to tail file: %w", err)
	}
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				f.logger.Warn("tail_line_error", zap.Error(line.Err))
				continue
			}
			select {
			case lines <- line.Text:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
