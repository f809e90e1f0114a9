// Package notify delivers the run summary. One attempt per message; callers
// decide what a failure means.
package notify

import (
	"context"
	"fmt"
	"io"
)

type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Stdout prints messages instead of delivering them (dry runs).
type Stdout struct {
	W io.Writer
}

func (s Stdout) Send(_ context.Context, text string) error {
	_, err := fmt.Fprintf(s.W, "%s\n\n", text)
	return err
}
