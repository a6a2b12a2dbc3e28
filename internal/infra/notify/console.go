package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	chatapp "recyclemart/internal/app/chat"
)

// Console prints notifications as single colored lines.
type Console struct {
	Out io.Writer

	mu       sync.Mutex
	infoTag  *color.Color
	errorTag *color.Color
}

func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stderr
	}
	return &Console{
		Out:      out,
		infoTag:  color.New(color.FgCyan, color.Bold),
		errorTag: color.New(color.FgRed, color.Bold),
	}
}

func (c *Console) Notify(n chatapp.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tag := c.infoTag.Sprint("info")
	if n.Level == chatapp.LevelError {
		tag = c.errorTag.Sprint("error")
	}
	if n.Detail == "" {
		fmt.Fprintf(c.Out, "[%s] %s\n", tag, n.Title)
		return
	}
	fmt.Fprintf(c.Out, "[%s] %s: %s\n", tag, n.Title, n.Detail)
}

var _ chatapp.Notifier = (*Console)(nil)
