// spinner.go implements the spinner shown while a configuration push is in flight.
package ui

import (
	"fmt"
	"io"
	"time"
)

// StartSpinner prints a lightweight ASCII spinner until the returned stop function is called.
// The stop function prints either "[done]" or "[fail]" depending on the success flag. When w is
// not a terminal only the final line is written.
func StartSpinner(w io.Writer, message string) func(success bool) {
	done := make(chan struct{})
	exited := make(chan struct{})
	if IsTerminalWriter(w) {
		frames := []rune{'|', '/', '-', '\\'}
		go func() {
			defer close(exited)
			ticker := time.NewTicker(120 * time.Millisecond)
			defer ticker.Stop()
			idx := 0
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					fmt.Fprintf(w, "\r%s %c", message, frames[idx])
					idx = (idx + 1) % len(frames)
				}
			}
		}()
	} else {
		close(exited)
	}
	return func(success bool) {
		select {
		case <-done:
			return
		default:
			close(done)
		}
		<-exited
		status := "[done]"
		if !success {
			status = "[fail]"
		}
		fmt.Fprintf(w, "\r%s %s\n", message, status)
	}
}
