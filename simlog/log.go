// Package simlog is the simulator's logging backend: a single package-level
// logrus logger, the structured-fields idiom the rest of the tree uses
// instead of fmt.Sprintf, and a rotation helper adapted from the teacher's
// logrecorder ticker-based file rotation.
package simlog

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

// Fields is the structured-field map passed to Logger.WithFields.
type Fields = logrus.Fields

func init() {
	Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	Logger.SetOutput(os.Stdout)
}

// Rotate points Logger at a fresh file under dir, reopening a new one on
// every tick of `every`. Returns a stop func that closes the current file
// and halts rotation.
func Rotate(dir string, every time.Duration) (stop func(), err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	open := func() (*os.File, error) {
		name := filepath.Join(dir, time.Now().Format("20060102_150405")+".log")
		return os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	}

	f, err := open()
	if err != nil {
		return nil, err
	}
	Logger.SetOutput(f)

	ticker := time.NewTicker(every)
	done := make(chan struct{})
	go func() {
		cur := f
		for {
			select {
			case <-ticker.C:
				next, err := open()
				if err != nil {
					continue
				}
				Logger.SetOutput(next)
				cur.Close()
				cur = next
			case <-done:
				ticker.Stop()
				cur.Close()
				return
			}
		}
	}()

	return func() { close(done) }, nil
}
