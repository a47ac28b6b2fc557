package shutdown

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func CreateGracefulShutdownChannel() chan os.Signal {
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	return gracefulShutdown
}

// ListenForShutdown blocks until a signal arrives on notifier, then runs the
// callback and waits for it up to timeout. done receives true once the
// callback returns; the send never blocks, so give done a buffer to observe a
// callback that finishes after the timeout.
func ListenForShutdown(
	notifier chan os.Signal,
	done chan bool,
	callback func(),
	timeout time.Duration,
	l *zap.Logger,
) {
	sig := <-notifier
	l.Sugar().Infow("Received shutdown signal", zap.String("signal", sig.String()))

	finished := make(chan struct{})
	go func() {
		callback()
		close(finished)
		select {
		case done <- true:
		default:
		}
	}()

	select {
	case <-finished:
		l.Sugar().Info("Graceful shutdown complete")
	case <-time.After(timeout):
		l.Sugar().Warnw("Graceful shutdown timed out", zap.Duration("timeout", timeout))
	}
}
