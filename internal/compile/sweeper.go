package compile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"texforge/internal/tex"
)

// Sweeper periodically deletes compile working directories whose
// last-modified time has aged past the retention window. It runs on its
// own goroutine and never blocks compile or retrieve calls; a retrieval
// racing a deletion of the same key resolves to not-found.
type Sweeper struct {
	root      string
	retention time.Duration
	interval  time.Duration
	clock     tex.Clock
	logger    tex.Logger
	stop      chan struct{}
	done      chan struct{}
}

// NewSweeper creates a Sweeper over the given working-directory root.
func NewSweeper(root string, retention, interval time.Duration, clock tex.Clock, logger tex.Logger) *Sweeper {
	return &Sweeper{
		root:      root,
		retention: retention,
		interval:  interval,
		clock:     clock,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the background sweep loop. Call Stop to end it.
func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				removed, err := s.SweepOnce()
				if err != nil {
					s.logger.Warn("retention sweep failed", "error", err)
				} else if removed > 0 {
					s.logger.Info("retention sweep", "removed", removed)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it to finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

// SweepOnce removes every expired working directory and returns how
// many were deleted. A missing root is fine: no session has compiled yet.
func (s *Sweeper) SweepOnce() (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading work directory: %w", err)
	}

	now := s.clock.Now()
	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			// Raced with a concurrent removal; skip.
			continue
		}
		if now.Sub(info.ModTime()) <= s.retention {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, entry.Name())); err != nil {
			s.logger.Warn("failed to remove expired session", "name", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
