package main

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
)

// runWatch re-runs the demo scenario every time a file directly in dir is
// written or created, using fsnotify for OS-native notifications.
// Subdirectories are not watched, and removals and renames do not trigger a
// re-run. It is grounded on
// internal/runtime/vfs/watch_fsnotify.go's FSNotifyWatcher: a *fsnotify.Watcher
// wrapped with a single event/error select loop, here driving a rerun
// instead of feeding a channel-based Watcher interface.
func runWatch(dir string, capacityBytes uintptr, chunkListCap int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	fmt.Printf("watching %s for changes (ctrl-c to stop)\n", dir)

	if err := runScenario(os.Stdout, capacityBytes, chunkListCap); err != nil {
		return err
	}

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			fmt.Printf("\n-- %s changed, re-running scenario --\n", ev.Name)

			if err := runScenario(os.Stdout, capacityBytes, chunkListCap); err != nil {
				return err
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			fmt.Fprintln(os.Stderr, "watch error:", err)
		}
	}
}
