// This file implements the bearer-credential provider. The token lives in
// a file that an external auth agent refreshes; the daemon only ever reads
// it. OS-level file system events trigger a reload so a refreshed token is
// picked up without restarting.

package credential

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// TokenSource supplies the current bearer credential for outgoing
// requests. Implementations must be safe for concurrent reads.
type TokenSource interface {
	Token() string
}

// Static is a fixed-token source, used by tests and the CLI when the
// token is passed directly.
type Static string

func (s Static) Token() string { return string(s) }

// FileSource watches a token file and serves its trimmed contents.
type FileSource struct {
	path          string
	watcher       *fsnotify.Watcher
	mu            sync.RWMutex
	token         string
	debounceTimer *time.Timer
	debounceDelay time.Duration
	stopChan      chan struct{}
}

// NewFileSource reads the token file once and returns a source that is not
// yet watching. Call Start to begin picking up refreshes.
func NewFileSource(path string) (*FileSource, error) {
	fs := &FileSource{
		path:          path,
		debounceDelay: 500 * time.Millisecond, // Wait out partial writes by the auth agent
		stopChan:      make(chan struct{}),
	}
	if err := fs.reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Token returns the most recently loaded credential.
func (fs *FileSource) Token() string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.token
}

// Start begins watching the token file for rewrites.
func (fs *FileSource) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	fs.watcher = watcher

	// Watch the containing directory rather than the file itself; some
	// auth agents replace the file atomically (write to temp, rename
	// over), which only the directory watch observes.
	if err := watcher.Add(filepath.Dir(fs.path)); err != nil {
		watcher.Close()
		return err
	}

	log.Printf("Credential watcher started for token file: %s", fs.path)

	go fs.processEvents()
	return nil
}

// Stop stops the credential watcher.
func (fs *FileSource) Stop() error {
	close(fs.stopChan)
	if fs.watcher != nil {
		return fs.watcher.Close()
	}
	return nil
}

func (fs *FileSource) processEvents() {
	for {
		select {
		case event, ok := <-fs.watcher.Events:
			if !ok {
				return
			}
			fs.handleEvent(event)

		case err, ok := <-fs.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Credential watcher error: %v", err)

		case <-fs.stopChan:
			return
		}
	}
}

func (fs *FileSource) handleEvent(event fsnotify.Event) {
	if event.Name != fs.path || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	fs.mu.Lock()
	if fs.debounceTimer != nil {
		fs.debounceTimer.Stop()
	}
	fs.debounceTimer = time.AfterFunc(fs.debounceDelay, func() {
		if err := fs.reload(); err != nil {
			log.Printf("Credential reload failed: %v", err)
			return
		}
		log.Println("Credential reloaded from token file.")
	})
	fs.mu.Unlock()
}

func (fs *FileSource) reload() error {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return fmt.Errorf("could not read token file %s: %w", fs.path, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return fmt.Errorf("token file %s is empty", fs.path)
	}

	fs.mu.Lock()
	fs.token = token
	fs.mu.Unlock()
	return nil
}
