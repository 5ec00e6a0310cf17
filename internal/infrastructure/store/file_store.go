package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/you/sessionkit/domain"
)

// Legacy file names used by the v1 session format, which kept the token and
// user in separate files. Clear removes them so a downgrade cannot resurrect
// a signed-out session.
var legacyFileNames = []string{"session.token", "session.user", "scantyx_jwt"}

// storedSession is the on-disk session document. Token and user live in one
// document so a reader can never observe one without the other.
type storedSession struct {
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
	SavedAt time.Time    `json:"saved_at"`
}

// FileStoreImpl implements domain.TokenStore on top of a single JSON file.
type FileStoreImpl struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewFileStore creates a file-backed token store rooted at path.
func NewFileStore(path string, logger *zap.Logger) domain.TokenStore {
	return &FileStoreImpl{path: path, logger: logger}
}

// Load implements domain.TokenStore. Corrupt or partial documents are treated
// as absent: logged, never surfaced.
func (s *FileStoreImpl) Load(ctx context.Context) (string, *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("session file unreadable, treating as absent",
				zap.String("path", s.path), zap.Error(err))
		}
		return "", nil
	}

	var doc storedSession
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("session file corrupt, treating as absent",
			zap.String("path", s.path), zap.Error(err))
		return "", nil
	}

	// A token without its user (or vice versa) violates the pair rule and is
	// discarded wholesale.
	if doc.Token == "" || doc.User == nil {
		if doc.Token != "" || doc.User != nil {
			s.logger.Warn("session file holds a partial pair, treating as absent",
				zap.String("path", s.path))
		}
		return "", nil
	}

	return doc.Token, doc.User
}

// Save implements domain.TokenStore. The document is written to a temp file
// and renamed into place so readers see either the old pair or the new one.
func (s *FileStoreImpl) Save(ctx context.Context, token string, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(storedSession{Token: token, User: user, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, s.path)
}

// Clear implements domain.TokenStore. Removes the session document plus any
// legacy-format remnants next to it.
func (s *FileStoreImpl) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}

	dir := filepath.Dir(s.path)
	for _, name := range legacyFileNames {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove legacy session file",
				zap.String("name", name), zap.Error(err))
		}
	}
	return nil
}
