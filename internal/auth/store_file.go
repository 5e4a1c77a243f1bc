package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type FileCredentialStore struct {
	path string

	mu sync.Mutex
}

func NewFileCredentialStore(path string) (*FileCredentialStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("credential state file path is required")
	}
	return &FileCredentialStore{path: path}, nil
}

func (s *FileCredentialStore) Load(_ context.Context) ([]Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	if len(b) == 0 {
		return nil, nil
	}

	var decoded []Cookie
	if err := json.Unmarshal(b, &decoded); err != nil {
		return nil, fmt.Errorf("decode credential file: %w", err)
	}
	out := decoded[:0]
	for _, c := range decoded {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *FileCredentialStore) Save(_ context.Context, cookies []Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cookies == nil {
		cookies = []Cookie{}
	}
	b, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("mkdir credential dir: %w", err)
	}
	// The file holds live session cookies: owner-only.
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}

func (s *FileCredentialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
