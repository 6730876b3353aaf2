// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cfupload/cfupload/sdk/config"
)

// Memory is an in-memory blob store for tests and dry runs.
type Memory struct {
	mu         sync.RWMutex
	containers map[string]*memoryContainerData

	// Username/APIKey, when set, are the only accepted credentials.
	Username string
	APIKey   string
	// OpenErr is returned by Open as-is when non-nil.
	OpenErr error

	opened int
	closed int
}

type memoryContainerData struct {
	public    bool
	publicURL string
	objects   map[string]*memoryObjectData
}

type memoryObjectData struct {
	data        []byte
	contentType string
	transID     string
}

func NewMemory() *Memory {
	return &Memory{containers: make(map[string]*memoryContainerData)}
}

// AddContainer registers a container. publicURL != "" makes it public.
func (m *Memory) AddContainer(name, publicURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.containers[name] = &memoryContainerData{
		public:    publicURL != "",
		publicURL: strings.TrimSuffix(publicURL, "/"),
		objects:   make(map[string]*memoryObjectData),
	}
}

// Object returns the stored bytes and content type of an object.
func (m *Memory) Object(container, name string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.containers[container]
	if !ok {
		return nil, "", false
	}
	o, ok := c.objects[name]
	if !ok {
		return nil, "", false
	}
	return o.data, o.contentType, true
}

// TransID returns the transaction id the object was written with.
func (m *Memory) TransID(container, name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.containers[container]; ok {
		if o, ok := c.objects[name]; ok {
			return o.transID
		}
	}
	return ""
}

// OpenSessions is the number of sessions opened and not yet closed.
func (m *Memory) OpenSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opened - m.closed
}

// Open satisfies Opener.
func (m *Memory) Open(_ context.Context, conf config.Config) (Session, error) {
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	if m.Username != "" && (conf.Credentials.Username != m.Username || conf.Credentials.APIKey != m.APIKey) {
		return nil, fmt.Errorf("%w: invalid username or api key", ErrAuthentication)
	}
	m.mu.Lock()
	m.opened++
	m.mu.Unlock()
	return &memorySession{store: m}, nil
}

type memorySession struct {
	store  *Memory
	closed bool
}

func (s *memorySession) Container(_ context.Context, name string) (Container, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	if _, ok := s.store.containers[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, name)
	}
	return &memoryContainer{store: s.store, name: name}, nil
}

func (s *memorySession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.store.mu.Lock()
	s.store.closed++
	s.store.mu.Unlock()
	return nil
}

type memoryContainer struct {
	store *Memory
	name  string
}

func (c *memoryContainer) CreateObject(name string, opts ObjectOptions) Object {
	return &memoryObject{container: c, name: name, opts: opts}
}

func (c *memoryContainer) IsPublic(_ context.Context) (bool, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	return c.store.containers[c.name].public, nil
}

func (c *memoryContainer) PublicURL(_ context.Context) (string, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	return c.store.containers[c.name].publicURL, nil
}

type memoryObject struct {
	container *memoryContainer
	name      string
	opts      ObjectOptions
}

func (o *memoryObject) WriteFromStream(_ context.Context, r io.Reader) (*ObjectInfo, error) {
	return o.write(r, -1)
}

func (o *memoryObject) WriteFromFile(_ context.Context, path string) (*ObjectInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local file: %w", err)
	}
	defer file.Close()
	st, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat error: %w", err)
	}
	return o.write(file, st.Size())
}

func (o *memoryObject) write(r io.Reader, total int64) (*ObjectInfo, error) {
	reader, _, finish := tracked(r, o.name, total, o.opts.Progress)
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("upload error: %w", err)
	}
	finish()

	sum := md5.Sum(buf.Bytes())
	o.container.store.mu.Lock()
	o.container.store.containers[o.container.name].objects[o.name] = &memoryObjectData{
		data:        buf.Bytes(),
		contentType: o.opts.ContentType,
		transID:     o.opts.TransID,
	}
	o.container.store.mu.Unlock()

	return &ObjectInfo{
		Name:        o.name,
		Size:        int64(buf.Len()),
		ETag:        hex.EncodeToString(sum[:]),
		ContentType: o.opts.ContentType,
	}, nil
}
