// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package swifttest runs a minimal Cloud Files endpoint (v1 auth, container
// HEAD, object PUT, CDN HEAD) on an httptest.Server.
package swifttest

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

const (
	AuthPath = "/auth/v1.0"
	token    = "tk-swifttest"
)

type Object struct {
	Data        []byte
	ContentType string
	Header      http.Header
}

type container struct {
	cdnURI  string
	objects map[string]*Object
}

// Server is a fake Swift v1 endpoint. The zero value is not usable, use
// NewServer.
type Server struct {
	*httptest.Server

	Username string
	APIKey   string

	mu         sync.Mutex
	containers map[string]*container
	authCalls  int
}

func NewServer(username, apiKey string) *Server {
	s := &Server{
		Username:   username,
		APIKey:     apiKey,
		containers: make(map[string]*container),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// AuthURL is the v1 auth endpoint of the server.
func (s *Server) AuthURL() string {
	return s.URL + AuthPath
}

// AddContainer creates a container. cdnURI != "" makes it CDN-enabled.
func (s *Server) AddContainer(name, cdnURI string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[name] = &container{cdnURI: cdnURI, objects: make(map[string]*Object)}
}

// Object returns a stored object.
func (s *Server) Object(containerName, name string) (*Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[containerName]
	if !ok {
		return nil, false
	}
	o, ok := c.objects[name]
	return o, ok
}

// AuthCalls is the number of successful authentications.
func (s *Server) AuthCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authCalls
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == AuthPath {
		s.auth(w, r)
		return
	}
	if r.Header.Get("X-Auth-Token") != token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/v1/"):
		s.storage(w, r, strings.TrimPrefix(r.URL.Path, "/v1/"))
	case strings.HasPrefix(r.URL.Path, "/cdn/"):
		s.cdn(w, r, strings.TrimPrefix(r.URL.Path, "/cdn/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) auth(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Auth-User") != s.Username || r.Header.Get("X-Auth-Key") != s.APIKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	s.authCalls++
	s.mu.Unlock()

	w.Header().Set("X-Storage-Url", s.URL+"/v1/acct")
	w.Header().Set("X-Auth-Token", token)
	w.Header().Set("X-Cdn-Management-Url", s.URL+"/cdn/acct")
	w.WriteHeader(http.StatusNoContent)
}

// splitPath turns the decoded "acct/c/o/x" into ("c", "o/x").
func splitPath(p string) (string, string) {
	p = strings.TrimPrefix(p, "acct/")
	containerName, object, _ := strings.Cut(p, "/")
	return containerName, object
}

func (s *Server) storage(w http.ResponseWriter, r *http.Request, p string) {
	containerName, object := splitPath(p)

	s.mu.Lock()
	c, ok := s.containers[containerName]
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case object == "" && (r.Method == http.MethodHead || r.Method == http.MethodGet):
		s.mu.Lock()
		var bytes int
		for _, o := range c.objects {
			bytes += len(o.Data)
		}
		count := len(c.objects)
		s.mu.Unlock()
		w.Header().Set("X-Container-Object-Count", strconv.Itoa(count))
		w.Header().Set("X-Container-Bytes-Used", strconv.Itoa(bytes))
		w.WriteHeader(http.StatusNoContent)

	case object != "" && r.Method == http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		sum := md5.Sum(data)
		s.mu.Lock()
		c.objects[object] = &Object{
			Data:        data,
			ContentType: r.Header.Get("Content-Type"),
			Header:      r.Header.Clone(),
		}
		s.mu.Unlock()
		w.Header().Set("Etag", hex.EncodeToString(sum[:]))
		w.WriteHeader(http.StatusCreated)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) cdn(w http.ResponseWriter, r *http.Request, p string) {
	containerName, _ := splitPath(p)
	s.mu.Lock()
	c, ok := s.containers[containerName]
	s.mu.Unlock()
	if r.Method != http.MethodHead || !ok || c.cdnURI == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("X-Cdn-Enabled", "True")
	w.Header().Set("X-Cdn-Uri", c.cdnURI)
	w.Header().Set("X-Cdn-Ssl-Uri", strings.Replace(c.cdnURI, "http://", "https://", 1))
	w.WriteHeader(http.StatusNoContent)
}
