// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"gopkg.in/yaml.v3"
)

type savedCookie struct {
	Name    string    `yaml:"name"`
	Value   string    `yaml:"value"`
	Expires time.Time `yaml:"expires,omitempty"`
}

// FileJar is a cookie jar that can save the API origin's cookies to a YAML
// file, so the refresh cookie outlives a single process.
type FileJar struct {
	*cookiejar.Jar
	path   string
	origin *url.URL

	// cookiejar does not hand expiries back, so they are tracked by name
	mu      sync.Mutex
	expires map[string]time.Time
}

// LoadFileJar returns a jar seeded from path. A missing file gives an empty
// jar.
func LoadFileJar(path, baseURL string) (*FileJar, error) {
	origin, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	j := &FileJar{Jar: jar, path: path, origin: origin, expires: make(map[string]time.Time)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return j, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading cookie file: %w", err)
	}

	var saved []savedCookie
	if err := yaml.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("error parsing cookie file: %w", err)
	}
	now := time.Now()
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		if !c.Expires.IsZero() && !c.Expires.After(now) {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/", Expires: c.Expires, HttpOnly: true})
	}
	j.SetCookies(origin, cookies)
	return j, nil
}

// SetCookies records each cookie's expiry before handing it to the jar.
func (j *FileJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	now := time.Now()
	j.mu.Lock()
	for _, c := range cookies {
		switch {
		case c.MaxAge > 0:
			j.expires[c.Name] = now.Add(time.Duration(c.MaxAge) * time.Second)
		case c.MaxAge < 0:
			delete(j.expires, c.Name)
		case !c.Expires.IsZero():
			j.expires[c.Name] = c.Expires
		default:
			delete(j.expires, c.Name)
		}
	}
	j.mu.Unlock()
	j.Jar.SetCookies(u, cookies)
}

// Save writes the cookies the jar would send to the API. With none left the
// file is removed.
func (j *FileJar) Save() error {
	cookies := j.Cookies(j.origin)
	if len(cookies) == 0 {
		if err := os.Remove(j.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error removing cookie file: %w", err)
		}
		return nil
	}

	j.mu.Lock()
	saved := make([]savedCookie, 0, len(cookies))
	for _, c := range cookies {
		saved = append(saved, savedCookie{Name: c.Name, Value: c.Value, Expires: j.expires[c.Name]})
	}
	j.mu.Unlock()
	data, err := yaml.Marshal(saved)
	if err != nil {
		return fmt.Errorf("error encoding cookies: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("error creating cookie directory: %w", err)
	}
	if err := os.WriteFile(j.path, data, 0o600); err != nil {
		return fmt.Errorf("error writing cookie file: %w", err)
	}
	return nil
}
