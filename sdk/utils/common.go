// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
)

// ContentTypeFor picks the MIME type of an object. A known extension of
// name wins; otherwise the first bytes of the content are sniffed.
func ContentTypeFor(name string, header []byte) string {
	if ext := path.Ext(name); ext != "" {
		if ct := mime.TypeByExtension(strings.ToLower(ext)); ct != "" {
			return ct
		}
	}
	return http.DetectContentType(header)
}

// JoinObjectURL appends an object name to a public base URI. Every segment
// is escaped; slashes in name are kept as path separators.
func JoinObjectURL(base, name string) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

// TranslateFormat maps an --output value (or alias) to its canonical name.
func TranslateFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	for key, aliases := range Formats {
		if key == f || slices.Contains(aliases, f) {
			return key, nil
		}
	}
	return "", fmt.Errorf("unsupported output format %q (use short, json or yaml)", format)
}

func HumanSize(n int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)
	switch {
	case n >= GB:
		return fmt.Sprintf("%.2f GB", float64(n)/float64(GB))
	case n >= MB:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(MB))
	case n >= KB:
		return fmt.Sprintf("%.2f KB", float64(n)/float64(KB))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
