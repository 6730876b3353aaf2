// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"strings"

	"github.com/google/uuid"
)

// TransID returns a fresh id sent with every request of one run, so server
// side logs can be matched with ours.
func TransID() string {
	return "cfupload-" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
