// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cfupload/cfupload/sdk/blobstore"
)

func TestConnectError(t *testing.T) {
	notFound := fmt.Errorf("%w: photos", blobstore.ErrContainerNotFound)
	err := connectError(notFound, "Cloud Files", "photos")
	assert.Equal(t, KindContainerNotFound, err.Kind)
	assert.Equal(t, "Container photos does not exist.", err.Message)
	assert.ErrorIs(t, err, blobstore.ErrContainerNotFound)

	err = connectError(fmt.Errorf("%w: 401", blobstore.ErrAuthentication), "Cloud Files", "photos")
	assert.Equal(t, KindAuthentication, err.Kind)
	assert.Equal(t, "Cloud Files authentication failed.", err.Message)

	err = connectError(errors.New("dial tcp: no route to host"), "S3", "photos")
	assert.Equal(t, KindConnection, err.Kind)
	assert.Equal(t, "Unable to establish connection to S3.", err.Message)
}

func TestErrorHelpers(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", newError(KindFileNotFound, nil, "File %s not found.", "x"))
	assert.Equal(t, KindFileNotFound, KindOf(err))
	assert.True(t, IsKind(err, KindFileNotFound))
	assert.Equal(t, "File x not found.", Message(err))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, "file_not_found", KindFileNotFound.String())
}
