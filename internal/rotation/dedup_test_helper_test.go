/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package rotation

import (
	"testing"
	"time"

	"github.com/friendsincode/signalwave/internal/idempotency"
)

func newTestDedupStore(t *testing.T) (*idempotency.Store, error) {
	t.Helper()
	return idempotency.Open(t.TempDir(), time.Hour)
}
