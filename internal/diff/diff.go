// Package diff classifies freshly scanned files as new or changed
// relative to a stored snapshot.
package diff

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dirsnap/dirsnap/internal/scan"
	"github.com/dirsnap/dirsnap/internal/store"
)

// Policy selects which field comparison marks a tracked file as changed.
type Policy string

const (
	// PolicyAnyField reports a file when size, mtime, or hash differs
	// from the stored record. This is the default.
	PolicyAnyField Policy = "any"
	// PolicyAllFields reports a file only when all three fields differ
	// simultaneously. A content change that leaves the size identical
	// goes unreported under this policy; it exists for behavioral
	// parity with older diffgen databases.
	PolicyAllFields Policy = "all"
)

// ParsePolicy validates a policy string, defaulting to PolicyAnyField
// when empty.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", string(PolicyAnyField):
		return PolicyAnyField, nil
	case string(PolicyAllFields):
		return PolicyAllFields, nil
	default:
		return "", fmt.Errorf("unknown change policy %q (want any or all)", s)
	}
}

// Engine compares fresh records against a stored snapshot. Files absent
// from the snapshot are always new; stored paths never seen in the
// fresh scan are never reported (deletion detection is out of scope).
type Engine struct {
	store  *store.Store
	policy Policy
	logger *zap.Logger
}

// New creates an engine reading from st with the given change policy.
func New(st *store.Store, policy Policy) *Engine {
	if policy == "" {
		policy = PolicyAnyField
	}
	return &Engine{store: st, policy: policy, logger: zap.NewNop()}
}

// SetLogger sets the logger for per-record debug messages.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Classify reports whether the fresh record is new or changed relative
// to the snapshot. The record's hash future is resolved here, before
// any comparison, so a hash read failure aborts the run regardless of
// policy.
func (e *Engine) Classify(ctx context.Context, rec *scan.FileRecord) (bool, error) {
	digest, err := rec.MD5()
	if err != nil {
		return false, err
	}

	old, ok, err := e.store.Lookup(ctx, rec.Name)
	if err != nil {
		return false, err
	}
	if !ok {
		e.logger.Debug("new file", zap.String("name", rec.Name))
		return true, nil
	}

	sizeDiffers := rec.Size != old.Size
	mtimeDiffers := rec.Mtime != old.Mtime
	hashDiffers := digest != old.MD5

	var changed bool
	switch e.policy {
	case PolicyAllFields:
		changed = sizeDiffers && mtimeDiffers && hashDiffers
	default:
		changed = sizeDiffers || mtimeDiffers || hashDiffers
	}

	if changed {
		e.logger.Debug("changed file",
			zap.String("name", rec.Name),
			zap.Bool("size", sizeDiffers),
			zap.Bool("mtime", mtimeDiffers),
			zap.Bool("hash", hashDiffers))
	}
	return changed, nil
}
