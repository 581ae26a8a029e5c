// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package storage defines the key-value backends that persist the history buckets.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for keys that are not set.
var ErrNotFound = errors.New("key not found")

// Backend is a string keyed store of opaque values. Set replaces the whole value of a key
// in one step, readers never observe a partially written value.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
