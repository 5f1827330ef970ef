// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package player defines the contracts of the external playback-control, catalog and
// identity capabilities consumed by the checkpoint and resume engine.
package player

import "context"

// PlaybackState is a snapshot of what the user is currently playing.
type PlaybackState struct {
	ContextURI string
	ItemURI    string
	ProgressMs int64
	IsPlaying  bool
	DeviceID   string

	Title  string
	Artist string
	Album  string
}

// Device is an output device the playback can be transferred to.
type Device struct {
	ID       string
	Name     string
	Type     string
	IsActive bool
}

// Item is one entry of an ordered context.
type Item struct {
	URI    string
	Title  string
	Artist string
	Album  string
}

// Context is an ordered collection of items owned or followed by a user.
type Context struct {
	ID   string
	URI  string
	Name string
}

// ItemPage is one page of a context's item sequence.
type ItemPage struct {
	Items   []Item
	HasMore bool
}

// Identity resolves the authenticated user.
type Identity interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// Controller drives playback on the user's devices.
type Controller interface {
	// CurrentPlaybackState returns nil, nil when nothing is playing.
	CurrentPlaybackState(ctx context.Context) (*PlaybackState, error)
	StartAtOffset(ctx context.Context, contextURI, itemURI string, positionMs int64) error
	StartContext(ctx context.Context, contextURI string) error
	Pause(ctx context.Context) error
	// ResumeCurrent continues whatever was playing on the active device.
	ResumeCurrent(ctx context.Context) error
	ListDevices(ctx context.Context) ([]Device, error)
	TransferTo(ctx context.Context, deviceID string, forcePlay bool) error
}

// Catalog lists contexts and their item sequences.
type Catalog interface {
	ListContexts(ctx context.Context, userID string) ([]Context, error)
	ListItems(ctx context.Context, contextURI string, offset, limit int) (ItemPage, error)
	// FirstItem returns nil, nil for an empty context.
	FirstItem(ctx context.Context, contextURI string) (*Item, error)
}

// Client bundles every capability of one authenticated upstream session.
type Client interface {
	Identity
	Controller
	Catalog
}
