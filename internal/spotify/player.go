// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package spotify

import (
	"context"
	"net/http"
	"strings"

	"github.com/ManuGH/resumer/internal/player"
)

type artistObject struct {
	Name string `json:"name"`
}

type trackObject struct {
	URI     string         `json:"uri"`
	Name    string         `json:"name"`
	Artists []artistObject `json:"artists"`
	Album   struct {
		Name string `json:"name"`
	} `json:"album"`
}

func (t trackObject) item() player.Item {
	return player.Item{
		URI:    t.URI,
		Title:  t.Name,
		Artist: joinArtists(t.Artists),
		Album:  t.Album.Name,
	}
}

func joinArtists(artists []artistObject) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

type deviceObject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

type playbackObject struct {
	Device     *deviceObject `json:"device"`
	ProgressMs int64         `json:"progress_ms"`
	IsPlaying  bool          `json:"is_playing"`
	Item       *trackObject  `json:"item"`
	Context    *struct {
		URI string `json:"uri"`
	} `json:"context"`
}

// CurrentPlaybackState returns nil, nil when the API reports no playback (204).
func (c *Client) CurrentPlaybackState(ctx context.Context) (*player.PlaybackState, error) {
	var pb playbackObject
	status, err := c.do(ctx, "playback_state", http.MethodGet, "/v1/me/player", nil, nil, &pb)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || (pb.Item == nil && pb.Context == nil) {
		return nil, nil
	}

	st := &player.PlaybackState{
		ProgressMs: pb.ProgressMs,
		IsPlaying:  pb.IsPlaying,
	}
	if pb.Context != nil {
		st.ContextURI = pb.Context.URI
	}
	if pb.Device != nil {
		st.DeviceID = pb.Device.ID
	}
	if pb.Item != nil {
		it := pb.Item.item()
		st.ItemURI = it.URI
		st.Title = it.Title
		st.Artist = it.Artist
		st.Album = it.Album
	}
	return st, nil
}

type playOffset struct {
	URI string `json:"uri"`
}

type playRequest struct {
	ContextURI string      `json:"context_uri"`
	Offset     *playOffset `json:"offset,omitempty"`
	PositionMs int64       `json:"position_ms,omitempty"`
}

// StartAtOffset plays itemURI inside contextURI at positionMs.
func (c *Client) StartAtOffset(ctx context.Context, contextURI, itemURI string, positionMs int64) error {
	body := playRequest{ContextURI: contextURI, PositionMs: positionMs}
	if itemURI != "" {
		body.Offset = &playOffset{URI: itemURI}
	}
	_, err := c.do(ctx, "play_offset", http.MethodPut, "/v1/me/player/play", nil, body, nil)
	return err
}

// StartContext plays contextURI from its first item.
func (c *Client) StartContext(ctx context.Context, contextURI string) error {
	_, err := c.do(ctx, "play_context", http.MethodPut, "/v1/me/player/play", nil, playRequest{ContextURI: contextURI}, nil)
	return err
}

// Pause pauses playback on the active device.
func (c *Client) Pause(ctx context.Context) error {
	_, err := c.do(ctx, "pause", http.MethodPut, "/v1/me/player/pause", nil, nil, nil)
	return err
}

// ResumeCurrent continues the current playback without changing what is played.
func (c *Client) ResumeCurrent(ctx context.Context) error {
	_, err := c.do(ctx, "play", http.MethodPut, "/v1/me/player/play", nil, nil, nil)
	return err
}

// ListDevices returns the user's available devices in API order.
func (c *Client) ListDevices(ctx context.Context) ([]player.Device, error) {
	var res struct {
		Devices []deviceObject `json:"devices"`
	}
	if _, err := c.do(ctx, "devices", http.MethodGet, "/v1/me/player/devices", nil, nil, &res); err != nil {
		return nil, err
	}
	out := make([]player.Device, 0, len(res.Devices))
	for _, d := range res.Devices {
		if d.ID == "" {
			continue // restricted devices cannot be targeted
		}
		out = append(out, player.Device{ID: d.ID, Name: d.Name, Type: d.Type, IsActive: d.IsActive})
	}
	return out, nil
}

// TransferTo moves playback to deviceID.
func (c *Client) TransferTo(ctx context.Context, deviceID string, forcePlay bool) error {
	body := struct {
		DeviceIDs []string `json:"device_ids"`
		Play      bool     `json:"play"`
	}{DeviceIDs: []string{deviceID}, Play: forcePlay}
	_, err := c.do(ctx, "transfer", http.MethodPut, "/v1/me/player", nil, body, nil)
	return err
}
