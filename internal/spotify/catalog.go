// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ManuGH/resumer/internal/player"
)

const (
	playlistPageSize = 50
	maxTrackPageSize = 100
)

// PlaylistID extracts the playlist id from a "spotify:playlist:<id>" URI.
// Anything without a colon is taken as a bare id.
func PlaylistID(contextURI string) (string, error) {
	parts := strings.Split(contextURI, ":")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return parts[0], nil
	case len(parts) == 3 && parts[0] == "spotify" && parts[1] == "playlist" && parts[2] != "":
		return parts[2], nil
	default:
		return "", &APIError{Sentinel: player.ErrNotFound, Operation: "playlist_id", Message: fmt.Sprintf("unsupported context %q", contextURI)}
	}
}

type pagingObject[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next"`
	Total int    `json:"total"`
}

// ListContexts returns every playlist of userID, following pagination to the end.
func (c *Client) ListContexts(ctx context.Context, userID string) ([]player.Context, error) {
	var out []player.Context
	path := "/v1/users/" + url.PathEscape(userID) + "/playlists"
	for offset := 0; ; {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(playlistPageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page pagingObject[struct {
			ID   string `json:"id"`
			URI  string `json:"uri"`
			Name string `json:"name"`
		}]
		if _, err := c.do(ctx, "playlists", http.MethodGet, path, q, nil, &page); err != nil {
			return nil, err
		}
		for _, p := range page.Items {
			out = append(out, player.Context{ID: p.ID, URI: p.URI, Name: p.Name})
		}
		offset += len(page.Items)
		if page.Next == "" || len(page.Items) == 0 {
			return out, nil
		}
	}
}

type playlistTrack struct {
	Track *trackObject `json:"track"`
}

// ListItems returns one page of a playlist's tracks. Entries without a track
// object (removed or unavailable) keep their slot with an empty URI so that
// offsets stay aligned with the playlist.
func (c *Client) ListItems(ctx context.Context, contextURI string, offset, limit int) (player.ItemPage, error) {
	id, err := PlaylistID(contextURI)
	if err != nil {
		return player.ItemPage{}, err
	}
	if limit <= 0 || limit > maxTrackPageSize {
		limit = maxTrackPageSize
	}
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var page pagingObject[playlistTrack]
	if _, err := c.do(ctx, "playlist_tracks", http.MethodGet, "/v1/playlists/"+url.PathEscape(id)+"/tracks", q, nil, &page); err != nil {
		return player.ItemPage{}, err
	}

	res := player.ItemPage{HasMore: page.Next != ""}
	for _, entry := range page.Items {
		if entry.Track == nil {
			res.Items = append(res.Items, player.Item{})
			continue
		}
		res.Items = append(res.Items, entry.Track.item())
	}
	return res, nil
}

// FirstItem fetches a single-entry page; it returns nil, nil for an empty playlist.
func (c *Client) FirstItem(ctx context.Context, contextURI string) (*player.Item, error) {
	page, err := c.ListItems(ctx, contextURI, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 || page.Items[0].URI == "" {
		return nil, nil
	}
	it := page.Items[0]
	return &it, nil
}
