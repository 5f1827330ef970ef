// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/resumer/internal/checkpoint"
	"github.com/ManuGH/resumer/internal/player"
	"github.com/ManuGH/resumer/internal/resume"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClient is an in-memory player.Client.
type fakeClient struct {
	mu sync.Mutex

	userID   string
	userErr  error
	state    *player.PlaybackState
	stateErr error

	contexts []player.Context
	items    map[string][]player.Item
	itemsErr map[string]error
	firstErr error

	startErrs []error
	devices   []player.Device
	calls     []string
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClient) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) CurrentUserID(context.Context) (string, error) { return f.userID, f.userErr }

func (f *fakeClient) CurrentPlaybackState(context.Context) (*player.PlaybackState, error) {
	return f.state, f.stateErr
}

func (f *fakeClient) StartAtOffset(_ context.Context, _, itemURI string, _ int64) error {
	f.record("start_at_offset:" + itemURI)
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.startErrs) == 0 {
		return nil
	}
	err := f.startErrs[0]
	f.startErrs = f.startErrs[1:]
	return err
}

func (f *fakeClient) StartContext(_ context.Context, contextURI string) error {
	f.record("start_context:" + contextURI)
	return nil
}

func (f *fakeClient) Pause(context.Context) error {
	f.record("pause")
	return nil
}

func (f *fakeClient) ResumeCurrent(context.Context) error {
	f.record("resume_current")
	return nil
}

func (f *fakeClient) ListDevices(context.Context) ([]player.Device, error) {
	f.record("list_devices")
	return f.devices, nil
}

func (f *fakeClient) TransferTo(_ context.Context, deviceID string, _ bool) error {
	f.record("transfer:" + deviceID)
	return nil
}

func (f *fakeClient) ListContexts(context.Context, string) ([]player.Context, error) {
	return f.contexts, nil
}

func (f *fakeClient) ListItems(_ context.Context, contextURI string, offset, limit int) (player.ItemPage, error) {
	if err := f.itemsErr[contextURI]; err != nil {
		return player.ItemPage{}, err
	}
	all := f.items[contextURI]
	if offset >= len(all) {
		return player.ItemPage{}, nil
	}
	end := min(offset+limit, len(all))
	return player.ItemPage{Items: all[offset:end], HasMore: end < len(all)}, nil
}

func (f *fakeClient) FirstItem(_ context.Context, contextURI string) (*player.Item, error) {
	if f.firstErr != nil {
		return nil, f.firstErr
	}
	all := f.items[contextURI]
	if len(all) == 0 {
		return nil, nil
	}
	it := all[0]
	return &it, nil
}

var fixedNow = time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *checkpoint.Store) {
	t.Helper()
	store := checkpoint.NewStore(nil)
	return NewService(store, Options{Now: func() time.Time { return fixedNow }}), store
}

func TestSaveCurrentPosition(t *testing.T) {
	svc, store := newService(t)
	client := &fakeClient{
		userID: "alice",
		state: &player.PlaybackState{
			ContextURI: "spotify:playlist:p1",
			ItemURI:    "spotify:track:t2",
			ProgressMs: 12_345,
			IsPlaying:  true,
			Title:      "Two",
			Artist:     "Band",
			Album:      "LP",
		},
	}

	cp, err := svc.SaveCurrentPosition(context.Background(), client)
	require.NoError(t, err)

	got, ok := store.Get("alice", "spotify:playlist:p1")
	require.True(t, ok)
	assert.Equal(t, cp, got)
	assert.Equal(t, checkpoint.Checkpoint{
		UserID:     "alice",
		ContextURI: "spotify:playlist:p1",
		ItemURI:    "spotify:track:t2",
		ProgressMs: 12_345,
		Title:      "Two",
		Artist:     "Band",
		Album:      "LP",
		SavedAt:    fixedNow,
	}, got)
}

func TestSaveCurrentPosition_NothingPlaying(t *testing.T) {
	tests := []struct {
		name  string
		state *player.PlaybackState
	}{
		{"no playback", nil},
		{"no context", &player.PlaybackState{ItemURI: "spotify:track:t1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newService(t)
			_, err := svc.SaveCurrentPosition(context.Background(), &fakeClient{userID: "alice", state: tt.state})
			assert.ErrorIs(t, err, ErrNothingPlaying)
			assert.Zero(t, store.Len())
		})
	}
}

func TestSaveCurrentPosition_IdentityFailure(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.SaveCurrentPosition(context.Background(), &fakeClient{userErr: player.ErrUnauthorized})
	assert.ErrorIs(t, err, player.ErrUnauthorized)
}

func TestSaveCurrentPosition_PersistFailureKeepsMemory(t *testing.T) {
	store := checkpoint.NewStore(checkpoint.PersisterFunc(func(context.Context, checkpoint.Snapshot) error {
		return errors.New("read-only filesystem")
	}))
	svc := NewService(store, Options{})
	client := &fakeClient{userID: "alice", state: &player.PlaybackState{ContextURI: "c", ItemURI: "i"}}

	_, err := svc.SaveCurrentPosition(context.Background(), client)
	assert.ErrorIs(t, err, checkpoint.ErrPersist)
	_, ok := store.Get("alice", "c")
	assert.True(t, ok)
}

func TestListContexts(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, checkpoint.Checkpoint{UserID: "alice", ContextURI: "ctx:half", ItemURI: "i2", Title: "Saved"}))
	require.NoError(t, store.Save(ctx, checkpoint.Checkpoint{UserID: "alice", ContextURI: "ctx:gone", ItemURI: "removed"}))
	require.NoError(t, store.Save(ctx, checkpoint.Checkpoint{UserID: "alice", ContextURI: "ctx:broken", ItemURI: "i0"}))
	require.NoError(t, store.Save(ctx, checkpoint.Checkpoint{UserID: "bob", ContextURI: "ctx:fresh", ItemURI: "i1"}))

	four := []player.Item{{URI: "i0", Title: "Zero", Artist: "A"}, {URI: "i1"}, {URI: "i2"}, {URI: "i3"}}
	client := &fakeClient{
		userID: "alice",
		contexts: []player.Context{
			{ID: "half", URI: "ctx:half", Name: "Half"},
			{ID: "gone", URI: "ctx:gone", Name: "Gone"},
			{ID: "broken", URI: "ctx:broken", Name: "Broken"},
			{ID: "fresh", URI: "ctx:fresh", Name: "Fresh"},
		},
		items: map[string][]player.Item{
			"ctx:half":  four,
			"ctx:gone":  four,
			"ctx:fresh": four,
		},
		itemsErr: map[string]error{"ctx:broken": errors.New("catalog timeout")},
	}

	got, err := svc.ListContexts(ctx, client)
	require.NoError(t, err)
	require.Len(t, got, 4)

	require.NotNil(t, got[0].ProgressPct)
	assert.Equal(t, 50, *got[0].ProgressPct)
	assert.Equal(t, "Saved", got[0].Title)

	assert.Nil(t, got[1].ProgressPct, "missing item means no progress, not zero")
	assert.Nil(t, got[2].ProgressPct, "catalog failure degrades the entry")
	assert.Equal(t, "Broken", got[2].Name)

	assert.Nil(t, got[3].ProgressPct, "bob's checkpoint must not leak into alice's listing")
	assert.Equal(t, "Zero", got[3].Title)
	assert.Equal(t, "A", got[3].Artist)
}

func TestListContexts_FirstItemFailure(t *testing.T) {
	svc, _ := newService(t)
	client := &fakeClient{
		userID:   "alice",
		contexts: []player.Context{{ID: "x", URI: "ctx:x", Name: "X"}},
		firstErr: errors.New("boom"),
	}

	got, err := svc.ListContexts(context.Background(), client)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ContextProgress{ID: "x", URI: "ctx:x", Name: "X"}, got[0])
}

func TestResume_UsesLivePolicy(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, checkpoint.Checkpoint{UserID: "alice", ContextURI: "ctx:1", ItemURI: "i3", ProgressMs: 900}))

	client := &fakeClient{userID: "alice"}
	res, err := svc.Resume(ctx, client, "ctx:1")
	require.NoError(t, err)
	assert.Equal(t, resume.OutcomeResumed, res.Outcome)
	assert.Equal(t, int64(0), res.Decision.PositionMs)

	svc.SetPolicy(resume.Policy{Position: resume.PositionSaved})
	res, err = svc.Resume(ctx, client, "ctx:1")
	require.NoError(t, err)
	assert.Equal(t, int64(900), res.Decision.PositionMs)
}

func TestResume_NoCheckpoint(t *testing.T) {
	svc, _ := newService(t)
	client := &fakeClient{userID: "alice"}

	res, err := svc.Resume(context.Background(), client, "ctx:new")
	require.NoError(t, err)
	assert.Equal(t, resume.OutcomeStarted, res.Outcome)
	assert.Equal(t, []string{"start_context:ctx:new"}, client.callList())
}

func TestControl(t *testing.T) {
	svc, _ := newService(t)
	client := &fakeClient{}

	require.NoError(t, svc.Control(context.Background(), client, CommandPause))
	require.NoError(t, svc.Control(context.Background(), client, CommandPlay))
	assert.Error(t, svc.Control(context.Background(), client, Command(42)))
	assert.Equal(t, []string{"pause", "resume_current"}, client.callList())

	assert.Equal(t, "paused", CommandPause.Status())
	assert.Equal(t, "playing", CommandPlay.Status())
}

func TestIsPlaying(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	playing, err := svc.IsPlaying(ctx, &fakeClient{state: &player.PlaybackState{IsPlaying: true}})
	require.NoError(t, err)
	assert.True(t, playing)

	playing, err = svc.IsPlaying(ctx, &fakeClient{})
	require.NoError(t, err)
	assert.False(t, playing)

	_, err = svc.IsPlaying(ctx, &fakeClient{stateErr: player.ErrUpstream})
	assert.ErrorIs(t, err, player.ErrUpstream)
}
