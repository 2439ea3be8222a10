package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendMessageToMissingSession(t *testing.T) {
	q := newTestQueries(t)

	_, err := q.AppendMessage("no-such-session", `{"type":"user"}`)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendMessageStoresPayloadVerbatim(t *testing.T) {
	q := newTestQueries(t)
	session, err := q.CreateSession(CreateSessionParams{Title: "payloads"})
	require.NoError(t, err)

	payload := "{\"type\":\"tool_use\",\"name\":\"Read\",\"input\":{\"path\":\"main.go\"},\"odd\":\"\x00 bytes\"}"
	msg, err := q.AppendMessage(session.ID, payload)
	require.NoError(t, err)
	assert.Equal(t, payload, msg.Data)

	got, err := q.GetMessage(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Data)
}

func TestListMessagesEmptyAndRestartable(t *testing.T) {
	q := newTestQueries(t)
	session, err := q.CreateSession(CreateSessionParams{Title: "quiet"})
	require.NoError(t, err)

	first, err := q.ListMessages(session.ID)
	require.NoError(t, err)
	assert.NotNil(t, first)
	assert.Empty(t, first)

	// Re-reading yields the same (empty) prefix.
	second, err := q.ListMessages(session.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestListMessagesPreservesAppendOrder(t *testing.T) {
	q := newTestQueries(t)
	session, err := q.CreateSession(CreateSessionParams{Title: "ordered"})
	require.NoError(t, err)

	// All appends land within the same second; ordering must not depend on
	// the timestamp alone.
	var ids []string
	for _, data := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`, `{"n":4}`} {
		msg, err := q.AppendMessage(session.ID, data)
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	listed, err := q.ListMessages(session.ID)
	require.NoError(t, err)
	require.Len(t, listed, 4)
	for i, msg := range listed {
		assert.Equal(t, ids[i], msg.ID, "position %d", i)
	}

	// Restartable: a second read returns the same prefix plus new appends.
	extra, err := q.AppendMessage(session.ID, `{"n":5}`)
	require.NoError(t, err)
	relisted, err := q.ListMessages(session.ID)
	require.NoError(t, err)
	require.Len(t, relisted, 5)
	assert.Equal(t, append(ids, extra.ID), []string{relisted[0].ID, relisted[1].ID, relisted[2].ID, relisted[3].ID, relisted[4].ID})
}

func TestListMessagesAfter(t *testing.T) {
	q := newTestQueries(t)
	session, err := q.CreateSession(CreateSessionParams{Title: "incremental"})
	require.NoError(t, err)

	var ids []string
	for _, data := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		msg, err := q.AppendMessage(session.ID, data)
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	suffix, err := q.ListMessagesAfter(session.ID, ids[0])
	require.NoError(t, err)
	require.Len(t, suffix, 2)
	assert.Equal(t, ids[1], suffix[0].ID)
	assert.Equal(t, ids[2], suffix[1].ID)

	tail, err := q.ListMessagesAfter(session.ID, ids[2])
	require.NoError(t, err)
	assert.Empty(t, tail)

	_, err = q.ListMessagesAfter(session.ID, "unknown-anchor")
	assert.ErrorIs(t, err, ErrNotFound)
}
