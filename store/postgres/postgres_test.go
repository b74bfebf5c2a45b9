package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agstore "github.com/agentmap/agentmap-core/store"
)

func TestPostgres_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewCheckpointStoreWithPool(mock, "thread_checkpoints")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO thread_checkpoints")).
		WithArgs("t-1", "support_flow", "review",
			`{"q":"?"}`, `{"attempt":1}`, `null`,
			pgxmock.AnyArg(), 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = s.Save(context.Background(), &agstore.ThreadCheckpoint{
		ThreadID:     "t-1",
		GraphName:    "support_flow",
		NodeName:     "review",
		Inputs:       map[string]any{"q": "?"},
		AgentContext: map[string]any{"attempt": 1},
		SavedAt:      time.Now(),
		Version:      1,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewCheckpointStoreWithPool(mock, "thread_checkpoints")

	now := time.Now()
	rows := pgxmock.NewRows([]string{"thread_id", "graph_name", "node_name", "inputs", "agent_context", "tracker", "saved_at", "version"}).
		AddRow("t-1", "support_flow", "review", `{"q":"?"}`, `{}`, `null`, now, 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT thread_id, graph_name, node_name, inputs, agent_context, tracker, saved_at, version")).
		WithArgs("t-1").
		WillReturnRows(rows)

	cp, err := s.Load(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "support_flow", cp.GraphName)
	assert.Equal(t, map[string]any{"q": "?"}, cp.Inputs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadMissingThread(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewCheckpointStoreWithPool(mock, "thread_checkpoints")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT thread_id")).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"thread_id", "graph_name", "node_name", "inputs", "agent_context", "tracker", "saved_at", "version"}))

	_, err = s.Load(context.Background(), "ghost")
	assert.ErrorContains(t, err, "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListByGraph(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewCheckpointStoreWithPool(mock, "thread_checkpoints")

	base := time.Now()
	rows := pgxmock.NewRows([]string{"thread_id", "graph_name", "node_name", "inputs", "agent_context", "tracker", "saved_at", "version"}).
		AddRow("t-1", "support_flow", "review", `{}`, `{}`, `null`, base, 1).
		AddRow("t-2", "support_flow", "approve", `{}`, `{}`, `null`, base.Add(time.Minute), 1)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE graph_name = $1 ORDER BY saved_at ASC")).
		WithArgs("support_flow").
		WillReturnRows(rows)

	cps, err := s.ListByGraph(context.Background(), "support_flow")
	require.NoError(t, err)
	require.Len(t, cps, 2)
	assert.Equal(t, "t-1", cps[0].ThreadID)
	assert.Equal(t, "approve", cps[1].NodeName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewCheckpointStoreWithPool(mock, "thread_checkpoints")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM thread_checkpoints WHERE thread_id = $1")).
		WithArgs("t-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, s.Delete(context.Background(), "t-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteOlderThan(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewCheckpointStoreWithPool(mock, "thread_checkpoints")

	cutoff := time.Now().Add(-24 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM thread_checkpoints WHERE saved_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	removed, err := s.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
