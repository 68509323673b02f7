package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hrms/internal/domain/access"
	"hrms/internal/platform/db/dbtest"
)

func TestRecordAndSearch(t *testing.T) {
	gdb := dbtest.Open(t, &Log{})
	svc := NewService(gdb, zap.NewNop())
	ctx := context.Background()
	actor := access.Actor{UserID: "u1", RequestID: "req-1", IP: "10.0.0.1"}

	svc.Record(ctx, actor, "employee.create", "employee", "e1", nil, map[string]string{"email": "a@example.com"})
	svc.Record(ctx, actor, "employee.update", "employee", "e1", map[string]string{"phone": "1"}, map[string]string{"phone": "2"})
	svc.Record(ctx, access.Actor{UserID: "u2"}, "department.create", "department", "d1", nil, nil)

	logs, total, err := svc.Search(ctx, Filter{EntityType: "employee"}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, logs, 2)
	for _, entry := range logs {
		assert.Equal(t, "req-1", entry.RequestID)
		assert.NotEmpty(t, entry.AfterJSON)
	}

	logs, total, err = svc.Search(ctx, Filter{ActorID: "u2"}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Empty(t, logs[0].BeforeJSON)

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	_, total, err = svc.Search(ctx, Filter{From: &tomorrow}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	logs, _, err = svc.Search(ctx, Filter{}, 1, 1)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestExportCSV(t *testing.T) {
	gdb := dbtest.Open(t, &Log{})
	svc := NewService(gdb, zap.NewNop())
	ctx := context.Background()
	svc.Record(ctx, access.Actor{UserID: "u1"}, "role.delete", "role", "r1", nil, nil)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, Filter{}, &buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "action", rows[0][3])
	assert.Equal(t, "role.delete", rows[1][3])
}
