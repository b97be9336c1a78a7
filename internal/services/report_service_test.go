package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"field-service/internal/entities"
	"field-service/pkg/constants"
	"field-service/pkg/types"
)

func readSheet(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestReportService_ExportOrders(t *testing.T) {
	env := newTestEnv(OrderPolicy{})
	svc := NewReportService(env.orders, env.technicians, env.clock.Now, zap.NewNop())

	env.putOrder(entities.ServiceOrder{
		State:        constants.StateAssigned,
		TechnicianID: null.Uint64From(techIvanID),
		ScheduledAt:  null.TimeFrom(testNow.AddDate(0, 0, -1)),
		TotalAmount:  dec("1200"),
		LaborHours:   dec("2"),
		LaborPrice:   dec("300"),
	})
	env.putOrder(entities.ServiceOrder{State: constants.StateDraft})

	data, err := svc.ExportOrders(context.Background(), types.Filter{WithPagination: true, Limit: 1})
	require.NoError(t, err)

	rows := readSheet(t, data, ordersSheet)
	require.Len(t, rows, 3, "пагинация в выгрузке отключается")
	assert.Equal(t, "Номер", rows[0][0])
	assert.Len(t, rows[0], len(orderReportHeaders))

	first := rows[1]
	assert.Equal(t, "OS00001", first[0])
	assert.Equal(t, "assigned", first[1])
	assert.Equal(t, "Иван", first[5])
	assert.Equal(t, "08.03.2026 08:00", first[6])
	assert.Equal(t, "1800", first[12])
	assert.Equal(t, "да", first[13])

	assert.Equal(t, "draft", rows[2][1])
	assert.Equal(t, "нет", rows[2][13])
}

func TestReportService_ExportWorkload(t *testing.T) {
	env := newTestEnv(OrderPolicy{})
	svc := NewReportService(env.orders, env.technicians, env.clock.Now, zap.NewNop())

	env.putOrder(entities.ServiceOrder{State: constants.StateAssigned, TechnicianID: null.Uint64From(techIvanID)})
	env.putOrder(entities.ServiceOrder{State: constants.StateDone, TechnicianID: null.Uint64From(techIvanID)})

	data, err := svc.ExportWorkload(context.Background())
	require.NoError(t, err)

	rows := readSheet(t, data, workloadSheet)
	require.Len(t, rows, 3)
	header := rows[0]
	require.Len(t, header, 3+len(constants.AllStates)+2)
	assert.Equal(t, "Всего", header[len(header)-1])

	ivanRow := rows[1]
	assert.Equal(t, "Иван", ivanRow[0])
	assert.Equal(t, "2", ivanRow[1])
	assert.Equal(t, "9-13,14-18", ivanRow[2])
	assert.Equal(t, "1", ivanRow[len(ivanRow)-2], "в работе")
	assert.Equal(t, "2", ivanRow[len(ivanRow)-1], "всего")

	assert.Equal(t, "Сергей", rows[2][0])
	assert.Equal(t, "0", rows[2][len(rows[2])-1])
}
