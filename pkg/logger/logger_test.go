package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyotrack/tyotrack-backend/pkg/logger"
)

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "timesheet-service").
		WithComponent("time_entry_service").
		WithCompanyID("company-1").
		WithUserID("user-1").
		WithError(errors.New("boom"))

	log.Info().Str("entry_id", "e-1").Msg("time entry created")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "timesheet-service", line["service"])
	assert.Equal(t, "time_entry_service", line["component"])
	assert.Equal(t, "company-1", line["company_id"])
	assert.Equal(t, "user-1", line["user_id"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "e-1", line["entry_id"])
	assert.Equal(t, "time entry created", line["message"])
}

func TestLogger_Nop(t *testing.T) {
	assert.NotPanics(t, func() {
		logger.Nop().WithRequestID("r-1").Info().Msg("discarded")
	})
}
