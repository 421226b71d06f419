package migrations

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// migrateLog routes golang-migrate output to zerolog at debug level.
type migrateLog struct {
	logger zerolog.Logger
}

func (l *migrateLog) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *migrateLog) Verbose() bool {
	return l.logger.GetLevel() <= zerolog.DebugLevel
}
