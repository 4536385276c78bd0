package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
)

type LoggerTestSuite struct {
	suite.Suite
	saved zerolog.Logger
	out   *bytes.Buffer
}

func (s *LoggerTestSuite) SetupTest() {
	s.saved = Logger
	s.out = &bytes.Buffer{}
	s.Require().NoError(Configure("debug", FormatJSON, s.out))
}

func (s *LoggerTestSuite) TearDownTest() {
	Logger = s.saved
}

func (s *LoggerTestSuite) lastEntry() map[string]any {
	lines := strings.Split(strings.TrimSpace(s.out.String()), "\n")
	s.Require().NotEmpty(lines)

	entry := map[string]any{}
	s.Require().NoError(json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func (s *LoggerTestSuite) TestGoroutineIDIsNumeric() {
	id := goroutineID()
	s.NotEmpty(id)
	s.NotEqual(unknownGoroutine, id)
	for _, c := range id {
		s.True(c >= '0' && c <= '9')
	}
}

func (s *LoggerTestSuite) TestLevels() {
	tests := []struct {
		emit  func() *zerolog.Event
		level string
	}{
		{Info, "info"},
		{Warn, "warn"},
		{Error, "error"},
		{Debug, "debug"},
	}

	for _, tt := range tests {
		tt.emit().Msg("hello " + tt.level)
		entry := s.lastEntry()
		s.Equal(tt.level, entry["level"])
		s.Equal("hello "+tt.level, entry["message"])
		s.Contains(entry, "goid")
	}
}

func (s *LoggerTestSuite) TestStructuredFields() {
	Info().Str("bucket", "media").Str("path", "docs/a").Msg("folder created")

	entry := s.lastEntry()
	s.Equal("media", entry["bucket"])
	s.Equal("docs/a", entry["path"])
}

func (s *LoggerTestSuite) TestSetLevelFiltersDebug() {
	s.Require().NoError(SetLevel("warn"))

	Debug().Msg("hidden")
	Info().Msg("hidden too")
	s.Empty(s.out.String())

	Warn().Msg("shown")
	s.Equal("shown", s.lastEntry()["message"])
}

func (s *LoggerTestSuite) TestSetDebugMode() {
	s.Require().NoError(SetLevel("error"))
	SetDebugMode()

	Debug().Msg("visible")
	s.Equal("visible", s.lastEntry()["message"])
}

func (s *LoggerTestSuite) TestConfigureRejectsUnknownValues() {
	s.Error(Configure("loud", FormatJSON, s.out))
	s.Error(Configure("info", "xml", s.out))
	s.Error(SetLevel("chatty"))
}

func (s *LoggerTestSuite) TestConsoleFormat() {
	s.Require().NoError(Configure("info", FormatConsole, s.out))

	Info().Msg("console line")
	s.Contains(s.out.String(), "console line")
	s.Contains(s.out.String(), "goid")
}

func TestLoggerTestSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}
