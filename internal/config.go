package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Addr              string        `env:"RELAY_ADDR,default=0.0.0.0:3000"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	SignalBufferSize  int           `env:"SIGNAL_BUFFER_SIZE,default=16"`
	EventBufferSize   int           `env:"EVENT_BUFFER_SIZE,default=256"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT,default=0s"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=1m"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,default=*"`
	CensoredWords     string        `env:"CENSORED_WORDS"`
	DebugPort         int           `env:"DEBUG_PORT,default=8081"`
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}

// CensoredWordList splits the comma-separated CENSORED_WORDS value.
// An empty value disables moderation entirely.
func (c Config) CensoredWordList() []string {
	if strings.TrimSpace(c.CensoredWords) == "" {
		return nil
	}
	parts := strings.Split(c.CensoredWords, ",")
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if w := strings.TrimSpace(p); w != "" {
			words = append(words, w)
		}
	}
	return words
}
