/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const timestampFormat = "2006-01-02 15:04:05.000"

var (
	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*logrus.Logger{}
	defaultLevel     = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "info"))
	consoleLogFormat = normalizeFormat(EnvDefaultString("CONSOLE_LOG_FORMAT", "text"))
	logOutput        io.Writer = os.Stdout
)

func normalizeFormat(format string) string {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return "json"
	}
	return "text"
}

// ConfigureConsoleLogFormat switches loggers created afterwards between the
// "text" and "json" formats.
func ConfigureConsoleLogFormat(format string) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	consoleLogFormat = normalizeFormat(format)
}

// SetLogOutput redirects every registered logger and the ones created later.
func SetLogOutput(w io.Writer) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	logOutput = w
	for _, lg := range loggerRegistry {
		lg.SetOutput(w)
	}
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// SetLoggerLevel sets the level of the named logger. It reports false when
// no such logger exists.
func SetLoggerLevel(name string, level string) bool {
	loggerRegistryMu.RLock()
	lg, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if !ok {
		return false
	}
	lg.SetLevel(ParseLogLevel(level))
	return true
}

func SetAllLoggersLevel(level string) {
	lvl := ParseLogLevel(level)
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	defaultLevel = lvl
	for _, lg := range loggerRegistry {
		lg.SetLevel(lvl)
	}
}

// NewLogger returns the logger registered under name, creating it on first
// use.
func NewLogger(name string) *logrus.Logger {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	if lg, ok := loggerRegistry[name]; ok {
		return lg
	}
	l := logrus.New()
	l.SetOutput(logOutput)
	l.SetLevel(defaultLevel)
	l.SetReportCaller(true)
	if consoleLogFormat == "json" {
		l.SetFormatter(&JSONLogFormatter{LoggerName: name})
	} else {
		l.SetFormatter(&Log4jColorFormatter{LoggerName: name, NameWidth: 10, CallerWidth: 25})
	}
	loggerRegistry[name] = l
	return l
}

// Log4jColorFormatter renders "time LEVEL pid - [main] name caller : msg k=v".
type Log4jColorFormatter struct {
	LoggerName      string
	TimestampFormat string
	NameWidth       int
	CallerWidth     int
	DisableColors   bool
}

func (f *Log4jColorFormatter) paint(attr color.Attribute, s string) string {
	if f.DisableColors {
		return s
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}

func (f *Log4jColorFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	ts := entry.Time.Format(orDefault(f.TimestampFormat, timestampFormat))
	lvl := f.paint(levelColor(entry.Level), fmt.Sprintf("%7s", strings.ToUpper(entry.Level.String())))
	name := f.paint(color.FgCyan, fmt.Sprintf("%*s", f.NameWidth, limitRunes(f.LoggerName, f.NameWidth)))

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s - %s %s", ts, lvl, f.paint(color.FgMagenta, fmt.Sprintf("%-6d", os.Getpid())),
		f.paint(color.FgMagenta, "[main]"), name)
	if entry.Caller != nil {
		caller := fmt.Sprintf("%s:%d", compactPath(entry.Caller.File, f.CallerWidth), entry.Caller.Line)
		b.WriteString(f.paint(color.Faint, fmt.Sprintf(" %*s", f.CallerWidth, caller)))
	}
	b.WriteString(" " + f.paint(color.Faint, ":") + " " + entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// JSONLogFormatter renders one JSON object per entry.
type JSONLogFormatter struct {
	LoggerName      string
	TimestampFormat string
}

type jsonLogRecord struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Logger  string         `json:"logger"`
	Caller  string         `json:"caller,omitempty"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func (f *JSONLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	rec := jsonLogRecord{
		Time:    entry.Time.Format(orDefault(f.TimestampFormat, timestampFormat)),
		Level:   entry.Level.String(),
		Logger:  f.LoggerName,
		Message: entry.Message,
	}
	if entry.Caller != nil {
		rec.Caller = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	if len(entry.Data) > 0 {
		rec.Fields = make(map[string]any, len(entry.Data))
		for k, v := range entry.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			rec.Fields[k] = v
		}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func levelColor(level logrus.Level) color.Attribute {
	switch level {
	case logrus.TraceLevel, logrus.DebugLevel:
		return color.FgBlue
	case logrus.InfoLevel:
		return color.FgGreen
	case logrus.WarnLevel:
		return color.FgYellow
	default:
		return color.FgRed
	}
}

// compactPath shortens "a/b/c/file.go" to "a.b.c.file.go" and keeps the tail
// when the result is wider than max.
func compactPath(p string, max int) string {
	p = filepath.ToSlash(p)
	parts := strings.Split(p, "/")
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	out := strings.Join(parts, ".")
	if r := []rune(out); max > 0 && len(r) > max-6 && max > 6 {
		out = string(r[len(r)-(max-6):])
	}
	return out
}

func limitRunes(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	}
	return def
}

func EnvDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return def
		}
		return n
	}
	return def
}

// EnvDefaultDuration reads a duration such as "5s"; a bare integer is taken
// as seconds.
func EnvDefaultDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
