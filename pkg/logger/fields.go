package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field is one typed key/value attached to a log event.
type Field interface {
	AddTo(event *zerolog.Event)
	KeyValue() (string, interface{})
}

type stringField struct {
	key, value string
}

func (f stringField) AddTo(event *zerolog.Event) { event.Str(f.key, f.value) }
func (f stringField) KeyValue() (string, interface{}) { return f.key, f.value }

type intField struct {
	key   string
	value int
}

func (f intField) AddTo(event *zerolog.Event) { event.Int(f.key, f.value) }
func (f intField) KeyValue() (string, interface{}) { return f.key, f.value }

type int64Field struct {
	key   string
	value int64
}

func (f int64Field) AddTo(event *zerolog.Event) { event.Int64(f.key, f.value) }
func (f int64Field) KeyValue() (string, interface{}) { return f.key, f.value }

type float64Field struct {
	key   string
	value float64
}

func (f float64Field) AddTo(event *zerolog.Event) { event.Float64(f.key, f.value) }
func (f float64Field) KeyValue() (string, interface{}) { return f.key, f.value }

type boolField struct {
	key   string
	value bool
}

func (f boolField) AddTo(event *zerolog.Event) { event.Bool(f.key, f.value) }
func (f boolField) KeyValue() (string, interface{}) { return f.key, f.value }

type errorField struct {
	value error
}

func (f errorField) AddTo(event *zerolog.Event) { event.Err(f.value) }
func (f errorField) KeyValue() (string, interface{}) {
	if f.value == nil {
		return "error", nil
	}
	return "error", f.value.Error()
}

type anyField struct {
	key   string
	value interface{}
}

func (f anyField) AddTo(event *zerolog.Event) { event.Interface(f.key, f.value) }
func (f anyField) KeyValue() (string, interface{}) { return f.key, f.value }

func String(key, value string) Field { return stringField{key, value} }

func Int(key string, value int) Field { return intField{key, value} }

func Int32(key string, value int32) Field { return intField{key, int(value)} }

func Int64(key string, value int64) Field { return int64Field{key, value} }

func Uint(key string, value uint) Field { return intField{key, int(value)} }

func Uint64(key string, value uint64) Field { return int64Field{key, int64(value)} }

func Float64(key string, value float64) Field { return float64Field{key, value} }

func Bool(key string, value bool) Field { return boolField{key, value} }

func Error(err error) Field { return errorField{err} }

func Any(key string, value interface{}) Field { return anyField{key, value} }

// Duration logs the value as whole milliseconds.
func Duration(key string, value time.Duration) Field {
	return intField{key, int(value / time.Millisecond)}
}

// Strings joins the values into one comma-separated field.
func Strings(key string, value []string) Field {
	return stringField{key, strings.Join(value, ", ")}
}
