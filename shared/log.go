package shared

import (
	"bufio"
	"context"
	"database/sql/driver"
	"fmt"
	"net"
	"net/http"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/Vinubaba/TOUCH-API/claims"

	"github.com/go-kit/kit/log"
)

const (
	LvlDebug = "DEBUG"
	LvlInfo  = "INFO"
	LvlWarn  = "WARNING"
	LvlErr   = "ERROR"
)

func NewLogger(component string) *Logger {
	var kitlogger log.Logger
	kitlogger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	kitlogger = log.With(kitlogger, "ts", log.DefaultTimestampUTC)
	kitlogger = log.With(kitlogger, "component", component)

	return &Logger{
		kitlogger,
	}
}

type Logger struct {
	log.Logger
}

func (l *Logger) Debug(ctx context.Context, message string, keyvals ...interface{}) {
	l.logWithLvl(ctx, LvlDebug, message, keyvals)
}

func (l *Logger) Info(ctx context.Context, message string, keyvals ...interface{}) {
	l.logWithLvl(ctx, LvlInfo, message, keyvals)
}

func (l *Logger) Warn(ctx context.Context, message string, keyvals ...interface{}) {
	l.logWithLvl(ctx, LvlWarn, message, keyvals)
}

func (l *Logger) Err(ctx context.Context, message string, keyvals ...interface{}) {
	l.logWithLvl(ctx, LvlErr, message, keyvals)
}

// Print implements the gorm logger. Mirror rows hold parents data so bound
// values are logged by size, never by content.
func (l *Logger) Print(v ...interface{}) {
	if len(v) < 2 {
		return
	}
	keyvals := []interface{}{"source", v[1]}
	if v[0] != "sql" || len(v) < 5 {
		keyvals = append(keyvals, v[2:]...)
		l.logWithLvl(context.Background(), LvlDebug, "database message", keyvals)
		return
	}

	if d, ok := v[2].(time.Duration); ok {
		keyvals = append(keyvals, "duration", d.String())
	}
	query, _ := v[3].(string)
	values, _ := v[4].([]interface{})
	keyvals = append(keyvals, "query", bindValues(query, values))
	if len(v) > 5 {
		keyvals = append(keyvals, "rows", v[5])
	}
	l.logWithLvl(context.Background(), LvlDebug, "new database query", keyvals)
}

func bindValues(query string, values []interface{}) string {
	formatted := make([]string, 0, len(values))
	for _, value := range values {
		formatted = append(formatted, redact(value))
	}

	var sb strings.Builder
	for i, part := range sqlRegexp.Split(query, -1) {
		sb.WriteString(part)
		if i < len(formatted) {
			sb.WriteString(formatted[i])
		}
	}
	return sb.String()
}

func redact(value interface{}) string {
	indirect := reflect.Indirect(reflect.ValueOf(value))
	if !indirect.IsValid() {
		return "NULL"
	}
	switch v := indirect.Interface().(type) {
	case time.Time:
		return fmt.Sprintf("'%s'", v.Format(time.RFC3339))
	case []byte:
		return fmt.Sprintf("'<%d bytes>'", len(v))
	case driver.Valuer:
		if dv, err := v.Value(); err == nil && dv != nil {
			return fmt.Sprintf("'%v'", dv)
		}
		return "NULL"
	case string:
		if len(v) > maxLoggedString || !isPrintable(v) {
			return fmt.Sprintf("'<%d chars>'", len(v))
		}
		return fmt.Sprintf("'%s'", v)
	default:
		return fmt.Sprintf("'%v'", v)
	}
}

func (l *Logger) logWithLvl(ctx context.Context, lvl string, message string, keyvals []interface{}) {
	if c, ok := claims.FromContext(ctx); ok && c.UserId != "" {
		keyvals = append(keyvals, "userId", c.UserId)
	}
	keyvals = append(keyvals, "level", lvl, "msg", message)
	l.Log(keyvals...)
}

const maxLoggedString = 128

var sqlRegexp = regexp.MustCompile(`(\$\d+)|\?`)

func isPrintable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (l *Logger) RequestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, req)

		l.Info(req.Context(), "http request served",
			"method", req.Method,
			"path", req.URL.Path,
			"status", recorder.status,
			"duration", time.Since(start).String(),
		)
	})
}
