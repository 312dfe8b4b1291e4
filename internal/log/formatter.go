package log

import (
	"fmt"
	"path"
	"runtime"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

type formatter struct {
	pattern string
	time    string
}

// Format expands %time, %level, %field, %msg, %caller, %func and %goroutine
// in the pattern. Each placeholder is replaced once.
func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	output := f.pattern
	output = strings.Replace(output, "%time", entry.Time.Format(f.time), 1)
	output = strings.Replace(output, "%level", strings.ToUpper(entry.Level.String()), 1)
	output = strings.Replace(output, "%field", joinFields(entry.Data), 1)
	output = strings.Replace(output, "%msg", entry.Message, 1)
	if strings.Contains(output, "%caller") {
		output = strings.Replace(output, "%caller", caller(entry), 1)
	}
	if strings.Contains(output, "%func") {
		output = strings.Replace(output, "%func", funcName(entry), 1)
	}
	if strings.Contains(output, "%goroutine") {
		output = strings.Replace(output, "%goroutine", goroutineID(), 1)
	}
	return []byte(output), nil
}

func (f *formatter) needsCaller() bool {
	return strings.Contains(f.pattern, "%caller") || strings.Contains(f.pattern, "%func")
}

// caller renders pkg/file.go:line.
func caller(entry *logrus.Entry) string {
	if !entry.HasCaller() {
		return "unknown"
	}
	pkg := entry.Caller.Function
	if i := strings.LastIndex(pkg, "/"); i >= 0 {
		pkg = pkg[i+1:]
	}
	if i := strings.Index(pkg, "."); i >= 0 {
		pkg = pkg[:i]
	}
	return fmt.Sprintf("%s/%s:%d", pkg, path.Base(entry.Caller.File), entry.Caller.Line)
}

func funcName(entry *logrus.Entry) string {
	if !entry.HasCaller() {
		return "unknown"
	}
	name := entry.Caller.Function
	if i := strings.LastIndex(name, "."); i >= 0 && i+1 < len(name) {
		return name[i+1:]
	}
	return name
}

// goroutineID parses the id out of the "goroutine N [running]:" stack line.
func goroutineID() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))
	if len(fields) > 0 {
		return fields[0]
	}
	return "unknown"
}

// joinFields renders key=value pairs sorted by key.
func joinFields(data logrus.Fields) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fmt.Sprint(data[k]))
	}
	return strings.Join(pairs, ",")
}
