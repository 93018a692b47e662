// Package logs writes to the flowbase loggers when they have been set up and
// stays quiet when they have not, so library code can be used without first
// calling one of the flowbase.InitLog functions.
package logs

import (
	"github.com/flowbase/flowbase"
)

func Debugf(format string, v ...interface{}) {
	if l := flowbase.Debug; l != nil {
		l.Printf(format, v...)
	}
}

func Infof(format string, v ...interface{}) {
	if l := flowbase.Info; l != nil {
		l.Printf(format, v...)
	}
}

func Warningf(format string, v ...interface{}) {
	if l := flowbase.Warning; l != nil {
		l.Printf(format, v...)
	}
}
