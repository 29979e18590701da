package wad

import (
	"io"

	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = discardLogger()

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func SetLogger(l logrus.FieldLogger) {
	logger = l
}
