package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log: общий логгер сервиса.
var Log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Configure выставляет уровень и формат логов. Неизвестный уровень
// оставляет info и возвращает ошибку разбора.
func Configure(level, format string) error {
	if strings.EqualFold(format, "json") {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Log.SetLevel(logrus.InfoLevel)
		return err
	}
	Log.SetLevel(lvl)
	return nil
}
