package logger

import (
	"github.com/sirupsen/logrus"
)

// Log - глобальный логгер приложения. До Init пишет в stderr с настройками logrus по умолчанию.
var Log = logrus.New()

// Init настраивает уровень и формат логов под окружение.
// В development используется текстовый формат и уровень debug, иначе JSON.
func Init(env, level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if env == "development" && level == "" {
		lvl = logrus.DebugLevel
	}
	Log.SetLevel(lvl)

	if env == "development" {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// WithComponent возвращает запись с полем component.
func WithComponent(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
