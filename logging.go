// logging.go

package main

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"plantmaint/auth"
	"plantmaint/config"
)

// setupLogging configures the global logrus logger. Unknown levels fall
// back to info; any format other than "text" logs JSON.
func setupLogging(cfg config.LoggingConfig) {
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}
	if err != nil {
		log.WithField("level", cfg.Level).Warn("⚠️  Unknown log level, using info")
	}
}

// logSessionEvent writes sign-in and sign-out events to the log.
func logSessionEvent(ev auth.SessionEvent) {
	fields := log.Fields{"event": ev.Kind}
	if ev.User != nil {
		fields["user_id"] = ev.User.ID
		fields["email"] = ev.User.Email
		fields["role"] = ev.User.Role
	}
	log.WithFields(fields).Info("🔑 Session changed")
}
