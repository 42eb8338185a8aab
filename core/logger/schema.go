package logger

import "strings"

// Component names used across the bot.
const (
	CompApp        = "app"
	CompDB         = "db"
	CompMigrate    = "db.migrate"
	CompTelegram   = "tg"
	CompWire       = "tg.wire"
	CompOutbox     = "tg.outbox"
	CompDialogue   = "dialogue"
	CompRouter     = "router"
	CompBrowse     = "browse"
	CompCorrelator = "correlator"
	CompCompute    = "compute"
	CompStore      = "store"
)

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

var (
	allowedStatus  = set("ok", "fail", "skip", "rate_limited", "stale")
	allowedOutcome = set("ok", "fail", "comm_fail", "ignored", "not_found")
)

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeEnum(allowed map[string]struct{}, v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	_, ok := allowed[v]
	return v, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"cb_key",
	"state",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"count",
	"page",
	"pages",
	"item_id",
	"filter",
	"payload",
	"in_flight",
	"driver",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"table",
	"target",
	"err",
	"err_code",
	"cause",
	"reason",
}
