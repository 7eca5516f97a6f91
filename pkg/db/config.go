package db

// Config describes a single database credential set. The portal opens two of
// these: one for the anon role used by request-scoped reads and one for the
// service role used by privileged writes and background jobs.
type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}
