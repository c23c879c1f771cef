package cmd

import (
	"os"

	"github.com/spf13/viper"

	"sqlbridge/internal/bridge"
)

// Environment bootstrap. Later entries override earlier ones, so the
// preferred names come last; the legacy names are kept for installations that
// still export them. User settings come before password-file settings because
// the pgpass lookup needs the user already resolved.
var envSettings = []struct {
	name  string
	apply func(*bridge.Params, string)
}{
	{"MGI_PUBLICUSER", func(p *bridge.Params, v string) { p.User = v }},
	{"MGI_PUBLICPASSWORD", func(p *bridge.Params, v string) { p.Password = v }},
	{"MGD_DBSERVER", func(p *bridge.Params, v string) { p.Host = v }},
	{"DSQUERY", func(p *bridge.Params, v string) { p.Host = v }},
	{"MGD_DBNAME", func(p *bridge.Params, v string) { p.Database = v }},
	{"MGD", func(p *bridge.Params, v string) { p.Database = v }},
	{"PG_DBSERVER", func(p *bridge.Params, v string) { p.Host = v }},
	{"PG_DBNAME", func(p *bridge.Params, v string) { p.Database = v }},
	{"PG_DBUSER", func(p *bridge.Params, v string) { p.User = v }},
	{"PG_DBPASSWORDFILE", applyPgpass},
	{"PGPASSFILE", applyPgpass},
}

// applyPgpass resolves the current user's password from a .pgpass-style file.
// Some servers do not install the password file product at all, so a failed
// lookup is silently ignored and later configuration can still supply the
// credential.
func applyPgpass(p *bridge.Params, path string) {
	if pw, ok := bridge.LoadPgpass(path, p.User); ok {
		p.Password = pw
	}
}

// resolveParams builds connection parameters with the precedence
// flag > config file > environment.
func resolveParams() bridge.Params {
	var p bridge.Params
	for _, e := range envSettings {
		if v, ok := os.LookupEnv(e.name); ok {
			e.apply(&p, v)
		}
	}

	if v := viper.GetString("database.server"); v != "" {
		p.Host = v
	}
	if v := viper.GetString("database.name"); v != "" {
		p.Database = v
	}
	if v := viper.GetString("database.user"); v != "" {
		p.User = v
	}
	if v := viper.GetString("database.password"); v != "" {
		p.Password = v
	}
	if v := viper.GetString("database.passwordfile"); v != "" {
		p.PasswordFile = v
	}
	return p
}
