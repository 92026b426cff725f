package idomysql

import (
	"github.com/kart-io/ido-converge/pkg/options/database"
	featureopts "github.com/kart-io/ido-converge/pkg/options/feature"
)

// Assemble builds the full attribute mapping of the IdoMysqlConnection
// object: connection attributes first, then instance and HA attributes, with
// the TLS overlay merged last. Unset optional attributes stay unset and are
// omitted by the renderer rather than serialized as empty values.
func Assemble(conn *database.Options, feat *featureopts.Options, tlsOverlay *Attrs) *Attrs {
	a := NewAttrs()

	a.Set("host", stringOrUnset(conn.Host))
	if conn.Port != 0 {
		a.Set("port", NumberVal(conn.Port))
	} else {
		a.Set("port", Unset())
	}
	a.Set("socket_path", stringOrUnset(conn.Socket))
	a.Set("user", StringVal(conn.Username))
	a.Set("password", stringOrUnset(conn.Password))
	a.Set("database", StringVal(conn.Database))
	a.Set("table_prefix", StringVal(conn.TablePrefix))

	a.Set("instance_name", stringOrUnset(feat.InstanceName))
	switch feat.EnableHA {
	case "true":
		a.Set("enable_ha", BoolVal(true))
	case "false":
		a.Set("enable_ha", BoolVal(false))
	default:
		a.Set("enable_ha", Unset())
	}
	if feat.FailoverTimeout > 0 {
		a.Set("failover_timeout", DurationVal(feat.FailoverTimeout))
	} else {
		a.Set("failover_timeout", Unset())
	}
	if len(feat.Cleanup) > 0 {
		a.Set("cleanup", DictVal(feat.Cleanup))
	} else {
		a.Set("cleanup", Unset())
	}
	if len(feat.Categories) > 0 {
		a.Set("categories", ArrayVal(feat.Categories))
	} else {
		a.Set("categories", Unset())
	}

	a.Merge(tlsOverlay)
	return a
}

func stringOrUnset(s string) Value {
	if s == "" {
		return Unset()
	}
	return StringVal(s)
}
