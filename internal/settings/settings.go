// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package settings renders the serial vault settings file from the charm
// config and the negotiated database credentials.
package settings

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/utils/v4"
	goyaml "gopkg.in/yaml.v2"

	"github.com/canonical/serial-vault-charm/internal/charmconfig"
	"github.com/canonical/serial-vault-charm/internal/database"
)

var logger = loggo.GetLogger("serialvault.settings")

const (
	// ConfDir holds the service configuration.
	ConfDir = "/etc/serial-vault"

	// AssetsDir holds the static web assets of the service.
	AssetsDir = "/usr/share/serial-vault"

	// FileName is the name of the settings file inside ConfDir.
	FileName = "settings.yaml"

	// FileMode is applied to the settings file. The file holds secrets;
	// see DESIGN.md for why this mode is kept as is.
	FileMode os.FileMode = 0755
)

// DefaultPath is where the service reads its settings from.
var DefaultPath = filepath.Join(ConfDir, FileName)

//go:embed settings.yaml.tmpl
var settingsTemplate string

var tmpl = template.Must(template.New(FileName).Funcs(template.FuncMap{
	"yaml": quote,
}).Parse(settingsTemplate))

// Params holds everything interpolated into the settings file.
type Params struct {
	DocRoot        string
	KeystoreSecret string
	CSRFAuthKey    string
	JWTSecret      string
	ServiceType    charmconfig.ServiceType
	URLHost        string
	URLScheme      string
	EnableUserAuth bool
	Database       database.Credentials
}

// NewParams builds Params from the charm config and database credentials.
func NewParams(cfg charmconfig.ServiceConfig, creds database.Credentials) Params {
	return Params{
		DocRoot:        AssetsDir,
		KeystoreSecret: cfg.KeystoreSecret,
		CSRFAuthKey:    cfg.CSRFAuthKey,
		JWTSecret:      cfg.JWTSecret,
		ServiceType:    cfg.ServiceType,
		URLHost:        cfg.URLHost,
		URLScheme:      cfg.URLScheme,
		EnableUserAuth: cfg.EnableUserAuth,
		Database:       creds,
	}
}

// Datasource returns the libpq connection string for the database.
func (p Params) Datasource() string {
	db := p.Database
	return fmt.Sprintf("dbname=%s host=%s port=%s user=%s password=%s sslmode=disable",
		dsnValue(db.DatabaseName), dsnValue(db.Host), dsnValue(db.Port), dsnValue(db.User), dsnValue(db.Password))
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// dsnValue quotes a connection string value when libpq would otherwise
// split or unescape it.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	return "'" + dsnEscaper.Replace(v) + "'"
}

// Render returns the settings document for p.
func Render(p Params) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return nil, errors.Annotate(err, "rendering settings")
	}
	return buf.Bytes(), nil
}

// Renderer writes the settings file.
type Renderer struct {
	path string
}

// NewRenderer returns a Renderer writing to path.
func NewRenderer(path string) *Renderer {
	return &Renderer{path: path}
}

// Path returns the location of the settings file.
func (r *Renderer) Path() string {
	return r.path
}

// Write renders p and atomically replaces the settings file.
func (r *Renderer) Write(p Params) error {
	data, err := Render(p)
	if err != nil {
		return errors.Trace(err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return errors.Annotatef(err, "creating %s", filepath.Dir(r.path))
	}
	if err := utils.AtomicWriteFile(r.path, data, FileMode); err != nil {
		return errors.Annotatef(err, "writing %s", r.path)
	}
	logger.Infof("wrote %s for %s mode", r.path, p.ServiceType)
	return nil
}

// quote renders a value as a YAML scalar.
func quote(v interface{}) (string, error) {
	if s, ok := v.(charmconfig.ServiceType); ok {
		v = string(s)
	}
	out, err := goyaml.Marshal(v)
	if err != nil {
		return "", errors.Trace(err)
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}
