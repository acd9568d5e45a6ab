// Package httpserver serves the read-only toolstate status API: the
// successful-builds manifest and the current tool listing per platform,
// plus the usual health, drain and pprof endpoints. Installers and CI
// dashboards consume it instead of talking to the object store directly.
package httpserver
